package sfu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ruletka/internal/core"
)

var errUnknownProducer = errors.New("unknown producer")

// Transport is one direction of one peer's media path, backed by a
// PeerConnection that answers the client's offer.
type Transport struct {
	id     string
	router *Router
	pc     *webrtc.PeerConnection

	ctx    context.Context
	cancel context.CancelFunc

	// Remote tracks land here from OnTrack, keyed by kind, until a
	// Produce call adopts them.
	arrived map[string]chan *webrtc.TrackRemote

	mu        sync.Mutex
	producers []*Producer
	consumers []*Consumer

	closeOnce sync.Once
}

func (t *Transport) ID() string { return t.id }

func (t *Transport) Info() core.TransportInfo {
	return core.TransportInfo{ID: t.id, ICEServers: t.router.engine.stun}
}

func (t *Transport) bindCallbacks() {
	t.pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Info().Str("module", "sfu").Str("transport", t.id).Str("ice_state", s.String()).Msg("ICE state")
	})
	t.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "sfu").Str("transport", t.id).Str("peer_state", s.String()).Msg("peer state")
		if s == webrtc.PeerConnectionStateFailed || s == webrtc.PeerConnectionStateClosed {
			t.Close()
		}
	})
	t.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		kind := track.Kind().String()
		log.Info().
			Str("module", "sfu").
			Str("transport", t.id).
			Str("kind", kind).
			Str("track_id", track.ID()).
			Msg("remote track")
		ch, ok := t.arrived[kind]
		if !ok {
			return
		}
		select {
		case ch <- track:
		default:
			log.Warn().Str("module", "sfu").Str("transport", t.id).Str("kind", kind).Msg("unclaimed track dropped")
		}
	})
}

// Connect applies the client's remote description and returns the
// gathered local answer verbatim, as a wire-ready blob.
func (t *Transport) Connect(_ context.Context, remote core.RemoteParameters) (core.RemoteParameters, error) {
	var offer webrtc.SessionDescription
	if err := json.Unmarshal(remote, &offer); err != nil {
		return nil, fmt.Errorf("bad remote parameters: %w", err)
	}
	if err := t.pc.SetRemoteDescription(offer); err != nil {
		return nil, err
	}
	answer, err := t.pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}

	gatherComplete := webrtc.GatheringCompletePromise(t.pc)
	if err := t.pc.SetLocalDescription(answer); err != nil {
		return nil, err
	}
	<-gatherComplete

	b, err := json.Marshal(t.pc.LocalDescription())
	if err != nil {
		return nil, err
	}
	return core.RemoteParameters(b), nil
}

// Produce adopts the next remote track of the given kind into a relay
// and registers it with the router. Blocks until the track arrives or
// ctx expires; the caller bounds the wait.
func (t *Transport) Produce(ctx context.Context, kind string, _ core.RTPParameters) (core.Producer, error) {
	ch, ok := t.arrived[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported media kind %q", kind)
	}

	var track *webrtc.TrackRemote
	select {
	case track = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.ctx.Done():
		return nil, errors.New("transport closed")
	}

	p := &Producer{
		id:     uuid.NewString(),
		kind:   kind,
		src:    track,
		router: t.router,
		relay:  newRelay(track),
	}
	pctx, cancel := context.WithCancel(t.ctx)
	p.cancel = cancel

	t.mu.Lock()
	t.producers = append(t.producers, p)
	t.mu.Unlock()
	t.router.addProducer(p)

	logger := log.With().Str("module", "sfu").Str("producer", p.id).Str("kind", kind).Logger()
	go p.relay.loop(pctx, &logger)
	logger.Info().Msg("producer started")
	return p, nil
}

// Consume attaches a local track fed by the producer's relay to this
// transport's PeerConnection.
func (t *Transport) Consume(_ context.Context, producerID string, _ core.RTPCapabilities) (core.Consumer, error) {
	p, ok := t.router.producer(producerID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownProducer, producerID)
	}

	local, err := webrtc.NewTrackLocalStaticRTP(p.src.Codec().RTPCodecCapability, p.kind, "ruletka-"+p.id)
	if err != nil {
		return nil, err
	}
	sender, err := t.pc.AddTrack(local)
	if err != nil {
		return nil, err
	}
	go drainRTCP(t.ctx, sender)

	params, err := json.Marshal(p.src.Codec().RTPCodecCapability)
	if err != nil {
		return nil, err
	}
	c := &Consumer{
		id:         uuid.NewString(),
		producerID: p.id,
		kind:       p.kind,
		params:     core.RTPParameters(params),
		relay:      p.relay,
	}
	p.relay.addOut(c.id, newOutTrack(local))

	t.mu.Lock()
	t.consumers = append(t.consumers, c)
	t.mu.Unlock()
	log.Info().Str("module", "sfu").Str("transport", t.id).Str("consumer", c.id).Str("producer", p.id).Msg("consumer attached")
	return c, nil
}

// drainRTCP keeps the sender's feedback path flowing so interceptors
// (PLI in particular) stay functional.
func drainRTCP(ctx context.Context, sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

// Close is idempotent. It stops every owned producer and consumer and
// closes the underlying PeerConnection.
func (t *Transport) Close() {
	t.closeOnce.Do(func() {
		t.cancel()

		t.mu.Lock()
		producers := t.producers
		consumers := t.consumers
		t.producers = nil
		t.consumers = nil
		t.mu.Unlock()

		for _, c := range consumers {
			c.Close()
		}
		for _, p := range producers {
			p.Close()
		}
		if err := t.pc.Close(); err != nil {
			log.Error().Err(err).Str("module", "sfu").Str("transport", t.id).Msg("close error")
		} else {
			log.Info().Str("module", "sfu").Str("transport", t.id).Msg("closed")
		}
	})
}
