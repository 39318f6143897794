package sfu

import (
	"context"
	"maps"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// relay reads RTP from a producer's source track and forwards it to
// every attached out track.
type relay struct {
	src *webrtc.TrackRemote

	mu        sync.RWMutex
	outTracks map[string]*outTrack
}

func newRelay(src *webrtc.TrackRemote) *relay {
	return &relay{
		src:       src,
		outTracks: make(map[string]*outTrack),
	}
}

func (r *relay) addOut(id string, ot *outTrack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outTracks[id] = ot
}

func (r *relay) removeOut(id string) {
	r.mu.RLock()
	ot, ok := r.outTracks[id]
	r.mu.RUnlock()
	if ok {
		ot.markDelete()
	}
}

// loop forwards packets until the context is cancelled or the source
// track errors out (its sender hung up).
func (r *relay) loop(ctx context.Context, logger *zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("relay ctx done, marking all out tracks for delete")
			r.markAllDelete()
			return
		default:
		}
		pkt, _, err := r.src.ReadRTP()
		if err != nil {
			logger.Info().Err(err).Msg("relay source ended")
			r.markAllDelete()
			return
		}
		r.forward(pkt, logger)
	}
}

func (r *relay) forward(pkt *rtp.Packet, logger *zerolog.Logger) {
	r.mu.RLock()
	snapshot := maps.Clone(r.outTracks)
	r.mu.RUnlock()

	dirty := false
	for id, ot := range snapshot {
		if ot.getState() == trackStateDelete {
			dirty = true
			continue
		}
		if err := ot.track.WriteRTP(pkt); err != nil {
			logger.Error().Err(err).Str("out", id).Msg("relay write error, dropping out track")
			ot.markDelete()
			dirty = true
		}
	}
	if dirty {
		r.cleanupDeleted()
	}
}

func (r *relay) cleanupDeleted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ot := range r.outTracks {
		if ot.getState() == trackStateDelete {
			delete(r.outTracks, id)
		}
	}
}

func (r *relay) markAllDelete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ot := range r.outTracks {
		ot.markDelete()
	}
}
