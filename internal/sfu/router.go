package sfu

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ruletka/internal/core"
)

// Router is one media routing domain. Producers registered here are
// consumable from any transport created by the same router.
type Router struct {
	engine *Engine

	mu        sync.RWMutex
	producers map[string]*Producer
	closed    bool
}

func (r *Router) CreateTransport(ctx context.Context) (core.Transport, error) {
	pc, err := r.engine.api.NewPeerConnection(r.engine.rtcCfg)
	r.engine.notePCResult(err)
	if err != nil {
		return nil, err
	}

	tctx, cancel := context.WithCancel(context.Background())
	t := &Transport{
		id:     uuid.NewString(),
		router: r,
		pc:     pc,
		ctx:    tctx,
		cancel: cancel,
		arrived: map[string]chan *webrtc.TrackRemote{
			"audio": make(chan *webrtc.TrackRemote, 2),
			"video": make(chan *webrtc.TrackRemote, 2),
		},
	}
	t.bindCallbacks()
	log.Info().Str("module", "sfu").Str("transport", t.id).Msg("transport created")
	return t, nil
}

func (r *Router) addProducer(p *Producer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.producers[p.id] = p
}

func (r *Router) removeProducer(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.producers, id)
}

func (r *Router) producer(id string) (*Producer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.producers[id]
	return p, ok
}

func (r *Router) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	producers := make([]*Producer, 0, len(r.producers))
	for _, p := range r.producers {
		producers = append(producers, p)
	}
	r.mu.Unlock()
	for _, p := range producers {
		p.Close()
	}
}
