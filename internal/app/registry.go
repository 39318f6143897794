package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ruletka/internal/core"
	"github.com/dkeye/Ruletka/internal/domain"
)

type peerEntry struct {
	Peer   *domain.Peer
	Signal core.SignalConnection
	Cancel context.CancelFunc
}

// Registry is the single source of truth for "is this peer still
// reachable". It exclusively owns peer entries for their lifetime;
// the pool and session table only hold references by id.
type Registry struct {
	mu    sync.RWMutex
	peers map[domain.PeerID]*peerEntry
}

func NewRegistry() *Registry {
	return &Registry{peers: make(map[domain.PeerID]*peerEntry)}
}

// Register stores a live connection. The caller must resolve id
// collisions first via Orchestrator.Connect's replace path; a colliding
// Register here simply overwrites the reference.
func (r *Registry) Register(pid domain.PeerID, conn core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[pid] = &peerEntry{
		Peer:   domain.NewPeer(pid),
		Signal: conn,
		Cancel: cancel,
	}
	log.Info().Str("module", "app.registry").Str("pid", string(pid)).Msg("peer registered")
}

// Unregister drops the entry and fires its cancel. It does not close
// the signal connection; the adapter owns that.
func (r *Registry) Unregister(pid domain.PeerID) {
	r.mu.Lock()
	e, ok := r.peers[pid]
	delete(r.peers, pid)
	r.mu.Unlock()
	if !ok {
		return
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("pid", string(pid)).Msg("peer unregistered")
}

// UnregisterIfCurrent removes pid only while conn is still the stored
// connection. A stale pump tearing down after its peer id was taken
// over by a newer connection must not evict the replacement.
func (r *Registry) UnregisterIfCurrent(pid domain.PeerID, conn core.SignalConnection) bool {
	r.mu.Lock()
	e, ok := r.peers[pid]
	if !ok || e.Signal != conn {
		r.mu.Unlock()
		return false
	}
	delete(r.peers, pid)
	r.mu.Unlock()
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("pid", string(pid)).Msg("peer unregistered")
	return true
}

func (r *Registry) Alive(pid domain.PeerID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.peers[pid]
	return ok
}

func (r *Registry) Signal(pid domain.PeerID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.peers[pid]
	if !ok || e.Signal == nil {
		return nil, false
	}
	return e.Signal, true
}

func (r *Registry) Peer(pid domain.PeerID) (*domain.Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.peers[pid]
	if !ok {
		return nil, false
	}
	return e.Peer, true
}

// SetExternalID records the secondary P2P signaling identity announced
// by the client on register.
func (r *Registry) SetExternalID(pid domain.PeerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.peers[pid]
	if !ok {
		return core.ErrNoActiveSession
	}
	return e.Peer.SetExternalID(id)
}

// PublicID resolves the identity shown to a matched partner.
func (r *Registry) PublicID(pid domain.PeerID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.peers[pid]; ok {
		return e.Peer.PublicID()
	}
	return string(pid)
}
