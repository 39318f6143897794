package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ruletka/internal/core"
	"github.com/dkeye/Ruletka/internal/domain"
)

// TransportManager tracks the send/recv transport handles each peer
// owns and guarantees their release on every exit path. Handles are
// created and closed outside its lock; the lock only protects the map.
type TransportManager struct {
	mu     sync.Mutex
	byPeer map[domain.PeerID]map[core.Direction]core.Transport
}

func NewTransportManager() *TransportManager {
	return &TransportManager{
		byPeer: make(map[domain.PeerID]map[core.Direction]core.Transport),
	}
}

// Create requests a fresh transport from the router and stores it for
// pid/dir. Creating a second handle for the same direction replaces the
// previous one, which is closed first so nothing leaks.
func (tm *TransportManager) Create(ctx context.Context, router core.Router, pid domain.PeerID, dir core.Direction) (core.Transport, error) {
	t, err := router.CreateTransport(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrTransportCreate, err)
	}

	tm.mu.Lock()
	dirs, ok := tm.byPeer[pid]
	if !ok {
		dirs = make(map[core.Direction]core.Transport)
		tm.byPeer[pid] = dirs
	}
	prev := dirs[dir]
	dirs[dir] = t
	tm.mu.Unlock()

	if prev != nil {
		log.Info().Str("module", "app.transport").Str("pid", string(pid)).Str("dir", string(dir)).Msg("replacing transport, closing previous")
		prev.Close()
	}
	log.Info().Str("module", "app.transport").Str("pid", string(pid)).Str("dir", string(dir)).Str("transport", t.ID()).Msg("transport created")
	return t, nil
}

func (tm *TransportManager) Get(pid domain.PeerID, dir core.Direction) (core.Transport, bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	t, ok := tm.byPeer[pid][dir]
	return t, ok
}

// CloseAll releases every handle pid owns. Already-closed handles are
// tolerated silently; Transport.Close is idempotent by contract.
func (tm *TransportManager) CloseAll(pid domain.PeerID) {
	tm.mu.Lock()
	dirs := tm.byPeer[pid]
	delete(tm.byPeer, pid)
	tm.mu.Unlock()

	for dir, t := range dirs {
		t.Close()
		log.Info().Str("module", "app.transport").Str("pid", string(pid)).Str("dir", string(dir)).Msg("transport closed")
	}
}
