package app

import (
	"time"

	"github.com/dkeye/Ruletka/internal/domain"
)

type waitingEntry struct {
	pid   domain.PeerID
	mode  domain.Mode
	since time.Time
}

// waitingPool holds peers currently searching, partitioned by mode and
// ordered by enqueue time. Not safe for concurrent use on its own; the
// matchmaker mutex guards every call.
type waitingPool struct {
	byPeer map[domain.PeerID]*waitingEntry
	order  map[domain.Mode][]*waitingEntry
}

func newWaitingPool() *waitingPool {
	return &waitingPool{
		byPeer: make(map[domain.PeerID]*waitingEntry),
		order:  make(map[domain.Mode][]*waitingEntry),
	}
}

func (p *waitingPool) get(pid domain.PeerID) (*waitingEntry, bool) {
	e, ok := p.byPeer[pid]
	return e, ok
}

func (p *waitingPool) add(pid domain.PeerID, mode domain.Mode, now time.Time) {
	e := &waitingEntry{pid: pid, mode: mode, since: now}
	p.byPeer[pid] = e
	p.order[mode] = append(p.order[mode], e)
}

// remove is idempotent; absent peers are a no-op.
func (p *waitingPool) remove(pid domain.PeerID) bool {
	e, ok := p.byPeer[pid]
	if !ok {
		return false
	}
	delete(p.byPeer, pid)
	queue := p.order[e.mode]
	for i, cand := range queue {
		if cand.pid == pid {
			p.order[e.mode] = append(queue[:i], queue[i+1:]...)
			break
		}
	}
	return true
}

// entries returns the queue for a mode in enqueue order.
func (p *waitingPool) entries(mode domain.Mode) []*waitingEntry {
	return p.order[mode]
}

// olderThan collects peers enqueued before the cutoff, across modes.
func (p *waitingPool) olderThan(cutoff time.Time) []domain.PeerID {
	var out []domain.PeerID
	for _, queue := range p.order {
		for _, e := range queue {
			if e.since.Before(cutoff) {
				out = append(out, e.pid)
			}
		}
	}
	return out
}

func (p *waitingPool) len() int { return len(p.byPeer) }
