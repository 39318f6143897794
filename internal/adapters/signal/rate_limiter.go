package signal

import (
	"sync"
	"time"

	"github.com/dkeye/Ruletka/internal/domain"
)

// SearchRateLimiter caps how often a peer may trigger a new search or
// skip, sliding window per peer id.
type SearchRateLimiter struct {
	mu       sync.Mutex
	history  map[domain.PeerID][]time.Time
	limit    int
	interval time.Duration
}

func NewSearchRateLimiter(limit int, interval time.Duration) *SearchRateLimiter {
	return &SearchRateLimiter{
		history:  make(map[domain.PeerID][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *SearchRateLimiter) Allow(pid domain.PeerID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[pid]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[pid] = fresh
		return false
	}

	rl.history[pid] = append(fresh, now)
	return true
}

// Forget drops a peer's window, e.g. when it disconnects.
func (rl *SearchRateLimiter) Forget(pid domain.PeerID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.history, pid)
}
