package signal

import (
	"strconv"
	"testing"
	"time"

	"github.com/dkeye/Ruletka/internal/domain"
)

func peerID(i int) domain.PeerID {
	return domain.PeerID("peer-" + strconv.Itoa(i))
}

func TestSearchRateLimiterBlocksBurst(t *testing.T) {
	t.Parallel()
	rl := NewSearchRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("a") {
			t.Fatalf("attempt %d blocked inside budget", i)
		}
	}
	if rl.Allow("a") {
		t.Error("attempt over budget allowed")
	}
	// Other peers have their own window.
	if !rl.Allow("b") {
		t.Error("independent peer blocked")
	}
}

func TestSearchRateLimiterWindowSlides(t *testing.T) {
	t.Parallel()
	rl := NewSearchRateLimiter(1, 10*time.Millisecond)

	if !rl.Allow("a") {
		t.Fatal("first attempt blocked")
	}
	if rl.Allow("a") {
		t.Fatal("second immediate attempt allowed")
	}
	time.Sleep(20 * time.Millisecond)
	if !rl.Allow("a") {
		t.Error("attempt after window blocked")
	}
}

func TestSearchRateLimiterForget(t *testing.T) {
	t.Parallel()
	rl := NewSearchRateLimiter(1, time.Minute)

	rl.Allow("a")
	rl.Forget("a")
	if !rl.Allow("a") {
		t.Error("forgotten peer still limited")
	}
}

// Disconnect churn must not leave history entries behind; readPump
// calls Forget in its teardown for exactly this reason.
func TestSearchRateLimiterForgetReleasesHistory(t *testing.T) {
	t.Parallel()
	rl := NewSearchRateLimiter(2, time.Minute)

	for i := 0; i < 50; i++ {
		pid := peerID(i)
		rl.Allow(pid)
		rl.Forget(pid)
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if got := len(rl.history); got != 0 {
		t.Errorf("history entries after churn: got %d, want 0", got)
	}
}
