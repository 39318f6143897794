package app

import "math/rand"

// Selector picks one index among n eligible waiting candidates. It is
// only ever invoked with n > 0 and under the matchmaker mutex, so the
// backing random source needs no extra locking.
type Selector func(n int) int

// NewRandomSelector picks uniformly among eligible candidates. This is
// the default policy.
func NewRandomSelector(r *rand.Rand) Selector {
	return func(n int) int { return r.Intn(n) }
}

// FIFOSelector always picks the longest-waiting candidate.
// Deterministic, used by tests and available as a config policy.
func FIFOSelector(int) int { return 0 }
