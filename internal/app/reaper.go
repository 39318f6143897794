package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Reaper runs the periodic expiry sweep: stale waiting entries and
// sessions whose members are both gone. Catches missed disconnect
// events; the common path is the explicit teardown.
type Reaper struct {
	Match    *Matchmaker
	Interval time.Duration
}

func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	log.Info().Str("module", "app.reaper").Dur("interval", r.Interval).Msg("reaper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.reaper").Msg("reaper stopped")
			return
		case now := <-ticker.C:
			r.Match.Sweep(now)
		}
	}
}
