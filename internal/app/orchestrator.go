package app

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ruletka/internal/core"
	"github.com/dkeye/Ruletka/internal/domain"
	"github.com/dkeye/Ruletka/internal/metrics"
)

// Orchestrator wires the registry, matchmaker, transport manager and
// the SFU router behind the operations the signal adapter invokes.
type Orchestrator struct {
	Registry   *Registry
	Match      *Matchmaker
	Transports *TransportManager
	Router     core.Router
}

// Connect registers a new live connection. A colliding peer id means a
// stale duplicate: the previous connection is replaced — its session
// left, its transports closed, its pumps cancelled — before the new one
// is stored.
func (o *Orchestrator) Connect(pid domain.PeerID, conn core.SignalConnection, cancel context.CancelFunc) {
	if o.Registry.Alive(pid) {
		log.Warn().Str("module", "app.orch").Str("pid", string(pid)).Msg("duplicate peer id, replacing previous connection")
		o.replace(pid)
	}
	o.Registry.Register(pid, conn, cancel)
}

// replace is the formalized teardown path for a stale duplicate id.
func (o *Orchestrator) replace(pid domain.PeerID) {
	o.Match.Leave(pid)
	if old, ok := o.Registry.Signal(pid); ok {
		old.Close()
	}
	o.Registry.Unregister(pid)
}

// Disconnect is the implicit teardown fired when the signal transport
// drops. Idempotent; it may race an explicit leave. conn identifies
// which connection died, so a replaced connection's late teardown is
// a no-op.
func (o *Orchestrator) Disconnect(pid domain.PeerID, conn core.SignalConnection) {
	o.Match.Disconnect(pid, conn)
}

// RelaySignal forwards an opaque signaling payload to pid's recorded
// partner and no one else. The session table lookup is the authority;
// payloads arriving after teardown are dropped, not errored, since late
// signals are expected under churn.
func (o *Orchestrator) RelaySignal(pid domain.PeerID, payload json.RawMessage) error {
	partner, ok := o.Match.PartnerOf(pid)
	if !ok {
		metrics.SignalsDroppedTotal.Inc()
		log.Debug().Str("module", "app.orch").Str("pid", string(pid)).Msg("signal without active session, dropped")
		return core.ErrNoActiveSession
	}
	o.Match.notify(partner, signalMsg{
		Type:    "signal",
		From:    o.Registry.PublicID(pid),
		Payload: payload,
	})
	metrics.SignalsRelayedTotal.Inc()
	return nil
}
