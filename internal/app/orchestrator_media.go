package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ruletka/internal/core"
	"github.com/dkeye/Ruletka/internal/domain"
)

// Media operations delegate to the SFU collaborator. None of them runs
// under a table lock: the collaborator may be slow, and a failure is
// returned on the triggering request only, leaving the peer's session
// state untouched so the client may retry.

func (o *Orchestrator) CreateTransport(ctx context.Context, pid domain.PeerID, dir core.Direction) (core.TransportInfo, error) {
	t, err := o.Transports.Create(ctx, o.Router, pid, dir)
	if err != nil {
		return core.TransportInfo{}, err
	}
	return t.Info(), nil
}

func (o *Orchestrator) ConnectTransport(ctx context.Context, pid domain.PeerID, dir core.Direction, remote core.RemoteParameters) (core.RemoteParameters, error) {
	t, ok := o.Transports.Get(pid, dir)
	if !ok {
		return nil, core.ErrTransportNotFound
	}
	answer, err := t.Connect(ctx, remote)
	if err != nil {
		return nil, core.WrapCollaborator("connect", err)
	}
	return answer, nil
}

// Produce publishes media on pid's send transport and notifies the
// current partner that a new producer is available.
func (o *Orchestrator) Produce(ctx context.Context, pid domain.PeerID, kind string, params core.RTPParameters) (core.Producer, error) {
	t, ok := o.Transports.Get(pid, core.DirectionSend)
	if !ok {
		return nil, core.ErrTransportNotFound
	}
	p, err := t.Produce(ctx, kind, params)
	if err != nil {
		return nil, core.WrapCollaborator("produce", err)
	}
	log.Info().Str("module", "app.orch").Str("pid", string(pid)).Str("producer", p.ID()).Str("kind", p.Kind()).Msg("producer created")

	// Same authorization as the signaling relay: only the recorded
	// partner learns about the producer.
	if partner, ok := o.Match.PartnerOf(pid); ok {
		o.Match.notify(partner, newProducerMsg{
			Type:       "new_producer",
			ProducerID: p.ID(),
			Kind:       p.Kind(),
		})
	}
	return p, nil
}

func (o *Orchestrator) Consume(ctx context.Context, pid domain.PeerID, producerID string, caps core.RTPCapabilities) (core.Consumer, error) {
	t, ok := o.Transports.Get(pid, core.DirectionRecv)
	if !ok {
		return nil, core.ErrTransportNotFound
	}
	c, err := t.Consume(ctx, producerID, caps)
	if err != nil {
		return nil, core.WrapCollaborator("consume", err)
	}
	log.Info().Str("module", "app.orch").Str("pid", string(pid)).Str("consumer", c.ID()).Str("producer", producerID).Msg("consumer created")
	return c, nil
}
