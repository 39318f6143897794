package signal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ruletka/internal/core"
	"github.com/dkeye/Ruletka/internal/domain"
)

// produceWait bounds how long a produce request waits for the remote
// track to arrive on the send transport.
const produceWait = 15 * time.Second

func (ctl *SignalWSController) handleCreateTransport(ctx context.Context, pid domain.PeerID, c *wsSignalConn, data []byte) {
	var p struct {
		Type      string `json:"type"`
		Direction string `json:"direction"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad create_transport payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	dir, ok := core.ParseDirection(p.Direction)
	if !ok {
		ctl.sendError(c, "unknown direction")
		return
	}

	info, err := ctl.Orch.CreateTransport(ctx, pid, dir)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("pid", string(pid)).Msg("create transport")
		ctl.sendError(c, "transport create failed")
		return
	}
	ctl.sendJSON(c, struct {
		Type      string             `json:"type"`
		Direction core.Direction     `json:"direction"`
		Transport core.TransportInfo `json:"transport"`
	}{Type: "transport_created", Direction: dir, Transport: info})
}

func (ctl *SignalWSController) handleConnectTransport(ctx context.Context, pid domain.PeerID, c *wsSignalConn, data []byte) {
	var p struct {
		Type      string          `json:"type"`
		Direction string          `json:"direction"`
		Remote    json.RawMessage `json:"remote"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad connect_transport payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	dir, ok := core.ParseDirection(p.Direction)
	if !ok {
		ctl.sendError(c, "unknown direction")
		return
	}

	answer, err := ctl.Orch.ConnectTransport(ctx, pid, dir, core.RemoteParameters(p.Remote))
	if err != nil {
		if errors.Is(err, core.ErrTransportNotFound) {
			// Late connect after teardown; nothing to crash over.
			log.Debug().Str("module", "signal").Str("pid", string(pid)).Msg("connect on missing transport")
			return
		}
		log.Error().Err(err).Str("module", "signal").Str("pid", string(pid)).Msg("connect transport")
		ctl.sendError(c, "transport connect failed")
		return
	}
	ctl.sendJSON(c, struct {
		Type      string          `json:"type"`
		Direction core.Direction  `json:"direction"`
		Answer    json.RawMessage `json:"answer"`
	}{Type: "transport_connected", Direction: dir, Answer: json.RawMessage(answer)})
}

func (ctl *SignalWSController) handleProduce(ctx context.Context, pid domain.PeerID, c *wsSignalConn, data []byte) {
	var p struct {
		Type          string          `json:"type"`
		Kind          string          `json:"kind"`
		RTPParameters json.RawMessage `json:"rtpParameters"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad produce payload")
		ctl.sendError(c, "bad_payload")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, produceWait)
	defer cancel()
	producer, err := ctl.Orch.Produce(ctx, pid, p.Kind, core.RTPParameters(p.RTPParameters))
	if err != nil {
		if errors.Is(err, core.ErrTransportNotFound) {
			log.Debug().Str("module", "signal").Str("pid", string(pid)).Msg("produce without send transport")
			return
		}
		log.Error().Err(err).Str("module", "signal").Str("pid", string(pid)).Msg("produce")
		ctl.sendError(c, "produce failed")
		return
	}
	ctl.sendJSON(c, struct {
		Type       string `json:"type"`
		ProducerID string `json:"producerId"`
		Kind       string `json:"kind"`
	}{Type: "produced", ProducerID: producer.ID(), Kind: producer.Kind()})
}

func (ctl *SignalWSController) handleConsume(ctx context.Context, pid domain.PeerID, c *wsSignalConn, data []byte) {
	var p struct {
		Type            string          `json:"type"`
		ProducerID      string          `json:"producerId"`
		RTPCapabilities json.RawMessage `json:"rtpCapabilities"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad consume payload")
		ctl.sendError(c, "bad_payload")
		return
	}

	consumer, err := ctl.Orch.Consume(ctx, pid, p.ProducerID, core.RTPCapabilities(p.RTPCapabilities))
	if err != nil {
		if errors.Is(err, core.ErrTransportNotFound) {
			log.Debug().Str("module", "signal").Str("pid", string(pid)).Msg("consume without recv transport")
			return
		}
		log.Error().Err(err).Str("module", "signal").Str("pid", string(pid)).Msg("consume")
		ctl.sendError(c, "consume failed")
		return
	}
	ctl.sendJSON(c, struct {
		Type       string          `json:"type"`
		ConsumerID string          `json:"consumerId"`
		ProducerID string          `json:"producerId"`
		Kind       string          `json:"kind"`
		Parameters json.RawMessage `json:"parameters"`
	}{
		Type:       "consumed",
		ConsumerID: consumer.ID(),
		ProducerID: consumer.ProducerID(),
		Kind:       consumer.Kind(),
		Parameters: json.RawMessage(consumer.Parameters()),
	})
}
