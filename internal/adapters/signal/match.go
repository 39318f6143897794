package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ruletka/internal/core"
	"github.com/dkeye/Ruletka/internal/domain"
)

func (ctl *SignalWSController) handleRegister(pid domain.PeerID, c *wsSignalConn, data []byte) {
	var p struct {
		Type   string `json:"type"`
		PeerID string `json:"peerId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad register payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	if p.PeerID != "" {
		if err := ctl.Orch.Registry.SetExternalID(pid, p.PeerID); err != nil {
			ctl.sendError(c, "invalid peer id")
			return
		}
	}
	ctl.sendJSON(c, struct {
		Type   string `json:"type"`
		ID     string `json:"id"`
		PeerID string `json:"peerId,omitempty"`
	}{Type: "registered", ID: string(pid), PeerID: p.PeerID})
}

func (ctl *SignalWSController) handleSearch(pid domain.PeerID, c *wsSignalConn, data []byte) {
	var p struct {
		Type string `json:"type"`
		Mode string `json:"mode"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad search payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	mode, err := domain.ParseMode(p.Mode)
	if err != nil {
		ctl.sendError(c, "unknown mode")
		return
	}
	if ctl.Limiter != nil && !ctl.Limiter.Allow(pid) {
		ctl.sendError(c, "too many searches, slow down")
		return
	}

	log.Info().Str("module", "signal").Str("pid", string(pid)).Str("mode", p.Mode).Msg("search")
	if err := ctl.Orch.Match.Search(pid, mode); err != nil {
		// Duplicate search is benign: the peer is still queued, just
		// remind it that it is waiting.
		if errors.Is(err, core.ErrAlreadyQueued) {
			ctl.sendJSON(c, struct {
				Type string      `json:"type"`
				Mode domain.Mode `json:"mode"`
			}{Type: "waiting", Mode: mode})
			return
		}
		log.Error().Err(err).Str("module", "signal").Str("pid", string(pid)).Msg("search failed")
		ctl.sendError(c, "search failed")
	}
}

func (ctl *SignalWSController) handleCancel(pid domain.PeerID) {
	log.Info().Str("module", "signal").Str("pid", string(pid)).Msg("cancel search")
	ctl.Orch.Match.CancelSearch(pid)
}

func (ctl *SignalWSController) handleNext(pid domain.PeerID, c *wsSignalConn) {
	if ctl.Limiter != nil && !ctl.Limiter.Allow(pid) {
		ctl.sendError(c, "too many searches, slow down")
		return
	}
	log.Info().Str("module", "signal").Str("pid", string(pid)).Msg("next partner")
	if err := ctl.Orch.Match.Next(pid); err != nil {
		// Nothing to skip: not paired, not waiting. Benign race with a
		// partner leaving first.
		log.Debug().Err(err).Str("module", "signal").Str("pid", string(pid)).Msg("next with no session")
	}
}

func (ctl *SignalWSController) handleLeave(pid domain.PeerID, c *wsSignalConn) {
	log.Info().Str("module", "signal").Str("pid", string(pid)).Msg("leave")
	ctl.Orch.Match.Leave(pid)
	ctl.sendJSON(c, struct {
		Type string `json:"type"`
	}{Type: "left"})
}

func (ctl *SignalWSController) handleRelay(pid domain.PeerID, data []byte) {
	var p struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad signal payload")
		return
	}
	// Late signals after teardown are expected; RelaySignal drops them.
	_ = ctl.Orch.RelaySignal(pid, p.Payload)
}
