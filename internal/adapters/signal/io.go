package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ruletka/internal/domain"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *wsSignalConn) {
	period := ctl.PingPeriod
	if period <= 0 {
		period = 54 * time.Second
	}
	ping := time.NewTicker(period)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, pid domain.PeerID, c *wsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("pid", string(pid)).Msg("readPump closing")
		if ctl.Limiter != nil {
			ctl.Limiter.Forget(pid)
		}
		ctl.Orch.Disconnect(pid, c)
		c.Close()
	}()

	if ctl.ReadLimit > 0 {
		c.conn.SetReadLimit(ctl.ReadLimit)
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("pid", string(pid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("pid", string(pid)).Msg("readPump read error")
				return
			}
			ctl.handleMessage(ctx, pid, c, data)
		}
	}
}

func (ctl *SignalWSController) handleMessage(ctx context.Context, pid domain.PeerID, c *wsSignalConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case "register":
		ctl.handleRegister(pid, c, data)
	case "search":
		ctl.handleSearch(pid, c, data)
	case "cancel":
		ctl.handleCancel(pid)
	case "signal":
		ctl.handleRelay(pid, data)
	case "next":
		ctl.handleNext(pid, c)
	case "leave":
		ctl.handleLeave(pid, c)
	// Media ops can block on the collaborator (gathering, waiting for
	// the remote track), so they run off the read loop: a slow produce
	// must not stall the same peer's leave or signal messages.
	case "create_transport":
		go ctl.handleCreateTransport(ctx, pid, c, data)
	case "connect_transport":
		go ctl.handleConnectTransport(ctx, pid, c, data)
	case "produce":
		go ctl.handleProduce(ctx, pid, c, data)
	case "consume":
		go ctl.handleConsume(ctx, pid, c, data)
	case "ping":
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *SignalWSController) handlePing(c *wsSignalConn) {
	ctl.sendJSON(c, struct {
		Type string `json:"type"`
	}{Type: "pong"})
}

func (ctl *SignalWSController) sendJSON(c *wsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *SignalWSController) sendError(c *wsSignalConn, msg string) {
	ctl.sendJSON(c, struct {
		Type  string `json:"type"`
		Error string `json:"error"`
	}{Type: "error", Error: msg})
}
