package app

import (
	"encoding/json"

	"github.com/dkeye/Ruletka/internal/domain"
)

// Outbound notification payloads pushed by the matchmaker and reaper.
// Request/reply shapes live with the signal adapter; these are the ones
// that can arrive unsolicited.

type waitingMsg struct {
	Type string      `json:"type"`
	Mode domain.Mode `json:"mode"`
}

type pairedMsg struct {
	Type      string        `json:"type"`
	Room      domain.RoomID `json:"room"`
	Partner   string        `json:"partner"`
	Mode      domain.Mode   `json:"mode"`
	Initiator bool          `json:"initiator"`
}

type partnerLeftMsg struct {
	Type string        `json:"type"`
	Room domain.RoomID `json:"room"`
}

type searchCancelledMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type signalMsg struct {
	Type    string          `json:"type"`
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

type newProducerMsg struct {
	Type       string `json:"type"`
	ProducerID string `json:"producerId"`
	Kind       string `json:"kind"`
}

const (
	cancelReasonRequested = "cancelled"
	cancelReasonTimeout   = "timeout"
)
