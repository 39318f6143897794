// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const MaxExternalIDLen = 64

var (
	ErrBadMode           = errors.New("unknown session mode")
	ErrExternalIDTooLong = errors.New("external peer id too long")
)

// PeerID identifies one live connection. Opaque, unique while connected.
type PeerID string

// Mode is the kind of session a peer is searching for.
type Mode string

const (
	ModeAudio Mode = "audio"
	ModeVideo Mode = "video"
)

// ParseMode validates a client-supplied mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAudio, ModeVideo:
		return Mode(s), nil
	}
	return "", ErrBadMode
}

// Peer is the registry-facing meta for one connection. The optional
// ExternalID is a secondary P2P signaling identity announced by the
// client on register; it is the identity shown to a matched partner.
type Peer struct {
	ID         PeerID `json:"id"`
	ExternalID string `json:"external_id,omitempty"`
}

func NewPeer(id PeerID) *Peer {
	return &Peer{ID: id}
}

// PublicID is what a partner gets to see about this peer.
func (p *Peer) PublicID() string {
	if p.ExternalID != "" {
		return p.ExternalID
	}
	return string(p.ID)
}

func (p *Peer) SetExternalID(id string) error {
	if len(id) > MaxExternalIDLen {
		return ErrExternalIDTooLong
	}
	p.ExternalID = id
	return nil
}
