package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type RoomID string

// NewRoomID generates a room identifier that is unique with overwhelming
// probability. Keeps the historical "room_<millis>_<suffix>" shape so
// clients and log greps stay compatible.
func NewRoomID(now time.Time) RoomID {
	suffix := uuid.NewString()[:8]
	return RoomID(fmt.Sprintf("room_%d_%s", now.UnixMilli(), suffix))
}

// Session is the paired relationship between exactly two peers.
type Session struct {
	Room      RoomID
	Mode      Mode
	Members   [2]PeerID
	CreatedAt time.Time
}

// PartnerOf returns the other member of the session.
func (s *Session) PartnerOf(pid PeerID) (PeerID, bool) {
	switch pid {
	case s.Members[0]:
		return s.Members[1], true
	case s.Members[1]:
		return s.Members[0], true
	}
	return "", false
}
