package domain

import (
	"strings"
	"testing"
	"time"
)

func TestNewRoomIDShapeAndUniqueness(t *testing.T) {
	t.Parallel()
	now := time.Unix(1700000000, 0)

	seen := make(map[RoomID]bool)
	for i := 0; i < 100; i++ {
		id := NewRoomID(now)
		if !strings.HasPrefix(string(id), "room_1700000000000_") {
			t.Fatalf("room id shape: got %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate room id %q", id)
		}
		seen[id] = true
	}
}

func TestSessionPartnerOf(t *testing.T) {
	t.Parallel()
	s := &Session{Members: [2]PeerID{"a", "b"}}

	if p, ok := s.PartnerOf("a"); !ok || p != "b" {
		t.Errorf("PartnerOf(a): got %q/%v, want b/true", p, ok)
	}
	if p, ok := s.PartnerOf("b"); !ok || p != "a" {
		t.Errorf("PartnerOf(b): got %q/%v, want a/true", p, ok)
	}
	if _, ok := s.PartnerOf("stranger"); ok {
		t.Error("PartnerOf(stranger) must not resolve")
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()
	for _, valid := range []string{"audio", "video"} {
		if _, err := ParseMode(valid); err != nil {
			t.Errorf("ParseMode(%q): %v", valid, err)
		}
	}
	if _, err := ParseMode("text"); err == nil {
		t.Error("ParseMode(text) should fail")
	}
}

func TestPeerPublicID(t *testing.T) {
	t.Parallel()
	p := NewPeer("pid-1")
	if got := p.PublicID(); got != "pid-1" {
		t.Errorf("PublicID without external id: got %q", got)
	}
	if err := p.SetExternalID("peerjs-77"); err != nil {
		t.Fatalf("SetExternalID: %v", err)
	}
	if got := p.PublicID(); got != "peerjs-77" {
		t.Errorf("PublicID with external id: got %q", got)
	}
	if err := p.SetExternalID(strings.Repeat("x", MaxExternalIDLen+1)); err == nil {
		t.Error("overlong external id accepted")
	}
}
