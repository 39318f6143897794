package app

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Ruletka/internal/core"
	"github.com/dkeye/Ruletka/internal/domain"
)

// fakeConn records every frame pushed to a peer.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// types decodes the envelope type of every received frame, in order.
func (c *fakeConn) types(t *testing.T) []string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		var env struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(f, &env); err != nil {
			t.Fatalf("bad frame %q: %v", f, err)
		}
		out = append(out, env.Type)
	}
	return out
}

// countType returns how many frames of the given envelope type arrived.
func (c *fakeConn) countType(t *testing.T, typ string) int {
	t.Helper()
	n := 0
	for _, got := range c.types(t) {
		if got == typ {
			n++
		}
	}
	return n
}

// lastOfType decodes the most recent frame of the given type into v.
func (c *fakeConn) lastOfType(t *testing.T, typ string, v any) bool {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.frames) - 1; i >= 0; i-- {
		var env struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(c.frames[i], &env); err != nil {
			t.Fatalf("bad frame %q: %v", c.frames[i], err)
		}
		if env.Type != typ {
			continue
		}
		if err := json.Unmarshal(c.frames[i], v); err != nil {
			t.Fatalf("decode %s frame: %v", typ, err)
		}
		return true
	}
	return false
}

// fakeTransport satisfies core.Transport and counts closes.
type fakeTransport struct {
	id string

	mu       sync.Mutex
	closes   int
	produced []string
}

func (ft *fakeTransport) ID() string               { return ft.id }
func (ft *fakeTransport) Info() core.TransportInfo { return core.TransportInfo{ID: ft.id} }

func (ft *fakeTransport) Connect(_ context.Context, remote core.RemoteParameters) (core.RemoteParameters, error) {
	return remote, nil
}

func (ft *fakeTransport) Produce(_ context.Context, kind string, _ core.RTPParameters) (core.Producer, error) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	id := ft.id + "-producer"
	ft.produced = append(ft.produced, id)
	return &fakeProducer{id: id, kind: kind}, nil
}

func (ft *fakeTransport) Consume(_ context.Context, producerID string, _ core.RTPCapabilities) (core.Consumer, error) {
	return &fakeConsumer{id: ft.id + "-consumer", producerID: producerID, kind: "video"}, nil
}

func (ft *fakeTransport) Close() {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.closes++
}

func (ft *fakeTransport) closeCount() int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.closes
}

type fakeProducer struct {
	id   string
	kind string
}

func (p *fakeProducer) ID() string   { return p.id }
func (p *fakeProducer) Kind() string { return p.kind }
func (p *fakeProducer) Close()       {}

type fakeConsumer struct {
	id         string
	producerID string
	kind       string
}

func (c *fakeConsumer) ID() string                     { return c.id }
func (c *fakeConsumer) ProducerID() string             { return c.producerID }
func (c *fakeConsumer) Kind() string                   { return c.kind }
func (c *fakeConsumer) Parameters() core.RTPParameters { return core.RTPParameters(`{}`) }
func (c *fakeConsumer) Close()                         {}

// fakeRouter hands out fakeTransports and remembers them by id.
type fakeRouter struct {
	mu      sync.Mutex
	next    int
	created []*fakeTransport
	fail    error
}

func (fr *fakeRouter) CreateTransport(context.Context) (core.Transport, error) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	if fr.fail != nil {
		return nil, fr.fail
	}
	fr.next++
	ft := &fakeTransport{id: string(rune('a'+fr.next-1)) + "-transport"}
	fr.created = append(fr.created, ft)
	return ft, nil
}

func (fr *fakeRouter) Close() {}

// newTestMatchmaker builds a matchmaker with deterministic FIFO
// selection and a controllable clock.
func newTestMatchmaker(t *testing.T) (*Matchmaker, *Registry, *TransportManager, *time.Time) {
	t.Helper()
	reg := NewRegistry()
	tm := NewTransportManager()
	m := NewMatchmaker(reg, tm, FIFOSelector, 30*time.Second)
	now := time.Unix(1700000000, 0)
	m.now = func() time.Time { return now }
	return m, reg, tm, &now
}

// registerPeer registers pid with a fresh fake connection.
func registerPeer(t *testing.T, reg *Registry, pid domain.PeerID) *fakeConn {
	t.Helper()
	conn := &fakeConn{}
	reg.Register(pid, conn, func() {})
	return conn
}
