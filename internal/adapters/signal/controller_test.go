package signal

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dkeye/Ruletka/internal/app"
	"github.com/dkeye/Ruletka/internal/core"
)

// parkingTransport blocks Produce until its context is cancelled,
// standing in for a collaborator waiting on a remote track.
type parkingTransport struct {
	id string
}

func (pt *parkingTransport) ID() string               { return pt.id }
func (pt *parkingTransport) Info() core.TransportInfo { return core.TransportInfo{ID: pt.id} }

func (pt *parkingTransport) Connect(_ context.Context, remote core.RemoteParameters) (core.RemoteParameters, error) {
	return remote, nil
}

func (pt *parkingTransport) Produce(ctx context.Context, _ string, _ core.RTPParameters) (core.Producer, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (pt *parkingTransport) Consume(context.Context, string, core.RTPCapabilities) (core.Consumer, error) {
	return nil, errors.New("not implemented")
}

func (pt *parkingTransport) Close() {}

type parkingRouter struct{}

func (parkingRouter) CreateTransport(context.Context) (core.Transport, error) {
	return &parkingTransport{id: "t1"}, nil
}

func (parkingRouter) Close() {}

func newTestController(t *testing.T) (*SignalWSController, *wsSignalConn) {
	t.Helper()
	reg := app.NewRegistry()
	tm := app.NewTransportManager()
	match := app.NewMatchmaker(reg, tm, app.FIFOSelector, time.Minute)
	orch := &app.Orchestrator{
		Registry:   reg,
		Match:      match,
		Transports: tm,
		Router:     parkingRouter{},
	}
	conn := &wsSignalConn{send: make(chan core.Frame, 32)}
	orch.Connect("a", conn, func() {})
	return &SignalWSController{Orch: orch}, conn
}

// awaitFrame receives the next outbound frame and returns its envelope
// type.
func awaitFrame(t *testing.T, conn *wsSignalConn) string {
	t.Helper()
	select {
	case f := <-conn.send:
		var env struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(f, &env); err != nil {
			t.Fatalf("bad frame %q: %v", f, err)
		}
		return env.Type
	case <-time.After(2 * time.Second):
		t.Fatal("no frame arrived")
		return ""
	}
}

func TestMediaOpsDoNotStallDispatch(t *testing.T) {
	t.Parallel()
	ctl, conn := newTestController(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctl.handleMessage(ctx, "a", conn, []byte(`{"type":"create_transport","direction":"send"}`))
	if got := awaitFrame(t, conn); got != "transport_created" {
		t.Fatalf("create reply: got %q, want transport_created", got)
	}

	// The produce parks inside the collaborator. A ping right behind
	// it must still be answered promptly.
	ctl.handleMessage(ctx, "a", conn, []byte(`{"type":"produce","kind":"video","rtpParameters":{}}`))
	ctl.handleMessage(ctx, "a", conn, []byte(`{"type":"ping"}`))
	if got := awaitFrame(t, conn); got != "pong" {
		t.Fatalf("frame behind a parked produce: got %q, want pong", got)
	}

	// Unparking the produce surfaces its failure as an error reply.
	cancel()
	if got := awaitFrame(t, conn); got != "error" {
		t.Errorf("parked produce teardown reply: got %q, want error", got)
	}
}
