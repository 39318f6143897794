package core

import (
	"context"
	"encoding/json"
)

// Direction of one media path of one peer.
type Direction string

const (
	DirectionSend Direction = "send"
	DirectionRecv Direction = "recv"
)

// ParseDirection validates a client-supplied direction string.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case DirectionSend, DirectionRecv:
		return Direction(s), true
	}
	return "", false
}

// Opaque parameter blobs. The coordinator relays them verbatim between
// the client and the media engine and never inspects their contents.
type (
	RemoteParameters json.RawMessage
	RTPParameters    json.RawMessage
	RTPCapabilities  json.RawMessage
)

// MediaEngine is the SFU collaborator boundary.
type MediaEngine interface {
	CreateRouter(ctx context.Context) (Router, error)
	// Fatal fires on unrecoverable engine failure (media worker death).
	// The process must then stop accepting sessions and shut down.
	Fatal() <-chan error
	Close()
}

// Router produces transports sharing one media routing domain.
type Router interface {
	CreateTransport(ctx context.Context) (Transport, error)
	Close()
}

// TransportInfo is the connection bootstrap handed back to the client
// after CreateTransport.
type TransportInfo struct {
	ID         string   `json:"id"`
	ICEServers []string `json:"iceServers,omitempty"`
}

// Transport is one direction of one peer's media path.
// Close is idempotent; a second Close is a no-op.
type Transport interface {
	ID() string
	Info() TransportInfo
	// Connect applies the client's remote parameters and returns the
	// engine's answer verbatim.
	Connect(ctx context.Context, remote RemoteParameters) (RemoteParameters, error)
	Produce(ctx context.Context, kind string, params RTPParameters) (Producer, error)
	Consume(ctx context.Context, producerID string, caps RTPCapabilities) (Consumer, error)
	Close()
}

// Producer is a server-side handle for media published by a peer.
type Producer interface {
	ID() string
	Kind() string
	Close()
}

// Consumer is a server-side handle for media forwarded to a peer.
type Consumer interface {
	ID() string
	ProducerID() string
	Kind() string
	Parameters() RTPParameters
	Close()
}
