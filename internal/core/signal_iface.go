package core

// Frame is a raw signaling payload ready for the wire.
type Frame []byte

// SignalConnection abstracts the system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend never blocks; it fails fast on backpressure or a closed
	// connection so no table lock is ever held on slow consumers.
	TrySend(Frame) error
	Close()
}
