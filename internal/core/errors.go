package core

import (
	"errors"
	"fmt"
)

// Benign state races. Handlers recover from these locally (no-op or
// stale-state teardown), they never crash a connection.
var (
	ErrAlreadyQueued     = errors.New("already searching")
	ErrNoActiveSession   = errors.New("no active session")
	ErrTransportNotFound = errors.New("transport not found")
)

// ErrTransportCreate marks a collaborator failure during transport
// creation. Surfaced to the requesting peer, never retried here.
var ErrTransportCreate = errors.New("transport create failed")

// CollaboratorError wraps any failure surfaced by the SFU engine so
// callers can tell it apart from our own state errors.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("sfu %s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// WrapCollaborator returns nil if err is nil.
func WrapCollaborator(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CollaboratorError{Op: op, Err: err}
}
