package turn

import (
	"context"
	"errors"
)

// Sentinel errors returned by Manager and Session implementations.
var (
	// ErrSessionNotFound is returned by GetSession for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTurnActive is returned by Submit while a previous turn on the same
	// session has not reached its terminal event.
	ErrTurnActive = errors.New("turn already active")
)

// SessionOptions carries the per-session overrides applied when a session
// is created.
type SessionOptions struct {
	Model      string
	Approval   ApprovalPolicy
	Sandbox    SandboxPolicy
	WorkingDir string
}

// Session is the capability surface a turn is driven through: submit a
// request, then pull events until a terminal event tagged with the
// request's id arrives.
//
// NextEvent blocks until the session emits its next event or ctx is done.
// The stream multiplexes all turns of the session; callers must discard
// events whose ID differs from the request they submitted.
type Session interface {
	// ID returns the session's canonical identifier.
	ID() string
	// Submit starts a turn. It returns without waiting for the turn to run.
	Submit(ctx context.Context, req Request) error
	// NextEvent returns the next event from the session's stream.
	NextEvent(ctx context.Context) (Event, error)
}

// Manager resolves and creates sessions. Implementations own the session
// lifecycle; the adapter only ever holds opaque ids between calls.
type Manager interface {
	// StartSession creates a fresh session configured by opts.
	StartSession(ctx context.Context, opts SessionOptions) (Session, error)
	// GetSession resolves a previously created session by id. Unknown ids
	// yield ErrSessionNotFound.
	GetSession(ctx context.Context, id string) (Session, error)
}
