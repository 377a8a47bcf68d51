package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionStopped indicates the session was cancelled via Stop or a
	// context. It marks expected cancellation, not a failure.
	ErrSessionStopped = errors.New("session stopped")
	// ErrSessionEnded indicates the engine reached its terminal state and
	// cannot run again.
	ErrSessionEnded = errors.New("session already ended")
	// ErrDirectorUnavailable indicates the director failed its retry and
	// the session cannot proceed.
	ErrDirectorUnavailable = errors.New("director unavailable")
	// ErrNoPendingTurn indicates an external submission arrived for an
	// actor the engine is not currently waiting on.
	ErrNoPendingTurn = errors.New("no pending external turn")
)

// ActorInvocationError wraps a single actor's turn failure. It is absorbed
// by the engine: the turn is skipped, a system note records why, and the
// cycle continues.
type ActorInvocationError struct {
	ActorID string
	Err     error
}

func (e *ActorInvocationError) Error() string {
	return fmt.Sprintf("actor %s invocation failed: %v", e.ActorID, e.Err)
}

func (e *ActorInvocationError) Unwrap() error {
	return e.Err
}
