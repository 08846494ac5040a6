package game

import (
	"errors"
	"fmt"
)

// Sentinel errors for lifecycle misuse.
var (
	// ErrGameTerminal is returned when a decision is requested after the
	// game reached a terminal status.
	ErrGameTerminal = errors.New("game already in a terminal status")

	// ErrNotInitialized is returned when a decision is requested before
	// the policy was initialized from constraints and statistics.
	ErrNotInitialized = errors.New("policy not initialized")
)

// ModelInfeasibleError reports that the published statistics cannot be
// realized exactly: frequencies or correlations are missing, out of range, or
// jointly inconsistent. Callers degrade to a frequency-only independence
// model and keep playing; this error never aborts a game.
type ModelInfeasibleError struct {
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *ModelInfeasibleError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("attribute model infeasible: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("attribute model infeasible: %s", e.Reason)
}

// Unwrap returns the underlying cause error.
func (e *ModelInfeasibleError) Unwrap() error {
	return e.Cause
}

// NewModelInfeasibleError creates a new ModelInfeasibleError.
func NewModelInfeasibleError(reason string, cause error) *ModelInfeasibleError {
	return &ModelInfeasibleError{Reason: reason, Cause: cause}
}

// ProtocolError reports a violation of the game protocol: a person index out
// of sequence, server-reported counts diverging from local bookkeeping, or a
// decision requested after a terminal status. A ProtocolError is a hard abort
// of that game; it is never retried internally. The driver decides whether to
// start a fresh game.
type ProtocolError struct {
	GameID string
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("protocol error: %s", e.Reason)
	if e.GameID != "" {
		msg = fmt.Sprintf("protocol error [game_id=%s]: %s", e.GameID, e.Reason)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause error.
func (e *ProtocolError) Unwrap() error {
	return e.Cause
}

// NewProtocolError creates a new ProtocolError.
func NewProtocolError(gameID, reason string) *ProtocolError {
	return &ProtocolError{GameID: gameID, Reason: reason}
}

// NewProtocolErrorf creates a new ProtocolError with a formatted reason.
func NewProtocolErrorf(gameID, format string, args ...any) *ProtocolError {
	return &ProtocolError{GameID: gameID, Reason: fmt.Sprintf(format, args...)}
}
