package models

import "errors"

// Domain error taxonomy. Callers classify failures with errors.Is; everything
// else is wrapped and propagated as-is.
var (
	// ErrNotFound signals that a channel, message or guild no longer exists.
	// Always recovered locally by deleting the stale panel binding.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyInState signals a no-op transition (e.g. pausing an already
	// paused session). Reported to the requester, never logged as an error.
	ErrAlreadyInState = errors.New("already in that state")

	// ErrAlreadyBound signals a binding insert for a guild that already has
	// one. Callers must delete-then-create, never upsert.
	ErrAlreadyBound = errors.New("guild already has a panel binding")

	// ErrConnectionFailure signals a failed voice join or node connection.
	ErrConnectionFailure = errors.New("connection failure")

	// ErrAlreadyConnecting rejects a second concurrent join attempt for the
	// same guild while one is in flight.
	ErrAlreadyConnecting = errors.New("a join attempt is already in progress")

	// ErrUnsupported signals input the player does not handle, e.g. playlists.
	ErrUnsupported = errors.New("unsupported input")
)
