package droidshell

import "errors"

var (
	// ErrInvalidTransition is returned by a lifecycle call that is not legal
	// in the shell's current state.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")

	// ErrStorageUnavailable means the storage root cannot be read.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrQueueClosed is returned by an engine whose event queue was closed
	// before it saw QUIT.
	ErrQueueClosed = errors.New("event queue closed")

	// ErrEngineJoinTimeout is returned by Destroy when the engine did not exit
	// in time. Teardown has still completed.
	ErrEngineJoinTimeout = errors.New("engine did not exit in time")
)
