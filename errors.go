package signalsim

import "errors"

var (
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrAlreadyStarted  = errors.New("already started")
	ErrSignalRunning   = errors.New("signal has not stopped")
	ErrShutdownTimeout = errors.New("shutdown grace period exceeded")
	ErrUnknownSignal   = errors.New("unknown signal")
)
