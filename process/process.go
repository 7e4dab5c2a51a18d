// Package process provides the shared types used by the native backends and the process manager.
package process

import "errors"

var (
	// ErrProcessNotOpen is returned when an operation requiring an open process is attempted
	// before the process has been successfully opened or after it has been closed.
	ErrProcessNotOpen = errors.New("process not open")

	// ErrProcessNotFound is returned when no process with the requested id exists, or it already exited.
	ErrProcessNotFound = errors.New("process not found")

	// ErrAccessDenied is returned when the OS refuses to grant memory access to the process.
	ErrAccessDenied = errors.New("access denied")

	// ErrPartialTransfer is returned when a read or write moved fewer bytes than requested.
	ErrPartialTransfer = errors.New("partial transfer")

	// ErrInvalidPointer is returned when a pointer path dereferences a null pointer.
	ErrInvalidPointer = errors.New("invalid pointer read")
)
