package process_manager

import (
	"errors"
	"fmt"

	"yclass/extension"
	"yclass/process"
)

var (
	// ErrNotAttached is returned by operations that need an attached process
	ErrNotAttached = errors.New("not attached to a process")

	// ErrNativeUnsupported is returned when attaching natively on a platform without a native backend
	ErrNativeUnsupported = errors.New("native process access is not supported on this platform")
)

// AttachError reports a failed attach. The manager is left detached.
type AttachError struct {
	PID  process.ProcessID
	Mode Mode
	Code uint32 // status code from the extension, zero in native mode
	Err  error
}

func (e *AttachError) Error() string {
	if e.Mode == ModeExtension && e.Code != 0 {
		return fmt.Sprintf("attach to %d rejected by extension: error code %d", e.PID, e.Code)
	}
	if e.Mode == ModeExtension {
		return fmt.Sprintf("attach to %d through extension: %v", e.PID, e.Err)
	}
	return fmt.Sprintf("process open %d: %v", e.PID, e.Err)
}

func (e *AttachError) Unwrap() error {
	return e.Err
}

func newAttachError(pid process.ProcessID, mode Mode, err error) *AttachError {
	ae := &AttachError{PID: pid, Mode: mode, Err: err}

	var status *extension.StatusError
	if errors.As(err, &status) {
		ae.Code = status.Code
	}

	return ae
}

// MemoryAccessError reports a failed read or write
type MemoryAccessError struct {
	Op      string // "read" or "write"
	Address process.ProcessMemoryAddress
	Length  int
	Code    uint32 // status code from the extension, zero in native mode
	Err     error
}

func (e *MemoryAccessError) Error() string {
	return fmt.Sprintf("%s %d bytes at %s: %v", e.Op, e.Length, e.Address.ToString(), e.Err)
}

func (e *MemoryAccessError) Unwrap() error {
	return e.Err
}

func newAccessError(op string, addr process.ProcessMemoryAddress, length int, err error) *MemoryAccessError {
	me := &MemoryAccessError{Op: op, Address: addr, Length: length, Err: err}
	var status *extension.StatusError
	if errors.As(err, &status) {
		me.Code = status.Code
	}
	return me
}

// NameLookupError reports that the OS could not name the attached process
type NameLookupError struct {
	PID process.ProcessID
	Err error
}

func (e *NameLookupError) Error() string {
	return fmt.Sprintf("name lookup for %d: %v", e.PID, e.Err)
}

func (e *NameLookupError) Unwrap() error {
	return e.Err
}
