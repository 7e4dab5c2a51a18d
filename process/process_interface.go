package process

import (
	"yclass/process/memory_map"
)

// MemoryReader reads exactly len(buf) bytes at addr.
type MemoryReader interface {
	Read(addr ProcessMemoryAddress, buf []byte) error
}

// MemoryWriter writes all of data at addr.
type MemoryWriter interface {
	Write(addr ProcessMemoryAddress, data []byte) error
}

// MemoryReadWriter combines MemoryReader and MemoryWriter.
type MemoryReadWriter interface {
	MemoryReader
	MemoryWriter
}

// Handle is an open OS handle to a foreign process, as produced by a native backend.
type Handle interface {
	// PID returns the process id the handle refers to
	PID() ProcessID

	// Name returns the display name of the process
	Name() (string, error)

	// Regions enumerates the mapped memory regions of the process
	Regions() ([]memory_map.Region, error)

	// ReadMemory fills buf from the process memory at addr
	ReadMemory(addr ProcessMemoryAddress, buf []byte) error

	// WriteMemory writes data to the process memory at addr
	WriteMemory(addr ProcessMemoryAddress, data []byte) error

	// Close releases the handle
	Close() error
}

// Opener opens a native handle to the process with the given id.
type Opener func(pid ProcessID) (Handle, error)
