package process

import (
	"fmt"
	"unsafe"
)

// ProcessMemoryAddress represents a memory address within a process.
// It is host pointer width; foreign processes with a different width are not supported.
type ProcessMemoryAddress uintptr

func (pma ProcessMemoryAddress) ToString() string {
	return fmt.Sprintf("0x%X", uintptr(pma))
}

// ProcessMemorySize represents a size of memory region
type ProcessMemorySize uint

func (pms ProcessMemorySize) ToString() string {
	return fmt.Sprintf("%d bytes", uint(pms))
}

// PointerSize is the width of a pointer in the target, which is always the host width.
const PointerSize = ProcessMemorySize(unsafe.Sizeof(uintptr(0)))
