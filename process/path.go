package process

import (
	"fmt"
	"unsafe"
)

// ReadPath reads a value of type T at the end of a pointer path.
// It starts at base, adds the first offset, reads a pointer, adds the next offset, reads a pointer, etc.
// The last offset is added to the final pointer, and then T is read from that address.
// If offsets is empty, it reads T from base.
func ReadPath[T any](mem MemoryReader, base ProcessMemoryAddress, offsets ...ProcessMemorySize) (T, error) {
	var zero T

	addr, err := ResolvePath(mem, base, offsets...)
	if err != nil {
		return zero, err
	}

	val, err := Read[T](mem, addr)
	if err != nil {
		return zero, fmt.Errorf("failed to read final value at %s: %w", addr.ToString(), err)
	}

	return val, nil
}

// ResolvePath follows the pointer path like ReadPath and returns the final address without reading it.
func ResolvePath(mem MemoryReader, base ProcessMemoryAddress, offsets ...ProcessMemorySize) (ProcessMemoryAddress, error) {
	currentAddr := base

	// Every offset but the last one leads to a pointer
	for i := 0; i < len(offsets)-1; i++ {
		ptrAddr := currentAddr + ProcessMemoryAddress(offsets[i])

		ptrVal, err := Read[uintptr](mem, ptrAddr)
		if err != nil {
			return 0, fmt.Errorf("failed to read pointer at offset %d (addr %s): %w", i, ptrAddr.ToString(), err)
		}

		if ptrVal == 0 {
			return 0, fmt.Errorf("pointer at offset %d (addr %s) is null: %w", i, ptrAddr.ToString(), ErrInvalidPointer)
		}

		currentAddr = ProcessMemoryAddress(ptrVal)
	}

	if len(offsets) > 0 {
		currentAddr += ProcessMemoryAddress(offsets[len(offsets)-1])
	}

	return currentAddr, nil
}

// Read is a helper to read a single value of type T from memory.
// T must be plain old data; it is filled byte for byte in host layout.
func Read[T any](mem MemoryReader, addr ProcessMemoryAddress) (T, error) {
	var t T
	size := int(unsafe.Sizeof(t))
	if size == 0 {
		return t, nil
	}

	if err := mem.Read(addr, asBytes(&t)); err != nil {
		var zero T
		return zero, err
	}

	return t, nil
}

// Write is the counterpart of Read: it stores v at addr in host layout.
func Write[T any](mem MemoryWriter, addr ProcessMemoryAddress, v T) error {
	if unsafe.Sizeof(v) == 0 {
		return nil
	}
	return mem.Write(addr, asBytes(&v))
}

// asBytes returns a byte slice view of *T
func asBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(unsafe.Sizeof(*v)))
}
