//go:build darwin || freebsd || linux || netbsd || windows

package extension

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"
)

// bindEntryPoints turns resolved symbol addresses into Go functions
func bindEntryPoints(addrs map[string]uintptr) (ep EntryPoints, err error) {
	defer func() {
		// purego panics on signatures it cannot call on this platform
		if r := recover(); r != nil {
			err = fmt.Errorf("bind entry points: %v", r)
		}
	}()

	var (
		attach  func(pid uint32) uint32
		read    func(addr uintptr, out *byte, length uintptr) uint32
		write   func(addr uintptr, in *byte, length uintptr) uint32
		canRead func(addr uintptr) bool
		detach  func()
	)

	purego.RegisterFunc(&attach, addrs[SymbolAttach])
	purego.RegisterFunc(&read, addrs[SymbolRead])
	purego.RegisterFunc(&write, addrs[SymbolWrite])
	purego.RegisterFunc(&canRead, addrs[SymbolCanRead])
	purego.RegisterFunc(&detach, addrs[SymbolDetach])

	return EntryPoints{
		Attach: attach,
		Read: func(addr uintptr, out []byte) uint32 {
			return read(addr, unsafe.SliceData(out), uintptr(len(out)))
		},
		Write: func(addr uintptr, in []byte) uint32 {
			return write(addr, unsafe.SliceData(in), uintptr(len(in)))
		},
		CanRead: canRead,
		Detach:  detach,
	}, nil
}
