//go:build !(darwin || freebsd || linux || netbsd || windows)

package extension

import (
	"errors"
	"runtime"
)

var errUnsupported = errors.New("dynamic modules are not supported on " + runtime.GOOS)

func openLibrary(string) (uintptr, error)           { return 0, errUnsupported }
func lookupSymbol(uintptr, string) (uintptr, error) { return 0, errUnsupported }
func closeLibrary(uintptr) error                    { return nil }

func bindEntryPoints(map[string]uintptr) (EntryPoints, error) {
	return EntryPoints{}, errUnsupported
}
