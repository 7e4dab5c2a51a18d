// Package extension loads attachment modules that implement process access behind a fixed C ABI.
//
// A module exports five functions:
//
//	uint32_t yc_attach(uint32_t pid);
//	uint32_t yc_read(uintptr_t address, uint8_t *out, uintptr_t length);
//	uint32_t yc_write(uintptr_t address, const uint8_t *in, uintptr_t length);
//	bool     yc_can_read(uintptr_t address);
//	void     yc_detach(void);
//
// Status codes are zero on success. The raw entry points never leave this package.
package extension

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

const (
	SymbolAttach  = "yc_attach"
	SymbolRead    = "yc_read"
	SymbolWrite   = "yc_write"
	SymbolCanRead = "yc_can_read"
	SymbolDetach  = "yc_detach"
)

// Symbols lists every entry point a module must export, in resolution order
var Symbols = []string{SymbolAttach, SymbolRead, SymbolWrite, SymbolCanRead, SymbolDetach}

// DefaultPath is the module looked up in the working directory when none is configured
const DefaultPath = "plugin.ycpl"

// ErrPluginMissing is the configuration error for an explicitly configured module path that does not exist
var ErrPluginMissing = errors.New("plugin file missing")

// ErrClosed is returned by operations on an extension after Close
var ErrClosed = errors.New("extension closed")

// LoadError reports a module that exists but could not be loaded or is missing an entry point
type LoadError struct {
	Path   string
	Symbol string // empty when the module itself failed to load
	Err    error
}

func (e *LoadError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("load extension %s: resolve %s: %v", e.Path, e.Symbol, e.Err)
	}
	return fmt.Sprintf("load extension %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// StatusError carries a non-zero status code returned by an entry point
type StatusError struct {
	Symbol string
	Code   uint32
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Symbol, e.Code)
}

// EntryPoints is the Go form of the module contract. It lets an extension be implemented
// in-process, for example by a remote agent client, and is what loaded modules are adapted to.
type EntryPoints struct {
	Attach  func(pid uint32) uint32
	Read    func(addr uintptr, out []byte) uint32
	Write   func(addr uintptr, in []byte) uint32
	CanRead func(addr uintptr) bool
	Detach  func()
}

func (ep EntryPoints) missing() string {
	switch {
	case ep.Attach == nil:
		return SymbolAttach
	case ep.Read == nil:
		return SymbolRead
	case ep.Write == nil:
		return SymbolWrite
	case ep.CanRead == nil:
		return SymbolCanRead
	case ep.Detach == nil:
		return SymbolDetach
	}
	return ""
}

// Extension is a loaded module with all five entry points resolved.
type Extension struct {
	path    string
	ep      EntryPoints
	release func() error
	log     *logger.Logger

	// held for reading across every entry point call, for writing by Close
	mu     sync.RWMutex
	closed bool
}

// FromEntryPoints wraps an in-process implementation. Every entry point must be set.
func FromEntryPoints(name string, ep EntryPoints) (*Extension, error) {
	if sym := ep.missing(); sym != "" {
		return nil, &LoadError{Path: name, Symbol: sym, Err: errors.New("entry point not provided")}
	}
	return newExtension(name, ep, nil), nil
}

func newExtension(path string, ep EntryPoints, release func() error) *Extension {
	return &Extension{
		path:    path,
		ep:      ep,
		release: release,
		log:     logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "extension")),
	}
}

// Path returns the module path, or the name given to FromEntryPoints
func (e *Extension) Path() string {
	return e.path
}

// Attach asks the module to attach to pid
func (e *Extension) Attach(pid uint32) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return ErrClosed
	}
	if code := e.ep.Attach(pid); code != 0 {
		return &StatusError{Symbol: SymbolAttach, Code: code}
	}
	return nil
}

// Read fills buf from address. Empty buffers are not forwarded to the module.
func (e *Extension) Read(addr uintptr, buf []byte) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return ErrClosed
	}
	if len(buf) == 0 {
		return nil
	}
	if code := e.ep.Read(addr, buf); code != 0 {
		return &StatusError{Symbol: SymbolRead, Code: code}
	}
	return nil
}

// Write stores data at address. Empty buffers are not forwarded to the module.
func (e *Extension) Write(addr uintptr, data []byte) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return ErrClosed
	}
	if len(data) == 0 {
		return nil
	}
	if code := e.ep.Write(addr, data); code != 0 {
		return &StatusError{Symbol: SymbolWrite, Code: code}
	}
	return nil
}

// CanRead reports the module's view of address readability
func (e *Extension) CanRead(addr uintptr) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return false
	}
	return e.ep.CanRead(addr)
}

// Detach tells the module to drop its attachment. It has no failure mode.
func (e *Extension) Detach() {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return
	}
	e.ep.Detach()
}

// Close detaches and unloads the module. It waits for calls already inside the
// module to return. Calling Close more than once is a no-op.
func (e *Extension) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	e.ep.Detach()

	if e.release != nil {
		if err := e.release(); err != nil {
			e.log.Warn("Failed to unload ", e.path, ": ", err)
			return fmt.Errorf("unload extension %s: %w", e.path, err)
		}
	}

	e.log.Infoln("Extension unloaded:", e.path)
	return nil
}
