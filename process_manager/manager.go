// Package process_manager is the single surface the rest of the application uses to reach a foreign process.
//
// A Manager decides once, when it is created, whether processes are attached natively through the OS
// or through an extension module. Every later call is serviced by that backend only.
package process_manager

import (
	"fmt"
	"sync"

	"yclass/config"
	"yclass/extension"
	"yclass/process"
	"yclass/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// ManagedName is reported as the process name in extension mode, where the
// manager cannot introspect the process the module is attached to.
const ManagedName = "[MANAGED]"

// Mode is the backend a manager uses, fixed at construction
type Mode uint8

const (
	ModeNative Mode = iota
	ModeExtension
)

func (m Mode) String() string {
	switch m {
	case ModeNative:
		return "native"
	case ModeExtension:
		return "extension"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// Manager owns the optional extension and the current attachment
type Manager struct {
	mu       sync.Mutex
	ext      *extension.Extension
	open     process.Opener
	attached *attachment
	log      *logger.Logger
}

type options struct {
	ext    *extension.Extension
	opener process.Opener
}

// Option configures New
type Option func(*options)

// WithExtension uses ext instead of loading the configured module. The manager takes ownership of ext.
func WithExtension(ext *extension.Extension) Option {
	return func(o *options) {
		o.ext = ext
	}
}

// WithOpener replaces the platform's native backend
func WithOpener(opener process.Opener) Option {
	return func(o *options) {
		o.opener = opener
	}
}

// New creates a detached manager. The extension module named by cfg is loaded here; a
// configured module that is missing or fails to load is returned as an error and no
// manager is created. cfg may be nil.
func New(cfg *config.Config, opts ...Option) (*Manager, error) {
	o := options{opener: defaultOpener}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Manager{
		ext:  o.ext,
		open: o.opener,
		log:  detachedLogger(),
	}

	if m.ext == nil {
		path, explicit := cfg.Plugin()
		ext, err := extension.LoadFromConfig(path, explicit)
		if err != nil {
			return nil, err
		}
		m.ext = ext
	}

	m.log.Infoln("Process manager created in", m.Mode().String(), "mode")

	return m, nil
}

// Mode reports which backend services this manager
func (m *Manager) Mode() Mode {
	if m.ext != nil {
		return ModeExtension
	}
	return ModeNative
}

// IsAttached reports whether a process is attached
func (m *Manager) IsAttached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attached != nil
}

// Attach attaches to pid, replacing any current attachment. On failure the
// manager is detached and the error is an *AttachError.
func (m *Manager) Attach(pid process.ProcessID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.detachLocked()

	if m.ext != nil {
		if err := m.ext.Attach(uint32(pid)); err != nil {
			m.log.Warn("Extension attach to ", pid, " failed: ", err)
			return newAttachError(pid, ModeExtension, err)
		}

		m.attached = extensionAttachment(pid)
	} else {
		if m.open == nil {
			return newAttachError(pid, ModeNative, ErrNativeUnsupported)
		}

		h, err := m.open(pid)
		if err != nil {
			m.log.Warn("Open of ", pid, " failed: ", err)
			return newAttachError(pid, ModeNative, err)
		}

		regions, err := h.Regions()
		if err != nil {
			h.Close()
			m.log.Warn("Region enumeration of ", pid, " failed: ", err)
			return newAttachError(pid, ModeNative, err)
		}

		m.attached = nativeAttachment(h, regions)
	}

	m.log = attachedLogger(pid)
	m.log.Infoln("Attached in", m.Mode().String(), "mode")

	return nil
}

// Detach drops the current attachment. It never fails and does nothing when detached.
func (m *Manager) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.detachLocked()
}

func (m *Manager) detachLocked() {
	a := m.attached
	if a == nil {
		return
	}
	m.attached = nil

	switch a.kind {
	case attachExtension:
		m.ext.Detach()
	case attachNative:
		if err := a.handle.Close(); err != nil {
			m.log.Warn("Failed to close process handle: ", err)
		}
	}

	m.log.Infoln("Detached")
	m.log = detachedLogger()
}

// Close detaches and releases the extension module, if any
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.detachLocked()

	if m.ext != nil {
		return m.ext.Close()
	}
	return nil
}

// ID returns the id of the attached process, or 0 when detached
func (m *Manager) ID() process.ProcessID {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := m.attached
	if a == nil {
		return 0
	}

	switch a.kind {
	case attachExtension:
		return a.pid
	case attachNative:
		return a.handle.PID()
	}
	return 0
}

// Name returns the display name of the attached process. Failures are *NameLookupError.
func (m *Manager) Name() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := m.attached
	if a == nil {
		return "", ErrNotAttached
	}

	switch a.kind {
	case attachExtension:
		return ManagedName, nil
	case attachNative:
		name, err := a.handle.Name()
		if err != nil {
			return "", &NameLookupError{PID: a.handle.PID(), Err: err}
		}
		return name, nil
	}
	return "", ErrNotAttached
}

// Regions returns a copy of the region snapshot. It is nil in extension mode and when detached.
func (m *Manager) Regions() []memory_map.Region {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := m.attached
	if a == nil || a.kind != attachNative {
		return nil
	}

	result := make([]memory_map.Region, len(a.regions))
	copy(result, a.regions)
	return result
}

// RefreshRegions re-enumerates the native region table. CanRead keeps using the
// snapshot from attach until this is called. It does nothing in extension mode.
func (m *Manager) RefreshRegions() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := m.attached
	if a == nil {
		return ErrNotAttached
	}

	if a.kind != attachNative {
		return nil
	}

	regions, err := a.handle.Regions()
	if err != nil {
		return fmt.Errorf("refresh regions: %w", err)
	}

	memory_map.Sort(regions)
	a.regions = regions
	m.log.Debugln("Regions refreshed:", len(regions))

	return nil
}

func detachedLogger() *logger.Logger {
	return logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))
}

func attachedLogger(pid process.ProcessID) *logger.Logger {
	return logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid)))
}
