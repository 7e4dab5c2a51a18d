package process_manager

import (
	"yclass/process"
	"yclass/process/memory_map"
)

const (
	opRead  = "read"
	opWrite = "write"
)

// Read fills buf with len(buf) bytes of the attached process's memory at addr.
// Failures are *MemoryAccessError; the manager stays attached.
func (m *Manager) Read(addr process.ProcessMemoryAddress, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := m.attached
	if a == nil {
		return newAccessError(opRead, addr, len(buf), ErrNotAttached)
	}

	var err error
	switch a.kind {
	case attachExtension:
		err = m.ext.Read(uintptr(addr), buf)
	case attachNative:
		err = a.handle.ReadMemory(addr, buf)
	}

	if err != nil {
		m.log.Debugln("read failed at", addr.ToString(), err)
		return newAccessError(opRead, addr, len(buf), err)
	}

	return nil
}

// Write stores data in the attached process's memory at addr.
// Failures are *MemoryAccessError; the manager stays attached.
func (m *Manager) Write(addr process.ProcessMemoryAddress, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := m.attached
	if a == nil {
		return newAccessError(opWrite, addr, len(data), ErrNotAttached)
	}

	var err error
	switch a.kind {
	case attachExtension:
		err = m.ext.Write(uintptr(addr), data)
	case attachNative:
		err = a.handle.WriteMemory(addr, data)
	}

	if err != nil {
		m.log.Debugln("write failed at", addr.ToString(), err)
		return newAccessError(opWrite, addr, len(data), err)
	}

	return nil
}

// CanRead reports whether addr is readable. In native mode the answer comes from
// the region snapshot taken at attach (see RefreshRegions). It is false when detached.
func (m *Manager) CanRead(addr process.ProcessMemoryAddress) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	a := m.attached
	if a == nil {
		return false
	}

	switch a.kind {
	case attachExtension:
		return m.ext.CanRead(uintptr(addr))
	case attachNative:
		return memory_map.IsReadable(uintptr(addr), a.regions)
	}
	return false
}
