package process_manager

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"yclass/config"
	"yclass/extension"
	"yclass/process"
	"yclass/process/memory_map"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTarget is a process the fake OS knows about
type fakeTarget struct {
	name    string
	nameErr error
	regions []memory_map.Region
	mem     map[uintptr]byte
}

type fakeHandle struct {
	pid    process.ProcessID
	target *fakeTarget
	closed bool
}

func (h *fakeHandle) PID() process.ProcessID { return h.pid }

func (h *fakeHandle) Name() (string, error) {
	if h.target.nameErr != nil {
		return "", h.target.nameErr
	}
	return h.target.name, nil
}

func (h *fakeHandle) Regions() ([]memory_map.Region, error) {
	out := make([]memory_map.Region, len(h.target.regions))
	copy(out, h.target.regions)
	return out, nil
}

func (h *fakeHandle) ReadMemory(addr process.ProcessMemoryAddress, buf []byte) error {
	for i := range buf {
		a := uintptr(addr) + uintptr(i)
		if !memory_map.IsReadable(a, h.target.regions) {
			return fmt.Errorf("fault at %#x", a)
		}
		buf[i] = h.target.mem[a]
	}
	return nil
}

func (h *fakeHandle) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	for i, b := range data {
		a := uintptr(addr) + uintptr(i)
		if !memory_map.IsWritable(a, h.target.regions) {
			return fmt.Errorf("fault at %#x", a)
		}
		h.target.mem[a] = b
	}
	return nil
}

func (h *fakeHandle) Close() error {
	h.closed = true
	return nil
}

// fakeOS opens fake handles and remembers every one of them
type fakeOS struct {
	targets map[process.ProcessID]*fakeTarget
	denied  map[process.ProcessID]bool
	handles []*fakeHandle
}

func newFakeOS() *fakeOS {
	return &fakeOS{
		targets: map[process.ProcessID]*fakeTarget{
			42: {
				name: "game.exe",
				regions: []memory_map.Region{
					memory_map.NewRegion(0x1000, 0x2000, memory_map.ProtRead|memory_map.ProtWrite, "[heap]"),
					memory_map.NewRegion(0x3000, 0x4000, memory_map.ProtRead, ""),
					memory_map.NewRegion(0x5000, 0x6000, 0, ""),
				},
				mem: map[uintptr]byte{},
			},
			43: {name: "other", mem: map[uintptr]byte{}},
		},
		denied: map[process.ProcessID]bool{1: true},
	}
}

func (f *fakeOS) open(pid process.ProcessID) (process.Handle, error) {
	if f.denied[pid] {
		return nil, fmt.Errorf("open %d: %w", pid, process.ErrAccessDenied)
	}
	t, ok := f.targets[pid]
	if !ok {
		return nil, fmt.Errorf("open %d: %w", pid, process.ErrProcessNotFound)
	}
	h := &fakeHandle{pid: pid, target: t}
	f.handles = append(f.handles, h)
	return h, nil
}

func (f *fakeOS) live() int {
	n := 0
	for _, h := range f.handles {
		if !h.closed {
			n++
		}
	}
	return n
}

// fakeModule is an in-process extension backed by a flat memory map
type fakeModule struct {
	attachCode uint32
	attached   []uint32
	detaches   int
	mem        map[uintptr]byte
}

func (m *fakeModule) extension(t *testing.T) *extension.Extension {
	t.Helper()
	ext, err := extension.FromEntryPoints("fake.ycpl", extension.EntryPoints{
		Attach: func(pid uint32) uint32 {
			if m.attachCode != 0 {
				return m.attachCode
			}
			m.attached = append(m.attached, pid)
			return 0
		},
		Read: func(addr uintptr, out []byte) uint32 {
			if addr < 0x1000 {
				return 5
			}
			for i := range out {
				out[i] = m.mem[addr+uintptr(i)]
			}
			return 0
		},
		Write: func(addr uintptr, in []byte) uint32 {
			if addr < 0x1000 {
				return 6
			}
			for i, b := range in {
				m.mem[addr+uintptr(i)] = b
			}
			return 0
		},
		CanRead: func(addr uintptr) bool { return addr >= 0x1000 },
		Detach:  func() { m.detaches++ },
	})
	require.NoError(t, err)
	return ext
}

func newNative(t *testing.T, fos *fakeOS) *Manager {
	t.Helper()
	t.Chdir(t.TempDir())
	m, err := New(nil, WithOpener(fos.open))
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func newExtension(t *testing.T, mod *fakeModule) *Manager {
	t.Helper()
	m, err := New(nil, WithExtension(mod.extension(t)))
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestNewWithoutPluginIsNative(t *testing.T) {
	t.Chdir(t.TempDir())

	m, err := New(config.Default())
	require.NoError(t, err)

	assert.Equal(t, ModeNative, m.Mode())
	assert.False(t, m.IsAttached())
	assert.Equal(t, process.ProcessID(0), m.ID())
	assert.Nil(t, m.Regions())
}

func TestNewWithMissingExplicitPlugin(t *testing.T) {
	cfg := &config.Config{PluginPath: filepath.Join(t.TempDir(), "driver.ycpl")}

	m, err := New(cfg, WithOpener(newFakeOS().open))
	assert.Nil(t, m)
	assert.ErrorIs(t, err, extension.ErrPluginMissing)
}

func TestNewWithBrokenPlugin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plugin.ycpl")
	require.NoError(t, os.WriteFile(path, []byte("not a module"), 0o644))

	m, err := New(&config.Config{PluginPath: path})
	assert.Nil(t, m)

	var loadErr *extension.LoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestNativeAttachDetach(t *testing.T) {
	fos := newFakeOS()
	m := newNative(t, fos)

	require.NoError(t, m.Attach(42))
	assert.True(t, m.IsAttached())
	assert.Equal(t, process.ProcessID(42), m.ID())

	name, err := m.Name()
	require.NoError(t, err)
	assert.Equal(t, "game.exe", name)

	m.Detach()
	assert.False(t, m.IsAttached())
	assert.True(t, fos.handles[0].closed)

	m.Detach()
	assert.False(t, m.IsAttached())

	_, err = m.Name()
	assert.ErrorIs(t, err, ErrNotAttached)
}

func TestNativeAttachDenied(t *testing.T) {
	fos := newFakeOS()
	m := newNative(t, fos)

	err := m.Attach(1)
	require.Error(t, err)

	var attachErr *AttachError
	require.ErrorAs(t, err, &attachErr)
	assert.Equal(t, process.ProcessID(1), attachErr.PID)
	assert.Equal(t, ModeNative, attachErr.Mode)
	assert.ErrorIs(t, err, process.ErrAccessDenied)
	assert.False(t, m.IsAttached())

	// the manager can retry with another target
	require.NoError(t, m.Attach(43))
	assert.True(t, m.IsAttached())
}

func TestFailedReattachLeavesDetached(t *testing.T) {
	fos := newFakeOS()
	m := newNative(t, fos)

	require.NoError(t, m.Attach(42))
	assert.ErrorIs(t, m.Attach(999), process.ErrProcessNotFound)
	assert.False(t, m.IsAttached())
	assert.Equal(t, 0, fos.live())
}

func TestNativeCanReadUsesSnapshot(t *testing.T) {
	fos := newFakeOS()
	m := newNative(t, fos)
	require.NoError(t, m.Attach(42))

	assert.False(t, m.CanRead(0x0fff))
	assert.True(t, m.CanRead(0x1000))
	assert.True(t, m.CanRead(0x1fff))
	assert.False(t, m.CanRead(0x2000))
	assert.True(t, m.CanRead(0x3fff))
	assert.False(t, m.CanRead(0x5000), "mapped without read permission")

	// the target maps a new region after attach
	target := fos.targets[42]
	target.regions = append(target.regions, memory_map.NewRegion(0x8000, 0x9000, memory_map.ProtRead, ""))
	assert.False(t, m.CanRead(0x8000))

	require.NoError(t, m.RefreshRegions())
	assert.True(t, m.CanRead(0x8000))
	assert.Len(t, m.Regions(), 4)
}

func TestNativeReattachSeesNewRegions(t *testing.T) {
	fos := newFakeOS()
	m := newNative(t, fos)
	require.NoError(t, m.Attach(42))

	target := fos.targets[42]
	target.regions = append(target.regions, memory_map.NewRegion(0x8000, 0x9000, memory_map.ProtRead, ""))
	require.NoError(t, m.Attach(42))
	assert.True(t, m.CanRead(0x8000))
}

func TestNativeRoundTrip(t *testing.T) {
	fos := newFakeOS()
	m := newNative(t, fos)
	require.NoError(t, m.Attach(42))

	want := []byte{0xde, 0xad, 0xbe, 0xef}
	require.True(t, m.CanRead(0x1800))
	require.NoError(t, m.Write(0x1800, want))

	got := make([]byte, len(want))
	require.NoError(t, m.Read(0x1800, got))
	assert.Equal(t, want, got)

	v, err := process.Read[uint32](m, 0x1800)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xefbeadde), v)
}

func TestNativeAccessErrorsAreRecoverable(t *testing.T) {
	fos := newFakeOS()
	m := newNative(t, fos)
	require.NoError(t, m.Attach(42))

	err := m.Write(0x3000, []byte{1})
	var accessErr *MemoryAccessError
	require.ErrorAs(t, err, &accessErr)
	assert.Equal(t, "write", accessErr.Op)
	assert.Equal(t, process.ProcessMemoryAddress(0x3000), accessErr.Address)
	assert.Equal(t, 1, accessErr.Length)

	// reads running past the end of a region fail as a whole
	err = m.Read(0x1ffe, make([]byte, 4))
	require.ErrorAs(t, err, &accessErr)
	assert.Equal(t, "read", accessErr.Op)

	assert.True(t, m.IsAttached())
}

func TestReadWriteDetached(t *testing.T) {
	m := newNative(t, newFakeOS())

	assert.ErrorIs(t, m.Read(0x1000, make([]byte, 1)), ErrNotAttached)
	assert.ErrorIs(t, m.Write(0x1000, []byte{1}), ErrNotAttached)
	assert.False(t, m.CanRead(0x1000))
	assert.ErrorIs(t, m.RefreshRegions(), ErrNotAttached)
}

func TestReattachReleasesPreviousHandle(t *testing.T) {
	fos := newFakeOS()
	m := newNative(t, fos)

	require.NoError(t, m.Attach(42))
	require.NoError(t, m.Attach(43))
	require.NoError(t, m.Attach(42))

	require.Len(t, fos.handles, 3)
	assert.True(t, fos.handles[0].closed)
	assert.True(t, fos.handles[1].closed)
	assert.False(t, fos.handles[2].closed)
	assert.Equal(t, 1, fos.live())
	assert.Equal(t, process.ProcessID(42), m.ID())
}

func TestNameLookupError(t *testing.T) {
	fos := newFakeOS()
	fos.targets[42].nameErr = errors.New("gone")
	m := newNative(t, fos)
	require.NoError(t, m.Attach(42))

	_, err := m.Name()
	var nameErr *NameLookupError
	require.ErrorAs(t, err, &nameErr)
	assert.Equal(t, process.ProcessID(42), nameErr.PID)
}

func TestNoNativeBackend(t *testing.T) {
	t.Chdir(t.TempDir())
	m, err := New(nil, WithOpener(nil))
	require.NoError(t, err)

	assert.ErrorIs(t, m.Attach(42), ErrNativeUnsupported)
	assert.False(t, m.IsAttached())
}

func TestExtensionScenario(t *testing.T) {
	mod := &fakeModule{mem: map[uintptr]byte{}}
	m := newExtension(t, mod)

	assert.Equal(t, ModeExtension, m.Mode())
	require.NoError(t, m.Attach(1234))
	assert.True(t, m.IsAttached())
	assert.Equal(t, process.ProcessID(1234), m.ID())

	name, err := m.Name()
	require.NoError(t, err)
	assert.Equal(t, ManagedName, name)

	assert.Nil(t, m.Regions())
	assert.NoError(t, m.RefreshRegions())
	assert.Equal(t, []uint32{1234}, mod.attached)
}

func TestExtensionAttachRejected(t *testing.T) {
	mod := &fakeModule{attachCode: 17, mem: map[uintptr]byte{}}
	m := newExtension(t, mod)

	err := m.Attach(1234)
	var attachErr *AttachError
	require.ErrorAs(t, err, &attachErr)
	assert.Equal(t, uint32(17), attachErr.Code)
	assert.Equal(t, ModeExtension, attachErr.Mode)
	assert.Contains(t, err.Error(), "17")
	assert.False(t, m.IsAttached())
}

func TestExtensionRoundTrip(t *testing.T) {
	mod := &fakeModule{mem: map[uintptr]byte{}}
	m := newExtension(t, mod)
	require.NoError(t, m.Attach(7))

	want := []byte("extension bytes")
	require.True(t, m.CanRead(0x4000))
	require.NoError(t, m.Write(0x4000, want))

	got := make([]byte, len(want))
	require.NoError(t, m.Read(0x4000, got))
	assert.Equal(t, want, got)

	assert.False(t, m.CanRead(0x10))

	err := m.Read(0x10, got)
	var accessErr *MemoryAccessError
	require.ErrorAs(t, err, &accessErr)
	assert.Equal(t, uint32(5), accessErr.Code)
	var status *extension.StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, uint32(5), status.Code)
}

func TestExtensionDetachAndReattach(t *testing.T) {
	mod := &fakeModule{mem: map[uintptr]byte{}}
	m := newExtension(t, mod)

	require.NoError(t, m.Attach(1))
	require.NoError(t, m.Attach(2))
	assert.Equal(t, 1, mod.detaches, "re-attach detaches the previous attachment")
	assert.Equal(t, process.ProcessID(2), m.ID())

	m.Detach()
	m.Detach()
	assert.Equal(t, 2, mod.detaches)
	assert.False(t, m.IsAttached())
}

func TestCloseReleasesExtension(t *testing.T) {
	mod := &fakeModule{mem: map[uintptr]byte{}}
	m, err := New(nil, WithExtension(mod.extension(t)))
	require.NoError(t, err)

	require.NoError(t, m.Attach(9))
	require.NoError(t, m.Close())
	assert.False(t, m.IsAttached())
	// once for the attachment, once when the module is released
	assert.Equal(t, 2, mod.detaches)

	var attachErr *AttachError
	require.ErrorAs(t, m.Attach(9), &attachErr)
	assert.ErrorIs(t, attachErr, extension.ErrClosed)
}

func TestCloseWaitsForCallInsideModule(t *testing.T) {
	mod := &fakeModule{mem: map[uintptr]byte{}}
	entered := make(chan struct{})
	unblock := make(chan struct{})
	var inCanRead, unloadedDuringCall atomic.Bool

	ext, err := extension.FromEntryPoints("blocking.ycpl", extension.EntryPoints{
		Attach: func(pid uint32) uint32 { return 0 },
		Read:   func(addr uintptr, out []byte) uint32 { return 0 },
		Write:  func(addr uintptr, in []byte) uint32 { return 0 },
		CanRead: func(addr uintptr) bool {
			inCanRead.Store(true)
			close(entered)
			<-unblock
			inCanRead.Store(false)
			return true
		},
		Detach: func() {
			mod.detaches++
			if inCanRead.Load() {
				unloadedDuringCall.Store(true)
			}
		},
	})
	require.NoError(t, err)

	m, err := New(nil, WithExtension(ext))
	require.NoError(t, err)
	require.NoError(t, m.Attach(42))

	canRead := make(chan bool, 1)
	go func() { canRead <- m.CanRead(0x4000) }()
	<-entered

	closeDone := make(chan error, 1)
	go func() { closeDone <- m.Close() }()

	select {
	case <-closeDone:
		t.Fatal("Close returned while yc_can_read was executing")
	case <-time.After(50 * time.Millisecond):
	}

	close(unblock)
	assert.True(t, <-canRead)
	require.NoError(t, <-closeDone)
	assert.False(t, unloadedDuringCall.Load())
	assert.False(t, m.IsAttached())
	assert.Equal(t, 2, mod.detaches)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "native", ModeNative.String())
	assert.Equal(t, "extension", ModeExtension.String())
}
