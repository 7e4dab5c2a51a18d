//go:build linux

package process_linux

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"yclass/process"
	"yclass/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	gopsprocess "github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sys/unix"
)

// LinuxProcess implements process.Handle for Linux systems.
// The handle is a pidfd. Every transfer checks it first, so once the opened process
// exits its pid is not followed to whatever process reuses it.
type LinuxProcess struct {
	pid   process.ProcessID
	pidfd int
	log   *logger.Logger
}

// Open opens the process with the given PID for memory operations.
// It fails with process.ErrProcessNotFound when the process does not exist or already exited,
// and with process.ErrAccessDenied when the caller may not inspect its memory.
func Open(pid process.ProcessID) (*LinuxProcess, error) {
	pidfd, err := unix.PidfdOpen(int(pid), 0)
	switch {
	case err == nil:
	case errors.Is(err, unix.ENOSYS):
		// kernels before 5.3, fall back to pid only
		pidfd = -1
		if _, err := os.Stat(fmt.Sprintf("/proc/%d", pid)); err != nil {
			return nil, fmt.Errorf("process with PID %d: %w", pid, process.ErrProcessNotFound)
		}
	default:
		return nil, fmt.Errorf("pidfd_open %d: %w", pid, classify(err))
	}

	p := &LinuxProcess{
		pid:   pid,
		pidfd: pidfd,
		log:   logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid))),
	}

	// /proc/<pid>/maps is guarded by the same ptrace access check as process_vm_readv
	if _, err := p.Regions(); err != nil {
		p.Close()
		return nil, err
	}

	p.log.Infoln("Process opened")

	return p, nil
}

// Opener adapts Open to process.Opener
func Opener(pid process.ProcessID) (process.Handle, error) {
	p, err := Open(pid)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// PID returns the process ID
func (p *LinuxProcess) PID() process.ProcessID {
	return p.pid
}

// Name returns the process name as reported by the OS
func (p *LinuxProcess) Name() (string, error) {
	if p.pid == 0 {
		return "", process.ErrProcessNotOpen
	}

	proc, err := gopsprocess.NewProcess(int32(p.pid))
	if err != nil {
		return "", fmt.Errorf("process %d: %w", p.pid, classify(err))
	}

	name, err := proc.Name()
	if err != nil {
		return "", fmt.Errorf("process %d name: %w", p.pid, err)
	}

	return name, nil
}

// Regions reads the current memory map of the process
func (p *LinuxProcess) Regions() ([]memory_map.Region, error) {
	if p.pid == 0 {
		return nil, process.ErrProcessNotOpen
	}

	if err := p.alive(); err != nil {
		return nil, err
	}

	regions, err := memory_map.ReadMemoryMap(int(p.pid))
	if err != nil {
		return nil, fmt.Errorf("failed to read memory map: %w", classify(err))
	}

	return regions, nil
}

// alive fails with process.ErrProcessNotFound once the process behind the pidfd has exited
func (p *LinuxProcess) alive() error {
	if p.pidfd < 0 {
		return nil
	}
	// EPERM still proves the process is alive; only ESRCH means it exited
	if err := unix.PidfdSendSignal(p.pidfd, 0, nil, 0); errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("process %d: %w", p.pid, classify(err))
	}
	return nil
}

// Close releases the pidfd
func (p *LinuxProcess) Close() error {
	if p.pid == 0 {
		return nil
	}

	var err error
	if p.pidfd >= 0 {
		err = unix.Close(p.pidfd)
		p.pidfd = -1
	}

	p.pid = 0
	p.log.Infoln("Process closed")

	return err
}

// classify maps OS errors onto the process package sentinels, keeping the OS error in the chain
func classify(err error) error {
	switch {
	case errors.Is(err, unix.ESRCH), errors.Is(err, fs.ErrNotExist), errors.Is(err, gopsprocess.ErrorProcessNotRunning):
		return fmt.Errorf("%w: %w", process.ErrProcessNotFound, err)
	case errors.Is(err, unix.EPERM), errors.Is(err, unix.EACCES), errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %w", process.ErrAccessDenied, err)
	}
	return err
}
