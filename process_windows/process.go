//go:build windows

package process_windows

import (
	"errors"
	"fmt"

	"yclass/process"
	"yclass/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	gopsprocess "github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sys/windows"
)

const desiredAccess = windows.PROCESS_VM_READ |
	windows.PROCESS_VM_WRITE |
	windows.PROCESS_VM_OPERATION |
	windows.PROCESS_QUERY_INFORMATION

// WindowsProcess implements process.Handle for Windows systems
type WindowsProcess struct {
	pid    process.ProcessID
	handle windows.Handle
	log    *logger.Logger
}

// Open opens the process with read, write and query rights
func Open(pid process.ProcessID) (*WindowsProcess, error) {
	handle, err := windows.OpenProcess(desiredAccess, false, uint32(pid))
	if err != nil {
		return nil, fmt.Errorf("OpenProcess %d: %w", pid, classify(err))
	}

	p := &WindowsProcess{
		pid:    pid,
		handle: handle,
		log:    logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid))),
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

// PID returns the process id read back from the handle
func (p *WindowsProcess) PID() process.ProcessID {
	if p.handle == 0 {
		return 0
	}
	id, err := windows.GetProcessId(p.handle)
	if err != nil {
		return p.pid
	}
	return process.ProcessID(id)
}

func (p *WindowsProcess) Name() (string, error) {
	if p.handle == 0 {
		return "", process.ErrProcessNotOpen
	}

	proc, err := gopsprocess.NewProcess(int32(p.pid))
	if err != nil {
		return "", fmt.Errorf("process %d: %w", p.pid, err)
	}

	name, err := proc.Name()
	if err != nil {
		return "", fmt.Errorf("process %d name: %w", p.pid, err)
	}
	return name, nil
}

func (p *WindowsProcess) Regions() ([]memory_map.Region, error) {
	if p.handle == 0 {
		return nil, process.ErrProcessNotOpen
	}

	regions, err := memory_map.QueryMemoryMap(p.handle)
	if err != nil {
		return nil, fmt.Errorf("failed to query memory map: %w", classify(err))
	}
	return regions, nil
}

func (p *WindowsProcess) ReadMemory(addr process.ProcessMemoryAddress, buf []byte) error {
	if p.handle == 0 {
		return process.ErrProcessNotOpen
	}
	if len(buf) == 0 {
		return nil
	}

	var bytesRead uintptr
	err := windows.ReadProcessMemory(p.handle, uintptr(addr), &buf[0], uintptr(len(buf)), &bytesRead)
	if err != nil {
		return fmt.Errorf("ReadProcessMemory at %s: %w", addr.ToString(), classify(err))
	}

	if bytesRead != uintptr(len(buf)) {
		return fmt.Errorf("read %d of %d bytes at %s: %w", bytesRead, len(buf), addr.ToString(), process.ErrPartialTransfer)
	}

	return nil
}

func (p *WindowsProcess) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	if p.handle == 0 {
		return process.ErrProcessNotOpen
	}
	if len(data) == 0 {
		return nil
	}

	var written uintptr
	err := windows.WriteProcessMemory(p.handle, uintptr(addr), &data[0], uintptr(len(data)), &written)
	if err != nil {
		return fmt.Errorf("WriteProcessMemory at %s: %w", addr.ToString(), classify(err))
	}

	if written != uintptr(len(data)) {
		return fmt.Errorf("only wrote %d of %d bytes at %s: %w", written, len(data), addr.ToString(), process.ErrPartialTransfer)
	}

	return nil
}

func (p *WindowsProcess) Close() error {
	if p.handle == 0 {
		return nil
	}

	err := windows.CloseHandle(p.handle)
	p.handle = 0
	p.pid = 0
	p.log.Infoln("Process closed")

	return err
}

func classify(err error) error {
	switch {
	case errors.Is(err, windows.ERROR_INVALID_PARAMETER):
		// OpenProcess reports unknown pids this way
		return fmt.Errorf("%w: %w", process.ErrProcessNotFound, err)
	case errors.Is(err, windows.ERROR_ACCESS_DENIED):
		return fmt.Errorf("%w: %w", process.ErrAccessDenied, err)
	}
	return err
}
