//go:build linux

package process_linux

import (
	"fmt"
	"unsafe"

	"yclass/process"

	"golang.org/x/sys/unix"
)

// process_vm_writev uses the process_vm_writev syscall to write localBuf to another process
func process_vm_writev(
	pid process.ProcessID,
	localBuf []byte,
	remoteAddr process.ProcessMemoryAddress,
) (int, error) {
	// Create iovec for local buffer
	var localIov unix.Iovec
	localIov.Base = &localBuf[0]
	localIov.SetLen(len(localBuf))

	// Create iovec for remote buffer
	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  len(localBuf),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_WRITEV,
		uintptr(pid),                        // Remote process PID
		uintptr(unsafe.Pointer(&localIov)),  // Local iovec
		uintptr(1),                          // Number of local iovecs
		uintptr(unsafe.Pointer(&remoteIov)), // Remote iovec
		uintptr(1),                          // Number of remote iovecs
		uintptr(0),                          // Flags (reserved for future use)
	)

	if errno != 0 {
		return 0, fmt.Errorf("process_vm_writev failed: %w", errno)
	}

	return int(n), nil
}

// WriteMemory writes data to the process memory at addr.
// The kernel honours page protections, so writing to a read-only mapping fails.
func (p *LinuxProcess) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	pid := p.pid
	if pid == 0 {
		return process.ErrProcessNotOpen
	}

	if len(data) == 0 {
		return nil
	}

	if err := p.alive(); err != nil {
		return err
	}

	written, err := process_vm_writev(pid, data, addr)
	if err != nil {
		return fmt.Errorf("failed to write process memory at %s: %w", addr.ToString(), classify(err))
	}

	if written != len(data) {
		return fmt.Errorf("only wrote %d of %d bytes at %s: %w", written, len(data), addr.ToString(), process.ErrPartialTransfer)
	}

	p.log.Debugln("wrote", len(data), "bytes at", addr.ToString())

	return nil
}
