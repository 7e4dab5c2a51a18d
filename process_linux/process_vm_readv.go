//go:build linux

package process_linux

import (
	"fmt"
	"unsafe"

	"yclass/process"

	"golang.org/x/sys/unix"
)

// process_vm_readv uses the process_vm_readv syscall to fill localBuf from another process
func process_vm_readv(
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
		unix.SYS_PROCESS_VM_READV,
		uintptr(pid),                        // Remote process PID
		uintptr(unsafe.Pointer(&localIov)),  // Local iovec
		uintptr(1),                          // Number of local iovecs
		uintptr(unsafe.Pointer(&remoteIov)), // Remote iovec
		uintptr(1),                          // Number of remote iovecs
		uintptr(0),                          // Flags (reserved for future use)
	)

	if errno != 0 {
		return 0, fmt.Errorf("process_vm_readv failed: %w", errno)
	}

	return int(n), nil
}

// ReadMemory fills buf from the process memory at addr. Anything short of len(buf) bytes is an error.
func (p *LinuxProcess) ReadMemory(addr process.ProcessMemoryAddress, buf []byte) error {
	pid := p.pid
	if pid == 0 {
		return process.ErrProcessNotOpen
	}

	if len(buf) == 0 {
		return nil
	}

	if err := p.alive(); err != nil {
		return err
	}

	n, err := process_vm_readv(pid, buf, addr)
	if err != nil {
		return fmt.Errorf("failed to read process memory at %s: %w", addr.ToString(), classify(err))
	}

	if n != len(buf) {
		return fmt.Errorf("read %d of %d bytes at %s: %w", n, len(buf), addr.ToString(), process.ErrPartialTransfer)
	}

	p.log.Debugln("read", len(buf), "bytes at", addr.ToString())

	return nil
}
