//go:build linux && cgo

// yc_procmem is an extension module that attaches through /proc/<pid>/mem.
//
// Build it with
//
//	go build -buildmode=c-shared -o plugin.ycpl ./cmd/yc_procmem
//
// and place plugin.ycpl in the working directory of yclass.
package main

/*
#include <stdbool.h>
#include <stdint.h>
*/
import "C"

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"unsafe"

	"yclass/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// status codes returned to the host
const (
	statusOK = iota
	statusNotAttached
	statusNotFound
	statusAccessDenied
	statusIO
	statusPartial
)

type target struct {
	pid     int
	mem     *os.File
	regions []memory_map.Region
}

var (
	mu       sync.Mutex
	attached *target
	log      = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "yc_procmem"))
)

func openErrorStatus(err error) C.uint32_t {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return statusNotFound
	case errors.Is(err, fs.ErrPermission):
		return statusAccessDenied
	}
	return statusIO
}

func closeLocked() {
	if attached == nil {
		return
	}
	attached.mem.Close()
	log.Infoln("Detached from", attached.pid)
	attached = nil
}

//export yc_attach
func yc_attach(pid C.uint32_t) C.uint32_t {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()

	regions, err := memory_map.ReadMemoryMap(int(pid))
	if err != nil {
		log.Warn("Failed to read memory map of ", pid, ": ", err)
		return openErrorStatus(err)
	}

	mem, err := os.OpenFile(fmt.Sprintf("/proc/%d/mem", pid), os.O_RDWR, 0)
	if err != nil {
		log.Warn("Failed to open memory of ", pid, ": ", err)
		return openErrorStatus(err)
	}

	attached = &target{pid: int(pid), mem: mem, regions: regions}
	log.Infoln("Attached to", pid)

	return statusOK
}

//export yc_read
func yc_read(address C.uintptr_t, out *C.uint8_t, length C.uintptr_t) C.uint32_t {
	mu.Lock()
	defer mu.Unlock()

	if attached == nil {
		return statusNotAttached
	}
	if length == 0 {
		return statusOK
	}

	buf := unsafe.Slice((*byte)(unsafe.Pointer(out)), int(length))
	n, err := attached.mem.ReadAt(buf, int64(address))
	if err != nil && n == 0 {
		return statusIO
	}
	if n != len(buf) {
		return statusPartial
	}

	return statusOK
}

//export yc_write
func yc_write(address C.uintptr_t, in *C.uint8_t, length C.uintptr_t) C.uint32_t {
	mu.Lock()
	defer mu.Unlock()

	if attached == nil {
		return statusNotAttached
	}
	if length == 0 {
		return statusOK
	}

	buf := unsafe.Slice((*byte)(unsafe.Pointer(in)), int(length))
	n, err := attached.mem.WriteAt(buf, int64(address))
	if err != nil && n == 0 {
		return statusIO
	}
	if n != len(buf) {
		return statusPartial
	}

	return statusOK
}

//export yc_can_read
func yc_can_read(address C.uintptr_t) C.bool {
	mu.Lock()
	defer mu.Unlock()

	if attached == nil {
		return C.bool(false)
	}

	return C.bool(memory_map.IsReadable(uintptr(address), attached.regions))
}

//export yc_detach
func yc_detach() {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()
}

func main() {}
