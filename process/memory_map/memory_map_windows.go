//go:build windows

package memory_map

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// QueryMemoryMap walks the address space of an open process with VirtualQueryEx and
// returns every committed region.
func QueryMemoryMap(handle windows.Handle) ([]Region, error) {
	var regions []Region
	var mbi windows.MemoryBasicInformation

	addr := uintptr(0)
	for {
		err := windows.VirtualQueryEx(handle, addr, &mbi, unsafe.Sizeof(mbi))
		if err != nil {
			// ERROR_INVALID_PARAMETER marks the end of the user address space
			if err == windows.ERROR_INVALID_PARAMETER {
				break
			}
			return nil, err
		}

		if mbi.RegionSize == 0 {
			break
		}

		if mbi.State == windows.MEM_COMMIT {
			regions = append(regions, NewRegion(mbi.BaseAddress, mbi.BaseAddress+mbi.RegionSize, protectionFromPage(mbi.Protect), ""))
		}

		next := mbi.BaseAddress + mbi.RegionSize
		if next <= addr {
			break
		}
		addr = next
	}

	Sort(regions)
	return regions, nil
}

func protectionFromPage(protect uint32) Protection {
	if protect&(windows.PAGE_GUARD|windows.PAGE_NOACCESS) != 0 {
		return 0
	}

	switch protect & 0xff {
	case windows.PAGE_READONLY:
		return ProtRead
	case windows.PAGE_READWRITE:
		return ProtRead | ProtWrite
	case windows.PAGE_WRITECOPY:
		return ProtRead | ProtWrite
	case windows.PAGE_EXECUTE:
		return ProtExec
	case windows.PAGE_EXECUTE_READ:
		return ProtRead | ProtExec
	case windows.PAGE_EXECUTE_READWRITE, windows.PAGE_EXECUTE_WRITECOPY:
		return ProtRead | ProtWrite | ProtExec
	}
	return 0
}
