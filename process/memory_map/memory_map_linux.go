//go:build linux

package memory_map

import (
	"fmt"
	"os"
)

// ReadMemoryMap reads and parses the memory map for a process from /proc/[pid]/maps
func ReadMemoryMap(pid int) ([]Region, error) {
	file, err := os.Open(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	regions, err := ParseMaps(file)
	if err != nil {
		// reading maps of a process we may not trace fails on the first read, not on open
		return nil, err
	}

	return regions, nil
}
