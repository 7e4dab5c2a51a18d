package memory_map

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// ParseMaps parses the /proc/<pid>/maps text format. Malformed lines are skipped.
// The result is sorted by start address.
func ParseMaps(r io.Reader) ([]Region, error) {
	var regions []Region
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		// Parse address range (e.g., "00400000-0040b000")
		startStr, endStr, ok := strings.Cut(fields[0], "-")
		if !ok {
			continue
		}

		startAddr, err := strconv.ParseUint(startStr, 16, 64)
		if err != nil {
			continue
		}

		endAddr, err := strconv.ParseUint(endStr, 16, 64)
		if err != nil || endAddr <= startAddr {
			continue
		}

		var path string
		if len(fields) >= 6 {
			path = strings.Join(fields[5:], " ")
		}

		regions = append(regions, NewRegion(uintptr(startAddr), uintptr(endAddr), ParsePerms(fields[1]), path))
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	Sort(regions)
	return regions, nil
}
