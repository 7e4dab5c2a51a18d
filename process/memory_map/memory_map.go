package memory_map

import (
	"fmt"
	"sort"
	"strings"
)

// Protection is the set of access permissions of a memory region
type Protection uint8

const (
	ProtRead Protection = 1 << iota
	ProtWrite
	ProtExec
	ProtShared
)

func (p Protection) Readable() bool   { return p&ProtRead != 0 }
func (p Protection) Writable() bool   { return p&ProtWrite != 0 }
func (p Protection) Executable() bool { return p&ProtExec != 0 }

// String renders the protection in /proc/<pid>/maps form, e.g. "r-xp"
func (p Protection) String() string {
	var sb strings.Builder
	sb.WriteByte(flagChar(p.Readable(), 'r'))
	sb.WriteByte(flagChar(p.Writable(), 'w'))
	sb.WriteByte(flagChar(p.Executable(), 'x'))
	if p&ProtShared != 0 {
		sb.WriteByte('s')
	} else {
		sb.WriteByte('p')
	}
	return sb.String()
}

func flagChar(set bool, c byte) byte {
	if set {
		return c
	}
	return '-'
}

// ParsePerms parses a /proc/<pid>/maps permission field such as "rw-p"
func ParsePerms(perms string) Protection {
	var p Protection
	if len(perms) > 0 && perms[0] == 'r' {
		p |= ProtRead
	}
	if len(perms) > 1 && perms[1] == 'w' {
		p |= ProtWrite
	}
	if len(perms) > 2 && perms[2] == 'x' {
		p |= ProtExec
	}
	if len(perms) > 3 && perms[3] == 's' {
		p |= ProtShared
	}
	return p
}

// Region represents one mapped range of a process's address space.
// To is the last addressable byte of the region, so both bounds are inclusive.
type Region struct {
	From  uintptr
	To    uintptr
	Perms Protection
	Path  string // backing file or pseudo name such as "[heap]", may be empty
}

// NewRegion builds a region from a start address and an exclusive end address
func NewRegion(start, end uintptr, perms Protection, path string) Region {
	return Region{From: start, To: end - 1, Perms: perms, Path: path}
}

// Size returns the size of the region in bytes
func (r Region) Size() uint64 {
	return uint64(r.To-r.From) + 1
}

// Contains reports whether addr lies within [From, To]
func (r Region) Contains(addr uintptr) bool {
	return r.From <= addr && addr <= r.To
}

// String returns a string representation of the region
func (r Region) String() string {
	s := fmt.Sprintf("%x-%x %s %d", r.From, r.To, r.Perms, r.Size())
	if r.Path != "" {
		s += " " + r.Path
	}
	return s
}

// Sort orders regions by start address, which Find relies on
func Sort(regions []Region) {
	sort.Slice(regions, func(i, j int) bool {
		return regions[i].From < regions[j].From
	})
}

// Find returns the region containing addr, or nil. regions must be sorted and non-overlapping.
func Find(addr uintptr, regions []Region) *Region {
	i := sort.Search(len(regions), func(i int) bool {
		return regions[i].To >= addr
	})
	if i < len(regions) && regions[i].From <= addr {
		return &regions[i]
	}

	return nil
}

// IsReadable checks if an address is within a readable region
func IsReadable(addr uintptr, regions []Region) bool {
	r := Find(addr, regions)
	return r != nil && r.Perms.Readable()
}

// IsWritable checks if an address is within a writable region
func IsWritable(addr uintptr, regions []Region) bool {
	r := Find(addr, regions)
	return r != nil && r.Perms.Writable()
}
