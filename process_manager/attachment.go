package process_manager

import (
	"yclass/process"
	"yclass/process/memory_map"
)

type attachKind uint8

const (
	attachNative attachKind = iota + 1
	attachExtension
)

// attachment is the live attachment. Exactly one variant is populated:
// native holds the OS handle and the region snapshot taken at attach,
// extension holds only the pid, everything else lives in the module.
type attachment struct {
	kind attachKind

	// attachNative
	handle  process.Handle
	regions []memory_map.Region

	// attachExtension
	pid process.ProcessID
}

func nativeAttachment(h process.Handle, regions []memory_map.Region) *attachment {
	memory_map.Sort(regions)
	return &attachment{kind: attachNative, handle: h, regions: regions}
}

func extensionAttachment(pid process.ProcessID) *attachment {
	return &attachment{kind: attachExtension, pid: pid}
}
