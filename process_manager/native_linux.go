//go:build linux

package process_manager

import (
	"yclass/process_linux"
)

var defaultOpener = process_linux.Opener
