//go:build windows

package process_manager

import (
	"yclass/process_windows"
)

var defaultOpener = process_windows.Opener
