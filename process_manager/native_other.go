//go:build !linux && !windows

package process_manager

import (
	"yclass/process"
)

func defaultOpener(process.ProcessID) (process.Handle, error) {
	return nil, ErrNativeUnsupported
}
