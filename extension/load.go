package extension

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

var loadLog = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "extension-loader"))

// LoadFromConfig resolves the module to use from a configured path.
//
// With explicit unset the path (DefaultPath when empty) is optional: when it does not exist
// LoadFromConfig returns a nil extension and a nil error, selecting native access.
// With explicit set a missing file is a configuration error wrapping ErrPluginMissing.
func LoadFromConfig(path string, explicit bool) (*Extension, error) {
	if path == "" {
		path = DefaultPath
	}

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{Path: path, Err: err}
		}
		if explicit {
			return nil, fmt.Errorf("%w: %s", ErrPluginMissing, path)
		}
		loadLog.Debugln("No extension at", path, "using native access")
		return nil, nil
	}

	return Load(path)
}

// Load maps the module at path and resolves every entry point. Either all five resolve
// and an Extension is returned, or the module is unmapped again and a *LoadError is returned.
func Load(path string) (*Extension, error) {
	// dlopen only searches the working directory for paths containing a slash
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	lib, err := openLibrary(abs)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	addrs := make(map[string]uintptr, len(Symbols))
	for _, sym := range Symbols {
		addr, err := lookupSymbol(lib, sym)
		if err == nil && addr == 0 {
			err = errors.New("symbol address is nil")
		}
		if err != nil {
			closeLibrary(lib)
			return nil, &LoadError{Path: path, Symbol: sym, Err: err}
		}
		addrs[sym] = addr
	}

	ep, err := bindEntryPoints(addrs)
	if err != nil {
		closeLibrary(lib)
		return nil, &LoadError{Path: path, Err: err}
	}

	loadLog.Infoln("Extension loaded:", path)

	return newExtension(path, ep, func() error { return closeLibrary(lib) }), nil
}
