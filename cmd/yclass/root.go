package main

import (
	"fmt"
	"strconv"

	"yclass/config"
	"yclass/process"
	"yclass/process_manager"

	"github.com/spf13/cobra"
)

type globalFlags struct {
	configPath string
	pluginPath string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "yclass",
		Short: "Inspect and edit the memory of a running process",
		Long: `yclass attaches to a running process and reads or writes its memory.

Processes are attached natively through the OS unless an extension module is
available: plugin.ycpl in the working directory, plugin_path in the config
file, or --plugin. An explicitly configured module must exist.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default: $YCLASS_CONFIG or the user config dir)")
	cmd.PersistentFlags().StringVar(&flags.pluginPath, "plugin", "", "extension module to attach through")

	cmd.AddCommand(
		newPsCmd(),
		newAttachCmd(flags),
		newRegionsCmd(flags),
		newReadCmd(flags),
		newWriteCmd(flags),
		newCanReadCmd(flags),
		newPointerCmd(flags),
		newConfigCmd(flags),
	)

	return cmd
}

func (f *globalFlags) loader() *config.Loader {
	if f.configPath != "" {
		return config.NewLoaderForPath(f.configPath)
	}
	return config.NewLoader()
}

func (f *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := f.loader().Load()
	if err != nil {
		return nil, err
	}
	if f.pluginPath != "" {
		cfg.PluginPath = f.pluginPath
	}
	return cfg, nil
}

// attach builds a manager from the configuration and attaches it to the pid in arg.
// The returned manager must be closed by the caller.
func (f *globalFlags) attach(arg string) (*process_manager.Manager, error) {
	pid, err := parsePID(arg)
	if err != nil {
		return nil, err
	}

	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}

	m, err := process_manager.New(cfg)
	if err != nil {
		return nil, err
	}

	if err := m.Attach(pid); err != nil {
		m.Close()
		return nil, err
	}

	return m, nil
}

func parsePID(s string) (process.ProcessID, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid pid %q: %w", s, err)
	}
	return process.ProcessID(v), nil
}

// parseAddress accepts decimal, 0x hexadecimal and 0o octal forms
func parseAddress(s string) (process.ProcessMemoryAddress, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if uint64(uintptr(v)) != v {
		return 0, fmt.Errorf("address %q does not fit the host pointer width", s)
	}
	return process.ProcessMemoryAddress(v), nil
}

func parseSize(s string) (process.ProcessMemorySize, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return process.ProcessMemorySize(v), nil
}
