package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"yclass/hexdump"
	"yclass/process"
	"yclass/process_list"

	"github.com/spf13/cobra"
)

// maxReadSize bounds a single read command
const maxReadSize = 1 << 20

func newPsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ps [filter]",
		Short: "List processes, optionally filtered by name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := process_list.List(cmd.Context())
			if err != nil {
				return err
			}

			filter := ""
			if len(args) == 1 {
				filter = args[0]
			}

			for _, p := range process_list.Filter(list, filter) {
				cmd.Printf("%7d  %s\n", p.PID, p.Name)
			}
			return nil
		},
	}
}

func newAttachCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "attach <pid>",
		Short: "Attach to a process and report what the backend sees",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := flags.attach(args[0])
			if err != nil {
				return err
			}
			defer m.Close()

			name, err := m.Name()
			if err != nil {
				name = fmt.Sprintf("<%v>", err)
			}

			cmd.Printf("id:      %d\n", m.ID())
			cmd.Printf("name:    %s\n", name)
			cmd.Printf("mode:    %s\n", m.Mode())
			if regions := m.Regions(); regions != nil {
				cmd.Printf("regions: %d\n", len(regions))
			}
			return nil
		},
	}
}

func newRegionsCmd(flags *globalFlags) *cobra.Command {
	var readableOnly bool

	cmd := &cobra.Command{
		Use:   "regions <pid>",
		Short: "List the memory regions of a natively attached process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := flags.attach(args[0])
			if err != nil {
				return err
			}
			defer m.Close()

			regions := m.Regions()
			if regions == nil {
				return fmt.Errorf("regions are not available in %s mode", m.Mode())
			}

			for _, r := range regions {
				if readableOnly && !r.Perms.Readable() {
					continue
				}
				cmd.Println(r.String())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&readableOnly, "readable", false, "only list readable regions")
	return cmd
}

func newReadCmd(flags *globalFlags) *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "read <pid> <address> <length>",
		Short: "Hex dump memory of a process",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(args[1])
			if err != nil {
				return err
			}
			size, err := parseSize(args[2])
			if err != nil {
				return err
			}
			if size > maxReadSize {
				return fmt.Errorf("length %d exceeds the %d byte limit", size, maxReadSize)
			}

			m, err := flags.attach(args[0])
			if err != nil {
				return err
			}
			defer m.Close()

			if !m.CanRead(addr) {
				return fmt.Errorf("address %s is not readable", addr.ToString())
			}

			buf := make([]byte, size)
			if err := m.Read(addr, buf); err != nil {
				return err
			}

			options := hexdump.DefaultOptions()
			options.StartAddress = uintptr(addr)
			options.Color = !noColor
			options.IsPointer = func(p uintptr) bool {
				return m.CanRead(process.ProcessMemoryAddress(p))
			}
			hexdump.DumpToWriter(cmd.OutOrStdout(), buf, options)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}

func newWriteCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "write <pid> <address> <hex bytes>",
		Short: "Write bytes to the memory of a process",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(args[1])
			if err != nil {
				return err
			}
			data, err := hex.DecodeString(strings.ReplaceAll(args[2], " ", ""))
			if err != nil {
				return fmt.Errorf("invalid hex bytes: %w", err)
			}

			m, err := flags.attach(args[0])
			if err != nil {
				return err
			}
			defer m.Close()

			if err := m.Write(addr, data); err != nil {
				return err
			}

			cmd.Printf("wrote %d bytes at %s\n", len(data), addr.ToString())
			return nil
		},
	}
}

func newCanReadCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "can-read <pid> <address>",
		Short: "Report whether an address is readable",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(args[1])
			if err != nil {
				return err
			}

			m, err := flags.attach(args[0])
			if err != nil {
				return err
			}
			defer m.Close()

			cmd.Println(m.CanRead(addr))
			return nil
		},
	}
}

func newPointerCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "pointer <pid> <base> [offsets...]",
		Short: "Follow a pointer chain and print the pointer-sized value at its end",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := parseAddress(args[1])
			if err != nil {
				return err
			}

			offsets := make([]process.ProcessMemorySize, 0, len(args)-2)
			for _, a := range args[2:] {
				off, err := parseSize(a)
				if err != nil {
					return err
				}
				offsets = append(offsets, off)
			}

			m, err := flags.attach(args[0])
			if err != nil {
				return err
			}
			defer m.Close()

			addr, err := process.ResolvePath(m, base, offsets...)
			if err != nil {
				return err
			}

			value, err := process.Read[uintptr](m, addr)
			if err != nil {
				return err
			}

			cmd.Printf("%s: 0x%x\n", addr.ToString(), value)
			return nil
		},
	}
}

func newConfigCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}

			path, explicit := cfg.Plugin()
			if !explicit {
				path = "(none, plugin.ycpl used when present)"
			}

			cmd.Printf("config file: %s\n", flags.loader().Path())
			cmd.Printf("plugin:      %s\n", path)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set-plugin <path>",
		Short: "Store the extension module path; an empty path clears it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l := flags.loader()
			cfg, err := l.Load()
			if err != nil {
				return err
			}
			cfg.PluginPath = args[0]
			return l.Save(cfg)
		},
	})

	return cmd
}
