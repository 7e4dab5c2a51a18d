package hexdump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unsafe"

	"github.com/Moonlight-Companies/gologger/coloransi"
)

const pointerSize = int(unsafe.Sizeof(uintptr(0)))

// HexDumpOptions defines options for customizing the hexdump output
type HexDumpOptions struct {
	// BytesPerLine defines the number of bytes to display per line
	BytesPerLine int

	// GroupSize defines the grouping of bytes (usually 1, 2, 4, or 8)
	GroupSize int

	// ShowASCII determines whether to show the ASCII representation
	ShowASCII bool

	// StartAddress is the address of the first byte, printed in the offset column
	StartAddress uintptr

	// Color enables ANSI colors
	Color bool

	// OffsetColor is the color for the address column
	OffsetColor coloransi.ColorCode

	// HexColor is the color for the hex values
	HexColor coloransi.ColorCode

	// ZeroColor is the color for zero bytes (0x00)
	ZeroColor coloransi.ColorCode

	// PointerColor is the color for pointer annotations
	PointerColor coloransi.ColorCode

	// IsPointer, when set, is asked about every pointer-sized value at the start of a line.
	// Values it accepts are listed after the ASCII column.
	IsPointer func(addr uintptr) bool
}

// DefaultOptions returns the default hexdump options
func DefaultOptions() HexDumpOptions {
	return HexDumpOptions{
		BytesPerLine: 16,
		GroupSize:    1,
		ShowASCII:    true,
		Color:        true,
		OffsetColor:  coloransi.Cyan,
		HexColor:     coloransi.White,
		ZeroColor:    coloransi.BrightBlack,
		PointerColor: coloransi.Yellow,
	}
}

// Dump creates a hex dump of the given data
func Dump(data []byte, options HexDumpOptions) string {
	var buffer bytes.Buffer
	DumpToWriter(&buffer, data, options)
	return buffer.String()
}

// DumpToWriter writes a hex dump of the given data to the specified writer
func DumpToWriter(writer io.Writer, data []byte, options HexDumpOptions) {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}
	if options.GroupSize <= 0 {
		options.GroupSize = 1
	}

	for offset := 0; offset < len(data); offset += options.BytesPerLine {
		end := min(offset+options.BytesPerLine, len(data))
		formatLine(writer, data[offset:end], options.StartAddress+uintptr(offset), options)
	}
}

func formatLine(writer io.Writer, data []byte, addr uintptr, options HexDumpOptions) {
	fmt.Fprint(writer, paint(options, options.OffsetColor, fmt.Sprintf("%0*x", pointerSize*2, addr)), "  ")

	var groups []string
	for i := 0; i < len(data); i += options.GroupSize {
		end := min(i+options.GroupSize, len(data))

		var sb strings.Builder
		for _, b := range data[i:end] {
			color := options.HexColor
			if b == 0 {
				color = options.ZeroColor
			}
			sb.WriteString(paint(options, color, fmt.Sprintf("%02x", b)))
		}
		groups = append(groups, sb.String())
	}
	fmt.Fprint(writer, strings.Join(groups, " "))

	// Padding to keep the ASCII column aligned on short lines
	if missing := options.BytesPerLine - len(data); missing > 0 {
		fullGroups := (options.BytesPerLine + options.GroupSize - 1) / options.GroupSize
		curGroups := (len(data) + options.GroupSize - 1) / options.GroupSize
		fmt.Fprint(writer, strings.Repeat(" ", missing*2+fullGroups-curGroups))
	}

	if options.ShowASCII {
		fmt.Fprint(writer, " |")
		for _, b := range data {
			c := rune(b)
			if b < 0x80 && unicode.IsPrint(c) {
				fmt.Fprint(writer, string(c))
			} else {
				fmt.Fprint(writer, paint(options, options.ZeroColor, "."))
			}
		}
		fmt.Fprint(writer, "|")
	}

	if options.IsPointer != nil {
		for i := 0; i+pointerSize <= len(data); i += pointerSize {
			ptr := readPointer(data[i:])
			if ptr != 0 && options.IsPointer(ptr) {
				fmt.Fprint(writer, " ", paint(options, options.PointerColor, fmt.Sprintf("-> 0x%x", ptr)))
			}
		}
	}

	fmt.Fprintln(writer)
}

func readPointer(b []byte) uintptr {
	if pointerSize == 8 {
		return uintptr(binary.LittleEndian.Uint64(b))
	}
	return uintptr(binary.LittleEndian.Uint32(b))
}

func paint(options HexDumpOptions, color coloransi.ColorCode, s string) string {
	if !options.Color {
		return s
	}
	return coloransi.Foreground(color, s)
}

// HexdumpBasic dumps data read at addr, marking values that isPointer accepts
func HexdumpBasic(data []byte, addr uintptr, isPointer func(uintptr) bool) string {
	options := DefaultOptions()
	options.StartAddress = addr
	options.IsPointer = isPointer
	return Dump(data, options)
}
