// Package hexdump renders remote memory as a hex dump with the bytes of the
// value being read highlighted.
package hexdump

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/Moonlight-Companies/gologger/coloransi"

	"procpeek/process"
)

// Options defines options for customizing the hexdump output
type Options struct {
	// BytesPerLine defines the number of bytes to display per line
	BytesPerLine int

	// StartAddress is the remote address of data[0]
	StartAddress process.ProcessMemoryAddress

	// Highlight marks [HighlightAddress, HighlightAddress+HighlightSize) in the dump
	HighlightAddress process.ProcessMemoryAddress
	HighlightSize    process.ProcessMemorySize

	// Color enables ANSI colors; without it highlighted bytes are wrapped in brackets
	Color bool
}

// DefaultOptions returns the default hexdump options
func DefaultOptions() Options {
	return Options{
		BytesPerLine: 16,
		Color:        true,
	}
}

// Dump creates a hex dump of the given data with specified options
func Dump(data []byte, options Options) string {
	var buffer bytes.Buffer
	DumpToWriter(&buffer, data, options)
	return buffer.String()
}

// DumpToWriter writes a hex dump of the given data to the specified writer
func DumpToWriter(writer io.Writer, data []byte, options Options) {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}

	for offset := 0; offset < len(data); offset += options.BytesPerLine {
		end := offset + options.BytesPerLine
		if end > len(data) {
			end = len(data)
		}
		formatLine(writer, data[offset:end], offset, options)
	}
}

// formatLine writes "address  hex bytes  |ascii|" for one line
func formatLine(writer io.Writer, data []byte, offset int, options Options) {
	addr := options.StartAddress + process.ProcessMemoryAddress(offset)
	fmt.Fprintf(writer, "%016x  ", uint64(addr))

	hexParts := make([]string, 0, options.BytesPerLine)
	var ascii strings.Builder
	for i, b := range data {
		hexValue := fmt.Sprintf("%02x", b)
		char := "."
		if b >= 0x20 && b < 0x7f {
			char = string(rune(b))
		}

		if options.highlighted(addr + process.ProcessMemoryAddress(i)) {
			hexValue = options.mark(hexValue)
			char = options.mark(char)
		}
		hexParts = append(hexParts, hexValue)
		ascii.WriteString(char)
	}

	fmt.Fprint(writer, strings.Join(hexParts, " "))

	// keep the ascii column aligned on a short last line
	if missing := options.BytesPerLine - len(data); missing > 0 {
		fmt.Fprint(writer, strings.Repeat("   ", missing))
	}

	fmt.Fprintf(writer, "  |%s|\n", ascii.String())
}

func (o Options) highlighted(addr process.ProcessMemoryAddress) bool {
	if o.HighlightSize == 0 || addr < o.HighlightAddress {
		return false
	}
	return uint64(addr-o.HighlightAddress) < uint64(o.HighlightSize)
}

func (o Options) mark(s string) string {
	if o.Color {
		return coloransi.Color(coloransi.ColorOrange, coloransi.ColorPurple, s)
	}
	return "[" + s + "]"
}
