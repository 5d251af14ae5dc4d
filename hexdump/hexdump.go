package hexdump

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"winbot/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
)

// Options controls a dump of memory read around an address
type Options struct {
	// BytesPerLine defines the number of bytes to display per line
	BytesPerLine int

	// Color enables ANSI colors
	Color bool

	// HighlightStart and HighlightLen mark a field (relative to the start of the data) to highlight,
	// typically the value a chain resolved to
	HighlightStart int
	HighlightLen   int

	// IsPointer, when set, is asked about every aligned 4-byte word; words it accepts are
	// listed to the right of the line
	IsPointer func(uint32) bool

	OffsetColor    coloransi.ColorCode
	HexColor       coloransi.ColorCode
	ZeroColor      coloransi.ColorCode
	HighlightColor coloransi.ColorCode
	PointerColor   coloransi.ColorCode
}

// DefaultOptions returns the default hexdump options
func DefaultOptions() Options {
	return Options{
		BytesPerLine:   16,
		Color:          true,
		OffsetColor:    coloransi.Cyan,
		HexColor:       coloransi.Green,
		ZeroColor:      coloransi.BrightBlack,
		HighlightColor: coloransi.Yellow,
		PointerColor:   coloransi.Yellow,
	}
}

// Dump returns the dump as a string
func Dump(data []byte, base process.Address, options Options) string {
	var sb strings.Builder
	DumpToWriter(&sb, data, base, options)
	return sb.String()
}

// DumpToWriter writes one line per BytesPerLine bytes:
//
//	0040A000  00 01 02 03 04 05 06 07 | 08 09 0a 0b 0c 0d 0e 0f  |........ ........|  0x0040a010
func DumpToWriter(writer io.Writer, data []byte, base process.Address, options Options) {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}

	for offset := 0; offset < len(data); offset += options.BytesPerLine {
		end := offset + options.BytesPerLine
		if end > len(data) {
			end = len(data)
		}
		formatLine(writer, data[offset:end], offset, base.AddInt(uint64(offset)), options)
	}
}

func (o Options) paint(fg coloransi.ColorCode, s string) string {
	if !o.Color {
		return s
	}
	return coloransi.Foreground(fg, s)
}

func (o Options) highlighted(pos int) bool {
	return o.HighlightLen > 0 && pos >= o.HighlightStart && pos < o.HighlightStart+o.HighlightLen
}

func formatLine(writer io.Writer, line []byte, lineOffset int, addr process.Address, options Options) {
	fmt.Fprint(writer, options.paint(options.OffsetColor, fmt.Sprintf("%08X", addr.Decimal())), "  ")

	half := options.BytesPerLine / 2
	for i := 0; i < options.BytesPerLine; i++ {
		if i > 0 {
			if half >= 4 && i == half {
				fmt.Fprint(writer, " | ")
			} else {
				fmt.Fprint(writer, " ")
			}
		}
		if i >= len(line) {
			fmt.Fprint(writer, "  ")
			continue
		}

		b := line[i]
		color := options.HexColor
		switch {
		case options.highlighted(lineOffset + i):
			color = options.HighlightColor
		case b == 0:
			color = options.ZeroColor
		}
		fmt.Fprint(writer, options.paint(color, fmt.Sprintf("%02x", b)))
	}

	fmt.Fprint(writer, "  |")
	for i, b := range line {
		if half >= 4 && i == half {
			fmt.Fprint(writer, " ")
		}
		if b >= 0x20 && b < 0x7F {
			fmt.Fprintf(writer, "%c", b)
		} else {
			fmt.Fprint(writer, ".")
		}
	}
	fmt.Fprint(writer, "|")

	if options.IsPointer != nil {
		for i := 0; i+4 <= len(line); i += 4 {
			ptr := binary.LittleEndian.Uint32(line[i : i+4])
			if ptr != 0 && options.IsPointer(ptr) {
				fmt.Fprint(writer, "  ", options.paint(options.PointerColor, fmt.Sprintf("0x%x", ptr)))
			}
		}
	}

	fmt.Fprintln(writer)
}
