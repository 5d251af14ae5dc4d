package hexdump

import (
	"encoding/binary"
	"strings"
	"testing"

	"winbot/process"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plain() Options {
	o := DefaultOptions()
	o.Color = false
	return o
}

func TestDumpLines(t *testing.T) {
	data := append([]byte("Hello, World!!!!"), 0x00, 0x01, 0xFF, 'z')

	out := Dump(data, process.MustParseHex("40A000"), plain())
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)

	assert.True(t, strings.HasPrefix(lines[0], "0040A000  48 65 6c 6c 6f 2c 20 57 | 6f 72 6c 64"))
	assert.True(t, strings.HasSuffix(lines[0], "|Hello, W orld!!!!|"))

	assert.True(t, strings.HasPrefix(lines[1], "0040A010  00 01 ff 7a"))
	assert.True(t, strings.HasSuffix(lines[1], "|...z|"))
	assert.NotContains(t, out, "\x1b[")
}

func TestDumpPointers(t *testing.T) {
	data := make([]byte, 16)
	binary.LittleEndian.PutUint32(data[0:], 0x00401000)
	binary.LittleEndian.PutUint32(data[8:], 0x12345678)

	o := plain()
	o.IsPointer = func(v uint32) bool {
		return v >= 0x400000 && v < 0x500000
	}

	out := Dump(data, process.MustParseHex("1000"), o)
	assert.Contains(t, out, "0x401000")
	assert.NotContains(t, out, "0x12345678")
}

func TestDumpColor(t *testing.T) {
	o := DefaultOptions()
	o.HighlightStart = 4
	o.HighlightLen = 4

	out := Dump([]byte{1, 2, 3, 4, 5, 6, 7, 8}, process.MustParseHex("0"), o)
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "00000000")
}
