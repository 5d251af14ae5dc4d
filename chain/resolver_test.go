package chain

import (
	"errors"
	"testing"

	"winbot/memory"
	"winbot/process"
	"winbot/process_blob"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapReader serves pointers from a map and counts reads
type mapReader struct {
	mem   map[uint64]uint32
	reads int
}

var errUnmapped = errors.New("unmapped")

func (m *mapReader) ReadUint32(addr process.Address) (uint32, error) {
	m.reads++
	v, ok := m.mem[addr.Decimal()]
	if !ok {
		return 0, errUnmapped
	}
	return v, nil
}

func hex(s string) process.Address {
	return process.MustParseHex(s)
}

func TestResolveZeroOffsets(t *testing.T) {
	r := &mapReader{mem: map[uint64]uint32{
		0x1000: 0x2000,
		0x2000: 0x3000,
	}}

	final, err := NewResolver(r).Resolve(hex("1000"), "0", "0")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x3000), final.Decimal())
	assert.Equal(t, 2, r.reads)
}

func TestTraceHops(t *testing.T) {
	r := &mapReader{mem: map[uint64]uint32{
		0x1000: 0x2000,
		0x2010: 0x3000,
	}}

	final, hops, err := NewResolver(r).Trace(hex("1000"), "10", "F8")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x30F8), final.Decimal())

	want := []Hop{
		{Index: 0, Address: hex("1000"), Pointer: hex("2000"), Offset: hex("10"), Next: hex("2010")},
		{Index: 1, Address: hex("2010"), Pointer: hex("3000"), Offset: hex("F8"), Next: hex("30F8")},
	}
	if diff := cmp.Diff(want, hops); diff != "" {
		t.Errorf("hops mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveSingleOffset(t *testing.T) {
	r := &mapReader{mem: map[uint64]uint32{0x500: 0x9000}}

	final, err := NewResolver(r).Resolve(hex("500"), "24")
	require.NoError(t, err)
	assert.Equal(t, "9024", final.Hex())
}

func TestResolveBrokenChain(t *testing.T) {
	r := &mapReader{mem: map[uint64]uint32{
		0x1000: 0x2000,
	}}

	_, hops, err := NewResolver(r).Trace(hex("1000"), "8", "4", "0")
	require.Error(t, err)

	var broken *ChainBrokenError
	require.True(t, errors.As(err, &broken))
	assert.Equal(t, 1, broken.Hop)
	assert.Equal(t, uint64(0x2008), broken.Address.Decimal())
	assert.ErrorIs(t, err, errUnmapped)
	assert.Len(t, hops, 1)
	assert.Equal(t, 2, r.reads)
}

func TestResolveRejectsBadChains(t *testing.T) {
	r := &mapReader{mem: map[uint64]uint32{0x1000: 0x2000}}
	res := NewResolver(r)

	_, err := res.Resolve(hex("1000"))
	assert.ErrorIs(t, err, ErrEmptyChain)

	_, err = res.Resolve(hex("1000"), "10", "zz")
	assert.ErrorIs(t, err, process.ErrFormat)
	assert.Contains(t, err.Error(), "offset 1")

	assert.Equal(t, 0, r.reads)
}

func TestResolveChainValue(t *testing.T) {
	r := &mapReader{mem: map[uint64]uint32{0x1000: 0x2000}}

	final, err := NewResolver(r).ResolveChain(Chain{Base: hex("1000"), Offsets: []string{"0x40"}})
	require.NoError(t, err)
	assert.Equal(t, uint64(0x2040), final.Decimal())
}

func TestResolveThroughAccessor(t *testing.T) {
	sys := process_blob.New()
	p := sys.AddProcess(7)
	p.Map(0x10000, 0x1000, "rw-p")
	require.NoError(t, p.PutUint32(0x10000, 0x10100))
	require.NoError(t, p.PutUint32(0x10140, 0x10800))
	require.NoError(t, p.PutInt32(0x1080C, 250))

	mem, err := memory.Open(sys, 7, memory.DefaultAccess)
	require.NoError(t, err)
	defer mem.Close()

	final, err := NewResolver(mem).Resolve(hex("10000"), "40", "C")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1080C), final.Decimal())

	hp, err := mem.ReadInt32(final)
	require.NoError(t, err)
	assert.Equal(t, int32(250), hp)

	// pointer into unmapped memory
	require.NoError(t, p.PutUint32(0x10140, 0xDEAD0000))
	_, err = NewResolver(mem).Resolve(hex("10000"), "40", "C", "0")
	var broken *ChainBrokenError
	require.ErrorAs(t, err, &broken)
	assert.Equal(t, 2, broken.Hop)
	assert.ErrorIs(t, err, process.ErrReadFailed)
}
