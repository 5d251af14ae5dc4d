// Package chain walks multi-level pointer chains in a foreign process.
//
// A chain is a base address and an ordered list of hex offsets. Each hop reads a 4-byte
// pointer at the current address and adds the hop's offset to it; the sum after the last
// hop is the address of the field itself and is not dereferenced again:
//
//	base -> [ptrA] + off0 -> [ptrB] + off1 -> ... -> [ptrN] + offN = result
package chain

import (
	"errors"
	"fmt"

	"winbot/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/samber/lo"
)

// PointerSize is the width of every pointer read while walking a chain
const PointerSize process.ProcessMemorySize = 4

var ErrEmptyChain = errors.New("pointer chain needs at least one offset")

// PointerReader is the part of memory.Accessor the resolver needs
type PointerReader interface {
	ReadUint32(addr process.Address) (uint32, error)
}

// ChainBrokenError reports the hop whose pointer read failed
type ChainBrokenError struct {
	Hop     int             // index into the offset list
	Address process.Address // address that could not be read
	Err     error
}

func (e *ChainBrokenError) Error() string {
	return fmt.Sprintf("pointer chain broken at hop %d (0x%s): %v", e.Hop, e.Address.Hex(), e.Err)
}

func (e *ChainBrokenError) Unwrap() error {
	return e.Err
}

// Hop records one dereference of a walk
type Hop struct {
	Index   int
	Address process.Address // where the pointer was read
	Pointer process.Address // value read there
	Offset  process.Address
	Next    process.Address // Pointer + Offset
}

func (h Hop) String() string {
	return fmt.Sprintf("hop %d: *(0x%s) = 0x%s + 0x%s => 0x%s", h.Index, h.Address.Hex(), h.Pointer.Hex(), h.Offset.Hex(), h.Next.Hex())
}

// Chain is a base address and its ordered offsets
type Chain struct {
	Base    process.Address
	Offsets []string
}

// ParseOffsets converts hex offsets up front so a malformed chain fails before any read
func ParseOffsets(offsets []string) ([]process.Address, error) {
	if len(offsets) == 0 {
		return nil, ErrEmptyChain
	}

	var firstErr error
	parsed := lo.Map(offsets, func(s string, i int) process.Address {
		a, err := process.ParseHex(s)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("offset %d: %w", i, err)
		}
		return a
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return parsed, nil
}

type Resolver struct {
	mem PointerReader
	log *logger.Logger
}

func NewResolver(mem PointerReader) *Resolver {
	return &Resolver{
		mem: mem,
		log: logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "chain")),
	}
}

// Resolve walks offsets from base and returns the final field address
func (r *Resolver) Resolve(base process.Address, offsets ...string) (process.Address, error) {
	final, _, err := r.Trace(base, offsets...)
	return final, err
}

// ResolveChain is Resolve for a Chain value
func (r *Resolver) ResolveChain(c Chain) (process.Address, error) {
	return r.Resolve(c.Base, c.Offsets...)
}

// Trace is Resolve that also returns every completed hop. On failure the hops before the
// broken one are returned along with a *ChainBrokenError.
func (r *Resolver) Trace(base process.Address, offsets ...string) (process.Address, []Hop, error) {
	parsed, err := ParseOffsets(offsets)
	if err != nil {
		return process.Address{}, nil, err
	}

	hops := make([]Hop, 0, len(parsed))
	current := base

	for i, off := range parsed {
		ptr, err := r.mem.ReadUint32(current)
		if err != nil {
			r.log.Debugln("chain broken at hop", i, "reading", "0x"+current.Hex(), err)
			return process.Address{}, hops, &ChainBrokenError{Hop: i, Address: current, Err: err}
		}

		pointer := process.FromDecimal(uint64(ptr))
		next := pointer.Add(off)
		hops = append(hops, Hop{Index: i, Address: current, Pointer: pointer, Offset: off, Next: next})
		current = next
	}

	return current, hops, nil
}
