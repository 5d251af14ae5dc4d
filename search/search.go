// Package search discovers pointer chains that lead from a base address to a known value.
// Every result is a list of hex offsets that chain.Resolver walks back to the matching field.
package search

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"winbot/chain"
	"winbot/process"

	"github.com/samber/lo"
)

// BytesReader is the part of memory.Accessor a search needs
type BytesReader interface {
	ReadBytes(addr process.Address, width process.ProcessMemorySize) ([]byte, error)
}

// Searcher holds configuration for the search
type Searcher struct {
	MaxStructSize uint
	MaxDepth      int
	MinAlignment  uint
	SearchFor     func([]byte) bool
	IsPointer     func(uint32) bool

	err error
}

// Option is a function that configures a Searcher
type Option func(*Searcher)

func WithMaxStructSize(size uint) Option {
	return func(s *Searcher) {
		s.MaxStructSize = size
	}
}

func WithMaxDepth(depth int) Option {
	return func(s *Searcher) {
		s.MaxDepth = depth
	}
}

func WithMinAlignment(align uint) Option {
	return func(s *Searcher) {
		s.MinAlignment = align
	}
}

// WithValue searches for v encoded at width bytes
func WithValue(v process.Value, width process.ProcessMemorySize) Option {
	return func(s *Searcher) {
		want, err := process.Encode(v, width)
		if err != nil {
			s.err = fmt.Errorf("search value: %w", err)
			return
		}
		s.SearchFor = func(data []byte) bool {
			return bytes.HasPrefix(data, want)
		}
	}
}

// WithPointerFilter limits which words are followed as pointers, e.g. to a module's range
func WithPointerFilter(fn func(uint32) bool) Option {
	return func(s *Searcher) {
		s.IsPointer = fn
	}
}

// Result is one chain that reached the target
type Result struct {
	Offsets []process.Address
	Address process.Address // where the value was found
}

// HexOffsets returns the offsets in the form chain.Resolver accepts
func (r Result) HexOffsets() []string {
	return lo.Map(r.Offsets, func(a process.Address, _ int) string {
		return a.Hex()
	})
}

// Chain returns r as a chain rooted at base
func (r Result) Chain(base process.Address) chain.Chain {
	return chain.Chain{Base: base, Offsets: r.HexOffsets()}
}

var ErrNoTarget = errors.New("no search target specified")

// Search dereferences base like the first hop of a chain, then scans the structure found there.
// Matching words become results; words that look like pointers are followed up to MaxDepth.
// A struct reachable along several paths is reported along each of them, cycles excepted.
func Search(mem BytesReader, base process.Address, options ...Option) ([]Result, error) {
	s := &Searcher{
		MaxStructSize: 256,
		MaxDepth:      3,
		MinAlignment:  4,
		IsPointer: func(v uint32) bool {
			return v != 0
		},
	}

	for _, opt := range options {
		opt(s)
	}

	if s.err != nil {
		return nil, s.err
	}
	if s.SearchFor == nil {
		return nil, ErrNoTarget
	}
	if s.MinAlignment == 0 {
		s.MinAlignment = 1
	}

	root, err := readPointer(mem, base)
	if err != nil {
		return nil, fmt.Errorf("search base 0x%s: %w", base.Hex(), err)
	}

	var results []Result
	// shallowest depth each struct was scanned at; reaching it again shallower rescans it
	expanded := make(map[uint64]int)

	var searchRecursive func(addr process.Address, depth int, path []process.Address)
	searchRecursive = func(addr process.Address, depth int, path []process.Address) {
		if depth >= s.MaxDepth {
			return
		}
		if prev, ok := expanded[addr.Decimal()]; ok && prev <= depth {
			return
		}
		expanded[addr.Decimal()] = depth

		data, err := mem.ReadBytes(addr, process.ProcessMemorySize(s.MaxStructSize))
		if err != nil {
			// unreadable struct, the chain ends here
			return
		}

		for offset := uint(0); offset+s.MinAlignment <= uint(len(data)); offset += s.MinAlignment {
			off := process.FromDecimal(uint64(offset))
			newPath := append(append([]process.Address{}, path...), off)

			if s.SearchFor(data[offset:]) {
				results = append(results, Result{Offsets: newPath, Address: addr.Add(off)})
			}

			if offset%chainPointerSize == 0 && offset+chainPointerSize <= uint(len(data)) {
				ptr := binary.LittleEndian.Uint32(data[offset:])
				if s.IsPointer(ptr) {
					searchRecursive(process.FromDecimal(uint64(ptr)), depth+1, newPath)
				}
			}
		}
	}

	searchRecursive(root, 0, nil)

	return results, nil
}

const chainPointerSize = uint(chain.PointerSize)

func readPointer(mem BytesReader, addr process.Address) (process.Address, error) {
	data, err := mem.ReadBytes(addr, chain.PointerSize)
	if err != nil {
		return process.Address{}, err
	}
	return process.FromDecimal(uint64(binary.LittleEndian.Uint32(data))), nil
}

