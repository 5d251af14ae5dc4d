package process

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// PointerWidth is the host pointer width in bits. Address arithmetic wraps at this width.
const PointerWidth = bits.UintSize

const addressMask = uint64(1<<(PointerWidth-1)) | (uint64(1<<(PointerWidth-1)) - 1)

// Address is an immutable memory address within a foreign process.
// The hex and decimal forms are derived from the same value and always agree.
type Address struct {
	decimal  uint64
	overflow bool
}

// FromDecimal creates an Address from its numeric value, wrapping at the pointer width
func FromDecimal(d uint64) Address {
	return Address{decimal: d & addressMask, overflow: d&^addressMask != 0}
}

// ParseHex parses a hexadecimal address. An optional 0x prefix is accepted.
func ParseHex(s string) (Address, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	if raw == "" {
		return Address{}, fmt.Errorf("%w: empty hex address %q", ErrFormat, s)
	}

	v, err := strconv.ParseUint(raw, 16, PointerWidth)
	if err != nil {
		return Address{}, fmt.Errorf("%w: invalid hex address %q: %v", ErrFormat, s, err)
	}
	return Address{decimal: v}, nil
}

// MustParseHex is like ParseHex but panics on malformed input
func MustParseHex(s string) Address {
	a, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return a
}

// ParseDecimal parses a base 10 address
func ParseDecimal(s string) (Address, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, PointerWidth)
	if err != nil {
		return Address{}, fmt.Errorf("%w: invalid decimal address %q: %v", ErrFormat, s, err)
	}
	return Address{decimal: v}, nil
}

// Decimal returns the numeric value of the address
func (a Address) Decimal() uint64 {
	return a.decimal
}

// Uintptr returns the address as a native pointer-sized integer
func (a Address) Uintptr() uintptr {
	return uintptr(a.decimal)
}

// Hex returns the canonical uppercase hex form without prefix
func (a Address) Hex() string {
	return strings.ToUpper(strconv.FormatUint(a.decimal, 16))
}

// Overflowed reports whether this address, or any address it was computed from, wrapped past the pointer width
func (a Address) Overflowed() bool {
	return a.overflow
}

// Equal compares values, ignoring the overflow flag
func (a Address) Equal(b Address) bool {
	return a.decimal == b.decimal
}

func (a Address) IsZero() bool {
	return a.decimal == 0
}

// Add returns a + b
func (a Address) Add(b Address) Address {
	r := a.AddInt(b.decimal)
	r.overflow = r.overflow || b.overflow
	return r
}

// AddInt returns a + n
func (a Address) AddInt(n uint64) Address {
	sum, carry := bits.Add64(a.decimal, n, 0)
	r := FromDecimal(sum)
	r.overflow = r.overflow || carry != 0 || a.overflow
	return r
}

// AddHex returns a + the value of the hex string h
func (a Address) AddHex(h string) (Address, error) {
	off, err := ParseHex(h)
	if err != nil {
		return Address{}, err
	}
	return a.Add(off), nil
}

// Scale returns a * n
func (a Address) Scale(n uint64) Address {
	hi, lo := bits.Mul64(a.decimal, n)
	r := FromDecimal(lo)
	r.overflow = r.overflow || hi != 0 || a.overflow
	return r
}

// String returns the diagnostic form "<HEX> decimal=<DEC>"
func (a Address) String() string {
	return fmt.Sprintf("%s decimal=%d", a.Hex(), a.decimal)
}

// GoString makes %#v output readable in test failures
func (a Address) GoString() string {
	return fmt.Sprintf("<Address hex=%s decimal=%d>", a.Hex(), a.decimal)
}

// ProcessMemorySize represents a size of memory region
type ProcessMemorySize uint

func (pms ProcessMemorySize) ToString() string {
	return fmt.Sprintf("%d bytes", uint(pms))
}
