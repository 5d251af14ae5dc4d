package process

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueKind is the closed set of payload encodings understood by the reader
type ValueKind int

const (
	KindInt     ValueKind = iota // signed little-endian integer, 1, 2, 4 or 8 bytes
	KindFloat32                  // IEEE-754 binary32
	KindString                   // fixed-size text buffer, sanitized to [A-Za-z0-9]
)

func (k ValueKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat32:
		return "float"
	case KindString:
		return "str"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseValueKind accepts the names used in chain definition files ("int", "float", "str") and the
// struct-module style tags "i" and "f"
func ParseValueKind(s string) (ValueKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int", "i", "integer":
		return KindInt, nil
	case "float", "f", "float32":
		return KindFloat32, nil
	case "str", "string", "s":
		return KindString, nil
	}
	return 0, fmt.Errorf("unknown value kind %q", s)
}

// CheckWidth validates width for kind
func (k ValueKind) CheckWidth(width ProcessMemorySize) error {
	switch k {
	case KindInt:
		switch width {
		case 1, 2, 4, 8:
			return nil
		}
	case KindFloat32:
		if width == 4 {
			return nil
		}
	case KindString:
		if width > 0 {
			return nil
		}
	default:
		return fmt.Errorf("unknown value kind %d", int(k))
	}
	return fmt.Errorf("%w: %s with %s", ErrWidthMismatch, k, width.ToString())
}

// Value is one decoded payload. Only the field selected by Kind is meaningful.
type Value struct {
	Kind  ValueKind
	Int   int64
	Float float32
	Str   string
}

func IntValue(v int64) Value {
	return Value{Kind: KindInt, Int: v}
}

func FloatValue(v float32) Value {
	return Value{Kind: KindFloat32, Float: v}
}

func StringValue(v string) Value {
	return Value{Kind: KindString, Str: v}
}

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat32:
		return fmt.Sprintf("%g", v.Float)
	case KindString:
		return v.Str
	}
	return "<invalid>"
}

// ParseValue reads a value of the given kind from its text form, as typed on a command line
func ParseValue(kind ValueKind, s string) (Value, error) {
	switch kind {
	case KindInt:
		v, err := strconv.ParseInt(strings.TrimSpace(s), 0, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: invalid int %q: %v", ErrFormat, s, err)
		}
		return IntValue(v), nil
	case KindFloat32:
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
		if err != nil {
			return Value{}, fmt.Errorf("%w: invalid float %q: %v", ErrFormat, s, err)
		}
		return FloatValue(float32(v)), nil
	case KindString:
		return StringValue(s), nil
	}
	return Value{}, fmt.Errorf("%w: unknown kind %s", ErrFormat, kind)
}

// Decode converts raw bytes read from memory into a Value of the given kind.
// The width is taken from len(raw).
func Decode(kind ValueKind, raw []byte) (Value, error) {
	width := ProcessMemorySize(len(raw))
	if err := kind.CheckWidth(width); err != nil {
		return Value{}, err
	}

	switch kind {
	case KindInt:
		var v int64
		switch width {
		case 1:
			v = int64(int8(raw[0]))
		case 2:
			v = int64(int16(binary.LittleEndian.Uint16(raw)))
		case 4:
			v = int64(int32(binary.LittleEndian.Uint32(raw)))
		case 8:
			v = int64(binary.LittleEndian.Uint64(raw))
		}
		return IntValue(v), nil
	case KindFloat32:
		return FloatValue(math.Float32frombits(binary.LittleEndian.Uint32(raw))), nil
	default:
		return StringValue(SanitizeText(raw)), nil
	}
}

// Encode converts v into a buffer of exactly width bytes. Strings are ASCII encoded and
// zero padded or truncated to width.
func Encode(v Value, width ProcessMemorySize) ([]byte, error) {
	if err := v.Kind.CheckWidth(width); err != nil {
		return nil, err
	}

	buf := make([]byte, width)
	switch v.Kind {
	case KindInt:
		if !fitsSigned(v.Int, width) {
			return nil, fmt.Errorf("%w: %d does not fit in %s", ErrWidthMismatch, v.Int, width.ToString())
		}
		switch width {
		case 1:
			buf[0] = byte(int8(v.Int))
		case 2:
			binary.LittleEndian.PutUint16(buf, uint16(int16(v.Int)))
		case 4:
			binary.LittleEndian.PutUint32(buf, uint32(int32(v.Int)))
		case 8:
			binary.LittleEndian.PutUint64(buf, uint64(v.Int))
		}
	case KindFloat32:
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v.Float))
	case KindString:
		for i := 0; i < len(v.Str) && i < len(buf); i++ {
			c := v.Str[i]
			if c > 0x7F {
				return nil, fmt.Errorf("non-ASCII byte 0x%02X at %d in %q", c, i, v.Str)
			}
			buf[i] = c
		}
	}
	return buf, nil
}

func fitsSigned(v int64, width ProcessMemorySize) bool {
	if width >= 8 {
		return true
	}
	limit := int64(1) << (8*width - 1)
	return v >= -limit && v < limit
}

// SanitizeText drops every byte that is not an ASCII letter or digit. Fixed-size string
// buffers in game memory are full of padding and garbage; only the alphanumerics are kept.
func SanitizeText(raw []byte) string {
	var sb strings.Builder
	sb.Grow(len(raw))
	for _, c := range raw {
		if ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
