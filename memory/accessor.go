// Package memory reads and writes typed values in a foreign process through an owned handle.
package memory

import (
	"errors"
	"fmt"
	"sync"

	"winbot/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// DefaultAccess requests read, write and VM-operation rights together
const DefaultAccess = process.AccessVMRead | process.AccessVMWrite | process.AccessVMOperation

// Accessor owns one process handle. A single Accessor must not be used from several
// goroutines at once; separate Accessors are independent.
type Accessor struct {
	sys    process.System
	handle process.Handle
	log    *logger.Logger
	mu     sync.Mutex
}

// Open opens pid with the given rights
func Open(sys process.System, pid process.ProcessID, access process.AccessFlags) (*Accessor, error) {
	h, err := sys.OpenProcess(access, false, pid)
	if err != nil {
		if errors.Is(err, process.ErrAccessDenied) {
			return nil, err
		}
		return nil, fmt.Errorf("OpenProcess(%d, %s): %w: %v", pid, access, process.ErrAccessDenied, err)
	}
	if !h.IsValid() {
		return nil, fmt.Errorf("OpenProcess(%d, %s): %w: invalid handle", pid, access, process.ErrAccessDenied)
	}

	a := &Accessor{
		sys:    sys,
		handle: h,
		log:    logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid))),
	}
	a.log.Infoln("Process opened with", access)
	return a, nil
}

// PID is 0 once the accessor is closed
func (a *Accessor) PID() process.ProcessID {
	return a.Handle().PID()
}

func (a *Accessor) Handle() process.Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.handle
}

// Close releases the handle. Closing twice returns ErrProcessNotOpen.
func (a *Accessor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.handle.IsValid() {
		return process.ErrProcessNotOpen
	}

	err := a.sys.CloseHandle(a.handle)
	a.handle = process.Handle{}
	a.log.Infoln("Process closed")
	a.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))
	if err != nil {
		return fmt.Errorf("CloseHandle failed: %w", err)
	}
	return nil
}

func (a *Accessor) current() (process.Handle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.handle.IsValid() {
		return process.Handle{}, process.ErrProcessNotOpen
	}
	return a.handle, nil
}

// ReadBytes reads width raw bytes at addr. Any failure wraps process.ErrReadFailed; a failure
// caused by missing rights also wraps process.ErrAccessDenied.
func (a *Accessor) ReadBytes(addr process.Address, width process.ProcessMemorySize) ([]byte, error) {
	h, err := a.current()
	if err != nil {
		return nil, fmt.Errorf("%w at 0x%s: %w", process.ErrReadFailed, addr.Hex(), err)
	}
	if width == 0 {
		return []byte{}, nil
	}
	if !h.Access().Has(process.AccessVMRead) {
		return nil, fmt.Errorf("%w at 0x%s: %w", process.ErrReadFailed, addr.Hex(), process.ErrAccessDenied)
	}

	data, err := a.sys.ReadMemory(h, addr, width)
	if err != nil {
		return nil, fmt.Errorf("%w at 0x%s (%s): %w", process.ErrReadFailed, addr.Hex(), width.ToString(), err)
	}
	if len(data) != int(width) {
		return nil, fmt.Errorf("%w at 0x%s: read incomplete: expected %d, got %d", process.ErrReadFailed, addr.Hex(), width, len(data))
	}
	return data, nil
}

// Read reads width bytes at addr and decodes them as kind. When the read fails no decode is
// attempted and the error wraps process.ErrReadFailed; callers treat that as "no value right now".
func (a *Accessor) Read(addr process.Address, kind process.ValueKind, width process.ProcessMemorySize) (process.Value, error) {
	if err := kind.CheckWidth(width); err != nil {
		return process.Value{}, err
	}

	data, err := a.ReadBytes(addr, width)
	if err != nil {
		return process.Value{}, err
	}
	return process.Decode(kind, data)
}

// ReadInt32 reads a signed 32-bit integer
func (a *Accessor) ReadInt32(addr process.Address) (int32, error) {
	v, err := a.Read(addr, process.KindInt, 4)
	if err != nil {
		return 0, err
	}
	return int32(v.Int), nil
}

// ReadUint32 reads an unsigned 32-bit integer, the width of a pointer in a chain hop
func (a *Accessor) ReadUint32(addr process.Address) (uint32, error) {
	v, err := a.ReadInt32(addr)
	return uint32(v), err
}

// ReadFloat32 reads an IEEE-754 binary32 value
func (a *Accessor) ReadFloat32(addr process.Address) (float32, error) {
	v, err := a.Read(addr, process.KindFloat32, 4)
	if err != nil {
		return 0, err
	}
	return v.Float, nil
}

// ReadString reads a fixed-size text buffer and keeps only its ASCII letters and digits
func (a *Accessor) ReadString(addr process.Address, width process.ProcessMemorySize) (string, error) {
	v, err := a.Read(addr, process.KindString, width)
	if err != nil {
		return "", err
	}
	return v.Str, nil
}

// Write encodes v into width bytes and writes them at addr
func (a *Accessor) Write(addr process.Address, v process.Value, width process.ProcessMemorySize) error {
	h, err := a.current()
	if err != nil {
		return err
	}

	buf, err := process.Encode(v, width)
	if err != nil {
		return err
	}

	if !h.Access().Has(process.AccessVMWrite | process.AccessVMOperation) {
		return fmt.Errorf("write at 0x%s with %s: %w", addr.Hex(), h.Access(), process.ErrAccessDenied)
	}

	if err := a.sys.WriteMemory(h, addr, buf); err != nil {
		return fmt.Errorf("write %s at 0x%s: %w", width.ToString(), addr.Hex(), err)
	}
	return nil
}

func (a *Accessor) WriteInt32(addr process.Address, v int32) error {
	return a.Write(addr, process.IntValue(int64(v)), 4)
}

func (a *Accessor) WriteFloat32(addr process.Address, v float32) error {
	return a.Write(addr, process.FloatValue(v), 4)
}

func (a *Accessor) WriteString(addr process.Address, v string, width process.ProcessMemorySize) error {
	return a.Write(addr, process.StringValue(v), width)
}
