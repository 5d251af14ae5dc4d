// Package memreader binds the locator, accessor and chain resolver to one target:
// it finds the window, its owning process and a module's base, then opens the process.
package memreader

import (
	"fmt"

	"winbot/chain"
	"winbot/locator"
	"winbot/memory"
	"winbot/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

type Option func(*options)

type options struct {
	windowClass string
	windowTitle string
	access      process.AccessFlags
	log         *logger.Logger
}

func WithWindowClass(class string) Option {
	return func(o *options) {
		o.windowClass = class
	}
}

func WithWindowTitle(title string) Option {
	return func(o *options) {
		o.windowTitle = title
	}
}

// WithAccess overrides memory.DefaultAccess
func WithAccess(access process.AccessFlags) Option {
	return func(o *options) {
		o.access = access
	}
}

// WithLogger replaces the reader's own "memreader-<pid>" logger
func WithLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

type MemoryReader struct {
	pid      process.ProcessID
	hwnd     process.WindowHandle
	module   process.ModuleInfo
	mem      *memory.Accessor
	resolver *chain.Resolver
	log      *logger.Logger
}

// New locates the target and opens it. moduleName is matched case-insensitively as a substring.
func New(sys process.System, moduleName string, opts ...Option) (*MemoryReader, error) {
	o := options{access: memory.DefaultAccess}
	for _, opt := range opts {
		opt(&o)
	}

	loc := locator.New(sys)
	pid, hwnd, err := loc.FindProcess(o.windowClass, o.windowTitle)
	if err != nil {
		return nil, err
	}

	module, err := loc.FindModule(pid, moduleName)
	if err != nil {
		return nil, err
	}

	mem, err := memory.Open(sys, pid, o.access)
	if err != nil {
		return nil, err
	}

	if o.log == nil {
		o.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("memreader-%d", pid)))
	}

	mr := &MemoryReader{
		pid:      pid,
		hwnd:     hwnd,
		module:   module,
		mem:      mem,
		resolver: chain.NewResolver(mem),
		log:      o.log,
	}
	mr.log.Infoln("Attached to", module)
	return mr, nil
}

func (mr *MemoryReader) PID() process.ProcessID {
	return mr.pid
}

// HWND is the window the process was found through, for input injection
func (mr *MemoryReader) HWND() process.WindowHandle {
	return mr.hwnd
}

func (mr *MemoryReader) Module() process.ModuleInfo {
	return mr.module
}

func (mr *MemoryReader) ModuleBase() process.Address {
	return mr.module.Base
}

func (mr *MemoryReader) Accessor() *memory.Accessor {
	return mr.mem
}

// FinalPointer resolves a chain whose base is given relative to the module base
func (mr *MemoryReader) FinalPointer(baseOffset process.Address, offsets ...string) (process.Address, error) {
	return mr.resolver.Resolve(mr.module.Base.Add(baseOffset), offsets...)
}

// TracePointer is FinalPointer returning the hops walked
func (mr *MemoryReader) TracePointer(baseOffset process.Address, offsets ...string) (process.Address, []chain.Hop, error) {
	return mr.resolver.Trace(mr.module.Base.Add(baseOffset), offsets...)
}

func (mr *MemoryReader) Read(addr process.Address, kind process.ValueKind, width process.ProcessMemorySize) (process.Value, error) {
	return mr.mem.Read(addr, kind, width)
}

func (mr *MemoryReader) Write(addr process.Address, v process.Value, width process.ProcessMemorySize) error {
	return mr.mem.Write(addr, v, width)
}

// Resolve evaluates a chain definition down to its field address. The definition's module
// must be the one this reader is attached to.
func (mr *MemoryReader) Resolve(d chain.Definition) (process.Address, error) {
	if err := d.Validate(); err != nil {
		return process.Address{}, err
	}
	if d.Module != "" && !mr.module.Matches(d.Module) {
		return process.Address{}, fmt.Errorf("chain %s is relative to %s, reader is attached to %s", d.Name, d.Module, mr.module.Name)
	}

	base, err := process.ParseHex(d.Base)
	if err != nil {
		return process.Address{}, err
	}
	return mr.FinalPointer(base, d.Offsets...)
}

// ReadDefinition resolves d and reads its value
func (mr *MemoryReader) ReadDefinition(d chain.Definition) (process.Value, error) {
	addr, err := mr.Resolve(d)
	if err != nil {
		return process.Value{}, err
	}
	kind, err := d.Kind()
	if err != nil {
		return process.Value{}, err
	}
	return mr.mem.Read(addr, kind, d.ByteWidth())
}

// WriteDefinition resolves d and writes v there
func (mr *MemoryReader) WriteDefinition(d chain.Definition, v process.Value) error {
	addr, err := mr.Resolve(d)
	if err != nil {
		return err
	}
	return mr.mem.Write(addr, v, d.ByteWidth())
}

func (mr *MemoryReader) Close() error {
	return mr.mem.Close()
}
