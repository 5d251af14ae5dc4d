package process

import (
	"fmt"
	"strings"
)

// ProcessID represents a unique identifier for a process
type ProcessID uint32

// WindowHandle identifies a top-level window. Input injection consumes it as is.
type WindowHandle uintptr

// AccessFlags are the rights requested when opening a process
type AccessFlags uint32

// Values match the Windows PROCESS_VM_* rights so they can be passed through unchanged.
const (
	AccessVMOperation AccessFlags = 0x0008
	AccessVMRead      AccessFlags = 0x0010
	AccessVMWrite     AccessFlags = 0x0020
)

// Has reports whether every right in want is present in f
func (f AccessFlags) Has(want AccessFlags) bool {
	return f&want == want
}

func (f AccessFlags) String() string {
	var parts []string
	if f.Has(AccessVMRead) {
		parts = append(parts, "read")
	}
	if f.Has(AccessVMWrite) {
		parts = append(parts, "write")
	}
	if f.Has(AccessVMOperation) {
		parts = append(parts, "operation")
	}
	if len(parts) == 0 {
		return fmt.Sprintf("none(0x%X)", uint32(f))
	}
	return strings.Join(parts, "|")
}

// ModuleInfo describes one module loaded in a target process at snapshot time
type ModuleInfo struct {
	Name string  // Module file name, e.g. "Game.exe"
	Path string  // Full path when the backend knows it
	Base Address // Load address
	Size uint32  // Image size in bytes
}

// Matches reports whether the module name contains substr, ignoring case
func (m ModuleInfo) Matches(substr string) bool {
	return strings.Contains(strings.ToLower(m.Name), strings.ToLower(substr))
}

func (m ModuleInfo) String() string {
	return fmt.Sprintf("%s base=0x%s size=0x%X", m.Name, m.Base.Hex(), m.Size)
}
