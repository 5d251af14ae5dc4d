package process

import "fmt"

// Handle is an open capability over a foreign process. It is issued by a System and must be
// released through the same System exactly once.
type Handle struct {
	raw    uintptr
	pid    ProcessID
	access AccessFlags
}

// NewHandle is used by System implementations to wrap their native handle value
func NewHandle(raw uintptr, pid ProcessID, access AccessFlags) Handle {
	return Handle{raw: raw, pid: pid, access: access}
}

func (h Handle) Raw() uintptr {
	return h.raw
}

func (h Handle) PID() ProcessID {
	return h.pid
}

// Access returns the rights the handle was opened with
func (h Handle) Access() AccessFlags {
	return h.access
}

func (h Handle) IsValid() bool {
	return h.raw != 0
}

func (h Handle) String() string {
	return fmt.Sprintf("handle(0x%X pid=%d access=%s)", h.raw, h.pid, h.access)
}

// ModuleSnapshot iterates the modules of a process captured at one point in time.
// It follows the First/Next protocol of the OS primitive; ok is false once the snapshot is exhausted.
type ModuleSnapshot interface {
	First() (ModuleInfo, bool)
	Next() (ModuleInfo, bool)
	Close() error
}

// System is the set of OS process and memory primitives the core consumes
type System interface {
	// OpenProcess opens pid with the requested rights
	OpenProcess(access AccessFlags, inherit bool, pid ProcessID) (Handle, error)

	// ReadMemory reads size bytes at addr
	ReadMemory(h Handle, addr Address, size ProcessMemorySize) ([]byte, error)

	// WriteMemory writes data at addr
	WriteMemory(h Handle, addr Address, data []byte) error

	// CloseHandle releases a handle returned by OpenProcess
	CloseHandle(h Handle) error

	// SnapshotModules captures the loaded modules of pid
	SnapshotModules(pid ProcessID) (ModuleSnapshot, error)

	// FindWindow finds a top-level window. An empty class or title is passed to the OS as NULL.
	FindWindow(class, title string) (WindowHandle, error)

	// WindowOwnerProcessID returns the process that created hwnd
	WindowOwnerProcessID(hwnd WindowHandle) (ProcessID, error)
}
