//go:build windows

package process_windows

import (
	"errors"
	"fmt"
	"unsafe"

	"winbot/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/windows"
)

var (
	moduser32       = windows.NewLazySystemDLL("user32.dll")
	procFindWindowW = moduser32.NewProc("FindWindowW")
)

// snapshotRetries bounds retries of CreateToolhelp32Snapshot, which fails with
// ERROR_BAD_LENGTH while the target is loading or unloading modules
const snapshotRetries = 8

// WindowsSystem implements process.System on top of kernel32 and user32
type WindowsSystem struct {
	log *logger.Logger
}

var _ process.System = (*WindowsSystem)(nil)

func New() *WindowsSystem {
	return &WindowsSystem{
		log: logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "win32")),
	}
}

func mapAccessError(op string, err error) error {
	if errors.Is(err, windows.ERROR_ACCESS_DENIED) {
		return fmt.Errorf("%s: %w: %v", op, process.ErrAccessDenied, err)
	}
	return fmt.Errorf("%s failed: %w", op, err)
}

func (s *WindowsSystem) OpenProcess(access process.AccessFlags, inherit bool, pid process.ProcessID) (process.Handle, error) {
	h, err := windows.OpenProcess(uint32(access), inherit, uint32(pid))
	if err != nil {
		return process.Handle{}, fmt.Errorf("OpenProcess(%d): %w: %v", pid, process.ErrAccessDenied, err)
	}
	if h == 0 {
		return process.Handle{}, fmt.Errorf("OpenProcess(%d): %w: null handle", pid, process.ErrAccessDenied)
	}
	return process.NewHandle(uintptr(h), pid, access), nil
}

func (s *WindowsSystem) ReadMemory(h process.Handle, addr process.Address, size process.ProcessMemorySize) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}

	buf := make([]byte, size)
	var bytesRead uintptr
	err := windows.ReadProcessMemory(windows.Handle(h.Raw()), addr.Uintptr(), &buf[0], uintptr(size), &bytesRead)
	if err != nil {
		return nil, mapAccessError("ReadProcessMemory", err)
	}

	if bytesRead != uintptr(size) {
		return nil, fmt.Errorf("read incomplete: expected %d, got %d", size, bytesRead)
	}

	return buf, nil
}

func (s *WindowsSystem) WriteMemory(h process.Handle, addr process.Address, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	var written uintptr
	err := windows.WriteProcessMemory(windows.Handle(h.Raw()), addr.Uintptr(), &data[0], uintptr(len(data)), &written)
	if err != nil {
		return mapAccessError("WriteProcessMemory", err)
	}
	if written != uintptr(len(data)) {
		return fmt.Errorf("only wrote %d of %d bytes", written, len(data))
	}
	return nil
}

func (s *WindowsSystem) CloseHandle(h process.Handle) error {
	if err := windows.CloseHandle(windows.Handle(h.Raw())); err != nil {
		return fmt.Errorf("CloseHandle failed: %w", err)
	}
	return nil
}

func (s *WindowsSystem) SnapshotModules(pid process.ProcessID) (process.ModuleSnapshot, error) {
	var (
		snap windows.Handle
		err  error
	)
	for i := 0; i < snapshotRetries; i++ {
		snap, err = windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32, uint32(pid))
		if !errors.Is(err, windows.ERROR_BAD_LENGTH) {
			break
		}
		s.log.Debugln("CreateToolhelp32Snapshot: ERROR_BAD_LENGTH, retrying", i+1)
	}
	if err != nil {
		return nil, mapAccessError("CreateToolhelp32Snapshot", err)
	}
	return &moduleSnapshot{handle: snap}, nil
}

func utf16PtrOrNil(s string) (*uint16, error) {
	if s == "" {
		return nil, nil
	}
	return windows.UTF16PtrFromString(s)
}

func (s *WindowsSystem) FindWindow(class, title string) (process.WindowHandle, error) {
	classPtr, err := utf16PtrOrNil(class)
	if err != nil {
		return 0, fmt.Errorf("%w: window class %q: %v", process.ErrFormat, class, err)
	}
	titlePtr, err := utf16PtrOrNil(title)
	if err != nil {
		return 0, fmt.Errorf("%w: window title %q: %v", process.ErrFormat, title, err)
	}

	ret, _, callErr := procFindWindowW.Call(
		uintptr(unsafe.Pointer(classPtr)),
		uintptr(unsafe.Pointer(titlePtr)),
	)
	if ret == 0 {
		return 0, fmt.Errorf("FindWindowW(%q, %q): %w: %v", class, title, process.ErrProcessNotFound, callErr)
	}
	return process.WindowHandle(ret), nil
}

func (s *WindowsSystem) WindowOwnerProcessID(hwnd process.WindowHandle) (process.ProcessID, error) {
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(windows.HWND(hwnd), &pid); err != nil {
		return 0, fmt.Errorf("GetWindowThreadProcessId failed: %w", err)
	}
	return process.ProcessID(pid), nil
}

type moduleSnapshot struct {
	handle windows.Handle
	entry  windows.ModuleEntry32
}

func (m *moduleSnapshot) convert() process.ModuleInfo {
	return process.ModuleInfo{
		Name: windows.UTF16ToString(m.entry.Module[:]),
		Path: windows.UTF16ToString(m.entry.ExePath[:]),
		Base: process.FromDecimal(uint64(m.entry.ModBaseAddr)),
		Size: m.entry.ModBaseSize,
	}
}

func (m *moduleSnapshot) First() (process.ModuleInfo, bool) {
	m.entry = windows.ModuleEntry32{}
	m.entry.Size = uint32(unsafe.Sizeof(m.entry))
	if err := windows.Module32First(m.handle, &m.entry); err != nil {
		return process.ModuleInfo{}, false
	}
	return m.convert(), true
}

func (m *moduleSnapshot) Next() (process.ModuleInfo, bool) {
	if err := windows.Module32Next(m.handle, &m.entry); err != nil {
		return process.ModuleInfo{}, false
	}
	return m.convert(), true
}

func (m *moduleSnapshot) Close() error {
	return windows.CloseHandle(m.handle)
}
