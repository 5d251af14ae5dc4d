//go:build linux

package process_linux

import (
	"fmt"
	"os"
	"sync"

	"winbot/process"
	"winbot/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// LinuxSystem implements process.System with process_vm_readv/process_vm_writev.
// Linux has no process handles, so OpenProcess hands out tokens that record the pid and the
// requested rights. Modules come from /proc/[pid]/maps and windows are emulated, see FindWindow.
type LinuxSystem struct {
	log     *logger.Logger
	mu      sync.Mutex
	handles map[uintptr]process.Handle
	next    uintptr
}

var _ process.System = (*LinuxSystem)(nil)

func New() *LinuxSystem {
	return &LinuxSystem{
		log:     logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "linux")),
		handles: make(map[uintptr]process.Handle),
	}
}

func (s *LinuxSystem) OpenProcess(access process.AccessFlags, inherit bool, pid process.ProcessID) (process.Handle, error) {
	procPath := fmt.Sprintf("/proc/%d", pid)
	if _, err := os.Stat(procPath); err != nil {
		if os.IsPermission(err) {
			return process.Handle{}, fmt.Errorf("open %d: %w", pid, process.ErrAccessDenied)
		}
		return process.Handle{}, fmt.Errorf("process with PID %d does not exist", pid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	h := process.NewHandle(s.next, pid, access)
	s.handles[h.Raw()] = h
	s.log.Infoln("Process opened", pid, access)
	return h, nil
}

func (s *LinuxSystem) checkOpen(h process.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.handles[h.Raw()]; !ok {
		return process.ErrProcessNotOpen
	}
	return nil
}

func (s *LinuxSystem) ReadMemory(h process.Handle, addr process.Address, size process.ProcessMemorySize) ([]byte, error) {
	if err := s.checkOpen(h); err != nil {
		return nil, err
	}
	if !h.Access().Has(process.AccessVMRead) {
		return nil, fmt.Errorf("ReadMemory: %w", process.ErrAccessDenied)
	}
	if size == 0 {
		return []byte{}, nil
	}

	data, err := process_vm_readv(h.PID(), addr, size)
	if err != nil {
		return nil, fmt.Errorf("process_vm_readv: failed to read process memory: %w", err)
	}
	return data, nil
}

func (s *LinuxSystem) WriteMemory(h process.Handle, addr process.Address, data []byte) error {
	if err := s.checkOpen(h); err != nil {
		return err
	}
	if !h.Access().Has(process.AccessVMWrite | process.AccessVMOperation) {
		return fmt.Errorf("WriteMemory: %w", process.ErrAccessDenied)
	}
	if len(data) == 0 {
		return nil
	}

	// process_vm_writev refuses read-only mappings with EFAULT; checking the map first gives a clearer error
	mm, err := memory_map.ReadMemoryMap(int(h.PID()))
	if err != nil {
		return fmt.Errorf("failed to read memory map: %w", err)
	}
	region := memory_map.Covers(addr.Decimal(), uint(len(data)), mm)
	if region == nil {
		return fmt.Errorf("%w: 0x%s (+%d)", process.ErrAddressNotMapped, addr.Hex(), len(data))
	}
	if !region.IsWritable() {
		return fmt.Errorf("memory region at %x is not writable", region.Address)
	}

	if err := process_vm_writev(h.PID(), data, addr); err != nil {
		return fmt.Errorf("failed to write process memory: %w", err)
	}
	return nil
}

func (s *LinuxSystem) CloseHandle(h process.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.handles[h.Raw()]; !ok {
		return fmt.Errorf("close: invalid handle 0x%X", h.Raw())
	}
	delete(s.handles, h.Raw())
	s.log.Infoln("Process closed", h.PID())
	return nil
}

// SnapshotModules groups the file-backed mappings of /proc/[pid]/maps into modules
func (s *LinuxSystem) SnapshotModules(pid process.ProcessID) (process.ModuleSnapshot, error) {
	mm, err := memory_map.ReadMemoryMap(int(pid))
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("read maps of %d: %w", pid, process.ErrAccessDenied)
		}
		return nil, fmt.Errorf("failed to read memory map: %w", err)
	}
	return &moduleList{modules: memory_map.Modules(mm)}, nil
}

type moduleList struct {
	modules []process.ModuleInfo
	pos     int
}

func (l *moduleList) First() (process.ModuleInfo, bool) {
	l.pos = 0
	return l.Next()
}

func (l *moduleList) Next() (process.ModuleInfo, bool) {
	if l.pos >= len(l.modules) {
		return process.ModuleInfo{}, false
	}
	m := l.modules[l.pos]
	l.pos++
	return m, true
}

func (l *moduleList) Close() error {
	l.modules = nil
	return nil
}
