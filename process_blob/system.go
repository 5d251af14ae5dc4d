package process_blob

import (
	"errors"
	"fmt"
	"sync"

	"winbot/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

var ErrSnapshotClosed = errors.New("snapshot already closed")

type window struct {
	hwnd  process.WindowHandle
	class string
	title string
	pid   process.ProcessID
}

// System is an in-memory process.System. Processes, modules and windows are registered
// up front; handles and module snapshots are tracked so callers can verify they were released.
type System struct {
	mu        sync.Mutex
	log       *logger.Logger
	processes map[process.ProcessID]*ProcessBlob
	modules   map[process.ProcessID][]process.ModuleInfo
	grant     map[process.ProcessID]process.AccessFlags
	windows   []window
	handles   map[uintptr]process.Handle

	nextHandle    uintptr
	nextWindow    process.WindowHandle
	openSnapshots int
}

var _ process.System = (*System)(nil)

func New() *System {
	return &System{
		log:        logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "process-blob")),
		processes:  make(map[process.ProcessID]*ProcessBlob),
		modules:    make(map[process.ProcessID][]process.ModuleInfo),
		grant:      make(map[process.ProcessID]process.AccessFlags),
		handles:    make(map[uintptr]process.Handle),
		nextHandle: 0x100,
		nextWindow: 0x10000,
	}
}

// AddProcess registers pid and returns its address space. By default every right is granted.
func (s *System) AddProcess(pid process.ProcessID) *ProcessBlob {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.processes[pid]; ok {
		return p
	}
	p := newProcessBlob(pid)
	s.processes[pid] = p
	s.grant[pid] = process.AccessVMRead | process.AccessVMWrite | process.AccessVMOperation
	return p
}

// Grant limits the rights the simulated OS will give out for pid
func (s *System) Grant(pid process.ProcessID, access process.AccessFlags) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grant[pid] = access
}

// AddModule appends a module to pid's snapshot order
func (s *System) AddModule(pid process.ProcessID, name string, base uint64, size uint32) process.ModuleInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := process.ModuleInfo{Name: name, Path: name, Base: process.FromDecimal(base), Size: size}
	s.modules[pid] = append(s.modules[pid], m)
	return m
}

// AddWindow registers a top-level window owned by pid
func (s *System) AddWindow(class, title string, pid process.ProcessID) process.WindowHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextWindow += 0x10
	s.windows = append(s.windows, window{hwnd: s.nextWindow, class: class, title: title, pid: pid})
	return s.nextWindow
}

// OpenHandles returns the number of process handles not yet closed
func (s *System) OpenHandles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// OpenSnapshots returns the number of module snapshots not yet closed
func (s *System) OpenSnapshots() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openSnapshots
}

func (s *System) OpenProcess(access process.AccessFlags, inherit bool, pid process.ProcessID) (process.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.processes[pid]; !ok {
		return process.Handle{}, fmt.Errorf("OpenProcess(%d): no such process", pid)
	}
	if !s.grant[pid].Has(access) {
		return process.Handle{}, fmt.Errorf("OpenProcess(%d, %s): %w", pid, access, process.ErrAccessDenied)
	}

	s.nextHandle += 4
	h := process.NewHandle(s.nextHandle, pid, access)
	s.handles[h.Raw()] = h
	s.log.Debugln("opened", h)
	return h, nil
}

func (s *System) lookup(h process.Handle) (*ProcessBlob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.handles[h.Raw()]; !ok {
		return nil, process.ErrProcessNotOpen
	}
	p, ok := s.processes[h.PID()]
	if !ok {
		return nil, fmt.Errorf("process %d exited", h.PID())
	}
	return p, nil
}

func (s *System) ReadMemory(h process.Handle, addr process.Address, size process.ProcessMemorySize) ([]byte, error) {
	p, err := s.lookup(h)
	if err != nil {
		return nil, err
	}
	if !h.Access().Has(process.AccessVMRead) {
		return nil, fmt.Errorf("ReadMemory: %w", process.ErrAccessDenied)
	}
	return p.read(addr.Decimal(), uint(size))
}

func (s *System) WriteMemory(h process.Handle, addr process.Address, data []byte) error {
	p, err := s.lookup(h)
	if err != nil {
		return err
	}
	if !h.Access().Has(process.AccessVMWrite | process.AccessVMOperation) {
		return fmt.Errorf("WriteMemory: %w", process.ErrAccessDenied)
	}
	return p.write(addr.Decimal(), data)
}

func (s *System) CloseHandle(h process.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.handles[h.Raw()]; !ok {
		return fmt.Errorf("CloseHandle(0x%X): invalid handle", h.Raw())
	}
	delete(s.handles, h.Raw())
	return nil
}

func (s *System) SnapshotModules(pid process.ProcessID) (process.ModuleSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.processes[pid]; !ok {
		return nil, fmt.Errorf("CreateToolhelp32Snapshot(%d): no such process", pid)
	}

	modules := make([]process.ModuleInfo, len(s.modules[pid]))
	copy(modules, s.modules[pid])
	s.openSnapshots++
	return &snapshot{sys: s, modules: modules}, nil
}

// FindWindow matches class and title exactly; an empty selector matches any window
func (s *System) FindWindow(class, title string) (process.WindowHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range s.windows {
		if class != "" && w.class != class {
			continue
		}
		if title != "" && w.title != title {
			continue
		}
		return w.hwnd, nil
	}
	return 0, fmt.Errorf("FindWindow(%q, %q): %w", class, title, process.ErrProcessNotFound)
}

func (s *System) WindowOwnerProcessID(hwnd process.WindowHandle) (process.ProcessID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range s.windows {
		if w.hwnd == hwnd {
			return w.pid, nil
		}
	}
	return 0, fmt.Errorf("GetWindowThreadProcessId(0x%X): invalid window handle", uintptr(hwnd))
}

type snapshot struct {
	sys     *System
	modules []process.ModuleInfo
	pos     int
	closed  bool
}

func (sn *snapshot) First() (process.ModuleInfo, bool) {
	sn.pos = 0
	return sn.Next()
}

func (sn *snapshot) Next() (process.ModuleInfo, bool) {
	if sn.closed || sn.pos >= len(sn.modules) {
		return process.ModuleInfo{}, false
	}
	m := sn.modules[sn.pos]
	sn.pos++
	return m, true
}

func (sn *snapshot) Close() error {
	if sn.closed {
		return ErrSnapshotClosed
	}
	sn.closed = true

	sn.sys.mu.Lock()
	sn.sys.openSnapshots--
	sn.sys.mu.Unlock()
	return nil
}
