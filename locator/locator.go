// Package locator finds a target process through its window and resolves module load addresses
// from the process's module snapshot.
package locator

import (
	"errors"
	"fmt"

	"winbot/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/samber/lo"
)

type Locator struct {
	sys process.System
	log *logger.Logger
}

func New(sys process.System) *Locator {
	return &Locator{
		sys: sys,
		log: logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "locator")),
	}
}

// FindProcess resolves the process owning the first top-level window matching windowClass
// and/or windowTitle. At least one selector must be non-empty.
func (l *Locator) FindProcess(windowClass, windowTitle string) (process.ProcessID, process.WindowHandle, error) {
	if windowClass == "" && windowTitle == "" {
		return 0, 0, process.ErrNoSelector
	}

	hwnd, err := l.sys.FindWindow(windowClass, windowTitle)
	if err != nil {
		if errors.Is(err, process.ErrProcessNotFound) {
			return 0, 0, err
		}
		return 0, 0, fmt.Errorf("%w: %v", process.ErrProcessNotFound, err)
	}
	if hwnd == 0 {
		return 0, 0, fmt.Errorf("%w: no window class=%q title=%q", process.ErrProcessNotFound, windowClass, windowTitle)
	}

	pid, err := l.sys.WindowOwnerProcessID(hwnd)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: window 0x%X: %v", process.ErrProcessNotFound, uintptr(hwnd), err)
	}
	if pid == 0 {
		return 0, 0, fmt.Errorf("%w: window 0x%X has no owner process", process.ErrProcessNotFound, uintptr(hwnd))
	}

	l.log.Debugln("window", fmt.Sprintf("0x%X", uintptr(hwnd)), "belongs to process", pid)
	return pid, hwnd, nil
}

// FindModule returns the first module in snapshot order whose name contains substr, ignoring case.
// Snapshot order is defined by the OS; an ambiguous substring may match a different module
// from one run to the next, so pass the full file name where possible.
func (l *Locator) FindModule(pid process.ProcessID, substr string) (process.ModuleInfo, error) {
	snap, err := l.sys.SnapshotModules(pid)
	if err != nil {
		return process.ModuleInfo{}, fmt.Errorf("snapshot modules of %d: %w", pid, err)
	}
	defer snap.Close()

	for m, ok := snap.First(); ok; m, ok = snap.Next() {
		if m.Matches(substr) {
			l.log.Debugln("module", m)
			return m, nil
		}
	}

	return process.ModuleInfo{}, fmt.Errorf("%w: %q in process %d", process.ErrModuleNotFound, substr, pid)
}

// FindModuleBase returns the load address of the module matched by FindModule
func (l *Locator) FindModuleBase(pid process.ProcessID, substr string) (process.Address, error) {
	m, err := l.FindModule(pid, substr)
	if err != nil {
		return process.Address{}, err
	}
	return m.Base, nil
}

// ListModules returns every module in the snapshot, in snapshot order
func (l *Locator) ListModules(pid process.ProcessID) ([]process.ModuleInfo, error) {
	snap, err := l.sys.SnapshotModules(pid)
	if err != nil {
		return nil, fmt.Errorf("snapshot modules of %d: %w", pid, err)
	}
	defer snap.Close()

	var out []process.ModuleInfo
	for m, ok := snap.First(); ok; m, ok = snap.Next() {
		out = append(out, m)
	}
	return out, nil
}

// ModuleNames is a convenience for diagnostics and error messages
func ModuleNames(modules []process.ModuleInfo) []string {
	return lo.Map(modules, func(m process.ModuleInfo, _ int) string {
		return m.Name
	})
}
