//go:build linux

package process_linux

import (
	"fmt"
	"sort"
	"strings"

	"winbot/process"

	gopsprocess "github.com/shirou/gopsutil/v3/process"
)

// FindWindow emulates the Windows window lookup. The class selects processes by name
// (comm, exact match like pidof) and the title by a substring of the command line.
// The returned handle is the pid of the lowest matching process.
func (s *LinuxSystem) FindWindow(class, title string) (process.WindowHandle, error) {
	procs, err := gopsprocess.Processes()
	if err != nil {
		return 0, fmt.Errorf("list processes: %w", err)
	}

	// pick the lowest PID for determinism
	sort.Slice(procs, func(i, j int) bool {
		return procs[i].Pid < procs[j].Pid
	})

	for _, p := range procs {
		if class != "" {
			name, err := p.Name()
			if err != nil || name != class {
				continue
			}
		}
		if title != "" {
			cmdline, err := p.Cmdline()
			if err != nil || !strings.Contains(cmdline, title) {
				continue
			}
		}
		return process.WindowHandle(p.Pid), nil
	}

	return 0, fmt.Errorf("no process class=%q title=%q: %w", class, title, process.ErrProcessNotFound)
}

// WindowOwnerProcessID maps an emulated window handle back to its pid
func (s *LinuxSystem) WindowOwnerProcessID(hwnd process.WindowHandle) (process.ProcessID, error) {
	exists, err := gopsprocess.PidExists(int32(hwnd))
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("process %d exited", hwnd)
	}
	return process.ProcessID(hwnd), nil
}
