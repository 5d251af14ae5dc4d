//go:build linux

package process_linux

import (
	"fmt"
	"unsafe"

	"winbot/process"

	"golang.org/x/sys/unix"
)

// process_vm_writev uses the process_vm_writev syscall to write memory to another process
func process_vm_writev(
	pid process.ProcessID,
	localBuf []byte,
	remoteAddr process.Address,
) error {
	// Copy so the caller's slice cannot change underneath the syscall
	data := make([]byte, len(localBuf))
	copy(data, localBuf)

	localIov := unix.Iovec{Base: &data[0]}
	localIov.SetLen(len(data))

	remoteIov := unix.RemoteIovec{
		Base: remoteAddr.Uintptr(),
		Len:  len(data),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_WRITEV,
		uintptr(pid),                        // Remote process PID
		uintptr(unsafe.Pointer(&localIov)),  // Local iovec
		uintptr(1),                          // Number of local iovecs
		uintptr(unsafe.Pointer(&remoteIov)), // Remote iovec
		uintptr(1),                          // Number of remote iovecs
		uintptr(0),                          // Flags (reserved for future use)
	)

	if errno != 0 {
		return mapErrno("process_vm_writev", errno)
	}

	if int(n) != len(data) {
		return fmt.Errorf("only wrote %d of %d bytes", n, len(data))
	}

	return nil
}
