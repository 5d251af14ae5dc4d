// Package process holds the types shared by every backend: addresses, typed values,
// access rights, module records and the System capability interface.
package process

import "errors"

var (
	// ErrFormat is returned for malformed hex or decimal address input.
	ErrFormat = errors.New("malformed address")

	// ErrProcessNotFound is returned when no window matches the requested class or title.
	ErrProcessNotFound = errors.New("process not found")

	// ErrModuleNotFound is returned when a module snapshot is exhausted without a match.
	ErrModuleNotFound = errors.New("module not found")

	// ErrAccessDenied is returned when the OS refuses the requested access rights, either at open
	// time or when an operation needs a right the handle was not opened with.
	ErrAccessDenied = errors.New("access denied")

	// ErrReadFailed marks a read that did not produce a value. Callers polling memory are
	// expected to treat it as "value not currently available" rather than a fatal condition.
	ErrReadFailed = errors.New("read failed")

	// ErrProcessNotOpen is returned when an operation requiring an open process is attempted
	// before the process has been successfully opened or after it has been closed.
	ErrProcessNotOpen = errors.New("process not open")

	// ErrWidthMismatch is returned when a byte width is not valid for a value kind.
	ErrWidthMismatch = errors.New("width does not match value kind")

	// ErrAddressNotMapped is returned when a memory address is not found within any mapped region of a process.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrNoSelector is returned by window lookups given neither a class nor a title.
	ErrNoSelector = errors.New("window class or title required")
)
