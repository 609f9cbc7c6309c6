// Package process attaches to a running process through its top-level window and
// reads from its address space. All OS access goes through the System interface.
package process

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	// ErrWindowNotFound is returned when no top-level window has exactly the requested title.
	ErrWindowNotFound = errors.New("window not found")

	// ErrProcessOpenFailed is the Kind of an OSError raised when the owning process could not be opened.
	ErrProcessOpenFailed = errors.New("open process failed")

	// ErrPathQueryFailed is the Kind of an OSError raised when the executable path query fails.
	ErrPathQueryFailed = errors.New("executable path query failed")

	// ErrInvalidEncoding is returned when a fixed-capacity text buffer is not valid UTF-8 up to its terminator.
	ErrInvalidEncoding = errors.New("invalid encoding")

	// ErrSnapshotFailed is the Kind of an OSError raised when module enumeration cannot start.
	ErrSnapshotFailed = errors.New("module snapshot failed")

	ErrModuleNotFound = errors.New("module not found")

	// ErrRemoteReadFailed is returned when a remote read fails or transfers fewer bytes than requested.
	ErrRemoteReadFailed = errors.New("remote read failed")

	ErrRemoteWriteFailed = errors.New("remote write failed")

	ErrAddressOverflow = errors.New("address overflow")

	// ErrProcessNotOpen is returned when an operation requiring an open process is attempted
	// after the process has been closed.
	ErrProcessNotOpen = errors.New("process not open")

	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// OSError ties a failed attach or enumeration step to the OS error code behind it.
type OSError struct {
	Kind error  // one of ErrProcessOpenFailed, ErrPathQueryFailed, ErrSnapshotFailed
	Code uint32 // OS error code, 0 when unavailable
	Err  error  // underlying error as returned by the System
}

func (e *OSError) Error() string {
	return fmt.Sprintf("%v (os error %d)", e.Kind, e.Code)
}

func (e *OSError) Unwrap() error {
	return e.Kind
}

func newOSError(kind error, err error) *OSError {
	return &OSError{Kind: kind, Code: osErrorCode(err), Err: err}
}

// osErrorCode extracts the numeric errno carried by err, if any.
func osErrorCode(err error) uint32 {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return uint32(errno)
	}
	return 0
}
