package process

import (
	"errors"
	"fmt"
)

// AttachByWindowTitle opens the process owning the top-level window titled exactly title.
// Any handle opened along the way is closed before an error is returned.
func AttachByWindowTitle(sys System, title string, opts ...Option) (*ProcessHandle, error) {
	window, ok := sys.FindWindow(title)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrWindowNotFound, title)
	}

	pid := sys.WindowProcessID(window)

	handle, err := sys.OpenProcess(pid)
	if err != nil {
		return nil, newOSError(ErrProcessOpenFailed, err)
	}

	path, err := queryImagePath(sys, handle)
	if err != nil {
		if cerr := sys.CloseHandle(handle); cerr != nil {
			return nil, errors.Join(err, fmt.Errorf("CloseHandle failed: %w", cerr))
		}
		return nil, err
	}

	p := newProcessHandle(sys, handle, pid, path, opts...)
	p.log.Infoln("Process opened", path)
	return p, nil
}

func queryImagePath(sys System, handle Handle) (string, error) {
	var buf [MaxPathBuffer]byte
	if err := sys.QueryImagePath(handle, buf[:]); err != nil {
		return "", newOSError(ErrPathQueryFailed, err)
	}

	path, err := DecodeCString(buf[:])
	if err != nil {
		return "", fmt.Errorf("executable path: %w", err)
	}
	return path, nil
}
