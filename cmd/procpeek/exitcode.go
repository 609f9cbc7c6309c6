package main

import (
	"errors"

	"procpeek/process"
)

const (
	exitOK = iota
	exitUsage
	exitWindowNotFound
	exitProcessOpenFailed
	exitPathQueryFailed
	exitInvalidEncoding
	exitModuleNotFound
	exitRemoteReadFailed
	exitUnsupportedPlatform
)

// exitCode maps an error to the process exit status, one code per failure kind.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, process.ErrWindowNotFound):
		return exitWindowNotFound
	case errors.Is(err, process.ErrProcessOpenFailed):
		return exitProcessOpenFailed
	case errors.Is(err, process.ErrPathQueryFailed):
		return exitPathQueryFailed
	case errors.Is(err, process.ErrInvalidEncoding):
		return exitInvalidEncoding
	case errors.Is(err, process.ErrModuleNotFound), errors.Is(err, process.ErrSnapshotFailed):
		return exitModuleNotFound
	case errors.Is(err, process.ErrRemoteReadFailed), errors.Is(err, process.ErrAddressOverflow):
		return exitRemoteReadFailed
	case errors.Is(err, process.ErrUnsupportedPlatform):
		return exitUnsupportedPlatform
	default:
		return exitUsage
	}
}
