//go:build !windows

package main

import (
	"fmt"
	"runtime"

	"procpeek/process"
)

func getSystem() (process.System, error) {
	return nil, fmt.Errorf("%w: %s", process.ErrUnsupportedPlatform, runtime.GOOS)
}
