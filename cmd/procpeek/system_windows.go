//go:build windows

package main

import (
	"procpeek/process"
	"procpeek/process_windows"
)

func getSystem() (process.System, error) {
	return process_windows.New(), nil
}
