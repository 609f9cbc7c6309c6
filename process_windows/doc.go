// Package process_windows implements process.System with kernel32 and user32.
// On other platforms the package is empty.
package process_windows
