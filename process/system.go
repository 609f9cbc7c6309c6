package process

// System is the narrow boundary to the operating system. Implementations wrap one OS
// primitive per method and never retain the buffers passed to them.
//
// Errors returned by System methods should carry the OS error code as a syscall.Errno
// so that it can be surfaced through OSError.
type System interface {
	// FindWindow returns the top-level window whose title exactly matches title.
	// ok is false when no such window exists.
	FindWindow(title string) (window WindowHandle, ok bool)

	// WindowProcessID returns the identifier of the process owning window.
	WindowProcessID(window WindowHandle) ProcessID

	// OpenProcess opens pid with full access rights.
	OpenProcess(pid ProcessID) (Handle, error)

	// QueryImagePath writes the NUL-terminated executable path of the process behind h into buf.
	QueryImagePath(h Handle, buf []byte) error

	// CloseHandle releases a handle returned by OpenProcess or CreateModuleSnapshot.
	CloseHandle(h Handle) error

	// CreateModuleSnapshot snapshots the 32-bit and 64-bit module lists of pid.
	CreateModuleSnapshot(pid ProcessID) (Handle, error)

	// FirstModule fills entry with the first record of snapshot.
	FirstModule(snapshot Handle, entry *ModuleEntry) error

	// NextModule advances to the next record; it fails at the end of the list.
	NextModule(snapshot Handle, entry *ModuleEntry) error

	// ReadMemory copies len(buf) bytes at addr in the process behind h into buf.
	// n reports the bytes actually transferred, which may be set even when err is non-nil.
	ReadMemory(h Handle, addr ProcessMemoryAddress, buf []byte) (n int, err error)

	// WriteMemory copies data to addr in the process behind h.
	WriteMemory(h Handle, addr ProcessMemoryAddress, data []byte) (n int, err error)
}
