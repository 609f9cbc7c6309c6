package process

// ProcessID represents a unique identifier for a process
type ProcessID uint32

// WindowHandle is a reference to a top-level window. It is not owned and never released.
type WindowHandle uintptr

// Handle is a raw kernel handle (process handle or enumeration snapshot).
type Handle uintptr

const (
	// MaxPathBuffer is the capacity of the buffer the executable path is queried into.
	MaxPathBuffer = 256

	// MaxModuleName is the capacity of a module record's name buffer.
	MaxModuleName = 256

	// MaxReadSize bounds a single ReadMemory call.
	MaxReadSize = 1 << 20
)

// ModuleEntry is one raw record of a module snapshot.
type ModuleEntry struct {
	Name        [MaxModuleName]byte // NUL-terminated ASCII module name
	BaseAddress ProcessMemoryAddress
	Size        ProcessMemorySize
}
