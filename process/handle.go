package process

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// ProcessHandle owns one opened process handle together with the identity it was
// resolved to. It is the sole owner of the handle: use it through a pointer, never copy it.
// A ProcessHandle is meant for one goroutine at a time.
type ProcessHandle struct {
	sys    System
	handle Handle
	pid    ProcessID
	path   string
	log    *logger.Logger
	mu     sync.Mutex

	cacheModules bool
	modules      map[string]ProcessMemoryAddress
}

// Option configures a ProcessHandle at attach time.
type Option func(*ProcessHandle)

// WithModuleCache remembers resolved module bases for the lifetime of the handle
// instead of re-enumerating on every FindModuleBase call.
func WithModuleCache() Option {
	return func(p *ProcessHandle) {
		p.cacheModules = true
	}
}

func newProcessHandle(sys System, handle Handle, pid ProcessID, path string, opts ...Option) *ProcessHandle {
	p := &ProcessHandle{
		sys:    sys,
		handle: handle,
		pid:    pid,
		path:   path,
		log:    logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid))),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.cacheModules {
		p.modules = make(map[string]ProcessMemoryAddress)
	}

	runtime.SetFinalizer(p, (*ProcessHandle).Close)
	return p
}

// PID returns the identifier of the attached process
func (p *ProcessHandle) PID() ProcessID {
	return p.pid
}

// Path returns the absolute path of the executable backing the process
func (p *ProcessHandle) Path() string {
	return p.path
}

// Name returns the file name of the executable, e.g. "hl2.exe"
func (p *ProcessHandle) Name() string {
	// The path comes from a Windows API, so split on both separators regardless of GOOS.
	name := p.path
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '\\' || name[i] == '/' {
			return name[i+1:]
		}
	}
	return name
}

// Handle returns the raw handle, borrowed. It must not be closed or retained past Close.
func (p *ProcessHandle) Handle() Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle
}

// IsOpen reports whether Close has not been called yet
func (p *ProcessHandle) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle != 0
}

// Close releases the process handle. Only the first call reaches the OS; later calls return nil.
func (p *ProcessHandle) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle == 0 {
		return nil
	}

	handle := p.handle
	p.handle = 0
	p.modules = nil
	runtime.SetFinalizer(p, nil)

	if err := p.sys.CloseHandle(handle); err != nil {
		p.log.Warn("CloseHandle failed: ", err)
		p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))
		return fmt.Errorf("CloseHandle failed: %w", err)
	}

	p.log.Infoln("Process closed")
	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))
	return nil
}

// ReadMemory reads size bytes at addr. Both the OS result and the transferred byte count
// are checked; anything short of a full read fails with ErrRemoteReadFailed.
func (p *ProcessHandle) ReadMemory(addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	if size > MaxReadSize {
		return nil, fmt.Errorf("%w: %s at %s exceeds the %d byte limit", ErrRemoteReadFailed, size.ToString(), addr.ToString(), MaxReadSize)
	}

	p.mu.Lock()
	handle := p.handle
	p.mu.Unlock()

	if handle == 0 {
		return nil, ErrProcessNotOpen
	}

	buf := make([]byte, size)
	n, err := p.sys.ReadMemory(handle, addr, buf)
	if err != nil {
		return nil, fmt.Errorf("%w: ReadProcessMemory at %s: %w", ErrRemoteReadFailed, addr.ToString(), err)
	}
	if n != len(buf) {
		return nil, fmt.Errorf("%w: read incomplete at %s: expected %d, got %d", ErrRemoteReadFailed, addr.ToString(), len(buf), n)
	}

	return buf, nil
}

// WriteMemory writes data at addr, failing with ErrRemoteWriteFailed on any partial transfer.
func (p *ProcessHandle) WriteMemory(addr ProcessMemoryAddress, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	p.mu.Lock()
	handle := p.handle
	p.mu.Unlock()

	if handle == 0 {
		return ErrProcessNotOpen
	}

	n, err := p.sys.WriteMemory(handle, addr, data)
	if err != nil {
		return fmt.Errorf("%w: WriteProcessMemory at %s: %w", ErrRemoteWriteFailed, addr.ToString(), err)
	}
	if n != len(data) {
		return fmt.Errorf("%w: write incomplete at %s: expected %d, got %d", ErrRemoteWriteFailed, addr.ToString(), len(data), n)
	}
	return nil
}
