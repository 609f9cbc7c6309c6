// Package processtest provides an in-memory process.System for tests. It tracks every
// handle it hands out so tests can assert that nothing leaks and nothing is closed twice.
package processtest

import (
	"sync"
	"syscall"

	"procpeek/process"
)

// Error codes as reported by the Windows API.
const (
	ErrorAccessDenied       = syscall.Errno(5)
	ErrorInvalidHandle      = syscall.Errno(6)
	ErrorNoMoreFiles        = syscall.Errno(18)
	ErrorInvalidParameter   = syscall.Errno(87)
	ErrorInsufficientBuffer = syscall.Errno(122)
	ErrorPartialCopy        = syscall.Errno(299)
)

// garbage fills record buffers before each write so that decoding past a NUL would show.
const garbage = 0xCD

type handleKind int

const (
	kindProcess handleKind = iota + 1
	kindSnapshot
)

type openHandle struct {
	kind handleKind
	pid  process.ProcessID
	next int // next module index, snapshots only
}

// FakeModule is one module record served by a FakeProcess snapshot.
type FakeModule struct {
	Name    string
	RawName []byte // used verbatim instead of Name when set
	Base    process.ProcessMemoryAddress
	Size    process.ProcessMemorySize
}

// FakeProcess is the state of one target process.
type FakeProcess struct {
	PID  process.ProcessID
	Path string

	RawPath     []byte // used verbatim instead of Path when set
	Denied      bool   // OpenProcess fails with ERROR_ACCESS_DENIED
	PathErr     error  // QueryImagePath fails with this error
	SnapshotErr error  // CreateModuleSnapshot fails with this error
	ReadErr     error  // ReadMemory fails with this error after transferring MaxTransfer bytes
	MaxTransfer int    // when > 0, reads and writes move at most this many bytes

	Modules []FakeModule
	Memory  map[process.ProcessMemoryAddress]byte
}

// AddModule appends a module record in load order.
func (p *FakeProcess) AddModule(name string, base process.ProcessMemoryAddress, size process.ProcessMemorySize) {
	p.Modules = append(p.Modules, FakeModule{Name: name, Base: base, Size: size})
}

// Poke stores data at addr in the process memory.
func (p *FakeProcess) Poke(addr process.ProcessMemoryAddress, data []byte) {
	for i, b := range data {
		p.Memory[addr+process.ProcessMemoryAddress(i)] = b
	}
}

// FakeSystem implements process.System in memory.
type FakeSystem struct {
	mu         sync.Mutex
	windows    map[string]process.WindowHandle
	owners     map[process.WindowHandle]process.ProcessID
	processes  map[process.ProcessID]*FakeProcess
	handles    map[process.Handle]*openHandle
	nextHandle process.Handle

	// Counters, read them through the accessor methods.
	opened       int
	snapshots    int
	closed       int
	doubleCloses int
}

// New returns an empty FakeSystem.
func New() *FakeSystem {
	return &FakeSystem{
		windows:    make(map[string]process.WindowHandle),
		owners:     make(map[process.WindowHandle]process.ProcessID),
		processes:  make(map[process.ProcessID]*FakeProcess),
		handles:    make(map[process.Handle]*openHandle),
		nextHandle: 0x100,
	}
}

// AddProcess registers a running process.
func (s *FakeSystem) AddProcess(pid process.ProcessID, path string) *FakeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &FakeProcess{
		PID:    pid,
		Path:   path,
		Memory: make(map[process.ProcessMemoryAddress]byte),
	}
	s.processes[pid] = p
	return p
}

// AddWindow registers a top-level window owned by pid.
func (s *FakeSystem) AddWindow(title string, pid process.ProcessID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	window := process.WindowHandle(0x10000 + len(s.windows)*4)
	s.windows[title] = window
	s.owners[window] = pid
}

// Exit removes pid, as if the target process terminated. Open handles stay valid but
// every read through them fails.
func (s *FakeSystem) Exit(pid process.ProcessID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.processes, pid)
}

// OpenHandles returns the number of handles currently open.
func (s *FakeSystem) OpenHandles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// OpenedProcesses returns how many process handles were ever opened.
func (s *FakeSystem) OpenedProcesses() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

// Snapshots returns how many module snapshots were ever created.
func (s *FakeSystem) Snapshots() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots
}

// Closed returns the number of successful CloseHandle calls.
func (s *FakeSystem) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// DoubleCloses returns how many times CloseHandle was called on a handle that was not open.
func (s *FakeSystem) DoubleCloses() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doubleCloses
}

func (s *FakeSystem) FindWindow(title string) (process.WindowHandle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	window, ok := s.windows[title]
	return window, ok
}

func (s *FakeSystem) WindowProcessID(window process.WindowHandle) process.ProcessID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owners[window]
}

func (s *FakeSystem) OpenProcess(pid process.ProcessID) (process.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.processes[pid]
	if !ok {
		return 0, ErrorInvalidParameter
	}
	if p.Denied {
		return 0, ErrorAccessDenied
	}

	s.opened++
	return s.allocLocked(&openHandle{kind: kindProcess, pid: pid}), nil
}

func (s *FakeSystem) QueryImagePath(h process.Handle, buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.processLocked(h, kindProcess)
	if err != nil {
		return err
	}
	if p.PathErr != nil {
		return p.PathErr
	}

	raw := p.RawPath
	if raw == nil {
		raw = append([]byte(p.Path), 0)
	}
	if len(raw) > len(buf) {
		return ErrorInsufficientBuffer
	}
	fill(buf)
	copy(buf, raw)
	return nil
}

func (s *FakeSystem) CloseHandle(h process.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.handles[h]; !ok {
		s.doubleCloses++
		return ErrorInvalidHandle
	}
	delete(s.handles, h)
	s.closed++
	return nil
}

func (s *FakeSystem) CreateModuleSnapshot(pid process.ProcessID) (process.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.processes[pid]
	if !ok {
		return 0, ErrorInvalidParameter
	}
	if p.SnapshotErr != nil {
		return 0, p.SnapshotErr
	}

	s.snapshots++
	return s.allocLocked(&openHandle{kind: kindSnapshot, pid: pid}), nil
}

func (s *FakeSystem) FirstModule(snapshot process.Handle, entry *process.ModuleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if oh, ok := s.handles[snapshot]; ok && oh.kind == kindSnapshot {
		oh.next = 0
	}
	return s.nextModuleLocked(snapshot, entry)
}

func (s *FakeSystem) NextModule(snapshot process.Handle, entry *process.ModuleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextModuleLocked(snapshot, entry)
}

func (s *FakeSystem) ReadMemory(h process.Handle, addr process.ProcessMemoryAddress, buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.processLocked(h, kindProcess)
	if err != nil {
		return 0, err
	}

	limit := len(buf)
	if p.MaxTransfer > 0 && p.MaxTransfer < limit {
		limit = p.MaxTransfer
	}

	n := 0
	for ; n < limit; n++ {
		b, ok := p.Memory[addr+process.ProcessMemoryAddress(n)]
		if !ok {
			return n, ErrorPartialCopy
		}
		buf[n] = b
	}
	if p.ReadErr != nil {
		return n, p.ReadErr
	}
	return n, nil
}

func (s *FakeSystem) WriteMemory(h process.Handle, addr process.ProcessMemoryAddress, data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.processLocked(h, kindProcess)
	if err != nil {
		return 0, err
	}

	limit := len(data)
	if p.MaxTransfer > 0 && p.MaxTransfer < limit {
		limit = p.MaxTransfer
	}
	p.Poke(addr, data[:limit])
	return limit, nil
}

func (s *FakeSystem) allocLocked(oh *openHandle) process.Handle {
	s.nextHandle += 4
	s.handles[s.nextHandle] = oh
	return s.nextHandle
}

func (s *FakeSystem) processLocked(h process.Handle, kind handleKind) (*FakeProcess, error) {
	oh, ok := s.handles[h]
	if !ok || oh.kind != kind {
		return nil, ErrorInvalidHandle
	}
	p, ok := s.processes[oh.pid]
	if !ok {
		return nil, ErrorPartialCopy
	}
	return p, nil
}

func (s *FakeSystem) nextModuleLocked(snapshot process.Handle, entry *process.ModuleEntry) error {
	oh, ok := s.handles[snapshot]
	if !ok || oh.kind != kindSnapshot {
		return ErrorInvalidHandle
	}
	p, ok := s.processes[oh.pid]
	if !ok || oh.next >= len(p.Modules) {
		return ErrorNoMoreFiles
	}

	m := p.Modules[oh.next]
	oh.next++

	raw := m.RawName
	if raw == nil {
		raw = append([]byte(m.Name), 0)
	}
	fill(entry.Name[:])
	copy(entry.Name[:], raw)
	entry.BaseAddress = m.Base
	entry.Size = m.Size
	return nil
}

func fill(buf []byte) {
	for i := range buf {
		buf[i] = garbage
	}
}
