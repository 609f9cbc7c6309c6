//go:build windows

package process_windows

import (
	"fmt"
	"unsafe"

	"procpeek/process"

	"golang.org/x/sys/windows"
)

var (
	modkernel32                    = windows.NewLazySystemDLL("kernel32.dll")
	moduser32                      = windows.NewLazySystemDLL("user32.dll")
	procQueryFullProcessImageNameA = modkernel32.NewProc("QueryFullProcessImageNameA")
	procModule32First              = modkernel32.NewProc("Module32First")
	procModule32Next               = modkernel32.NewProc("Module32Next")
	procFindWindowW                = moduser32.NewProc("FindWindowW")
)

const (
	PROCESS_ALL_ACCESS = 0x1F0FFF

	// MAX_MODULE_NAME32 + 1
	maxModuleName32 = 256
)

// moduleEntry32 matches the ANSI MODULEENTRY32 structure
type moduleEntry32 struct {
	Size         uint32
	ModuleID     uint32
	ProcessID    uint32
	GlblcntUsage uint32
	ProccntUsage uint32
	ModBaseAddr  uintptr
	ModBaseSize  uint32
	HModule      windows.Handle
	Module       [maxModuleName32]byte
	ExePath      [windows.MAX_PATH]byte
}

// WindowsSystem implements process.System on top of kernel32 and user32.
type WindowsSystem struct{}

// New returns the Windows implementation of process.System
func New() process.System {
	return &WindowsSystem{}
}

func (s *WindowsSystem) FindWindow(title string) (process.WindowHandle, bool) {
	name, err := windows.UTF16PtrFromString(title)
	if err != nil {
		// title contains a NUL, no window can match it
		return 0, false
	}

	hwnd, _, _ := procFindWindowW.Call(0, uintptr(unsafe.Pointer(name)))
	if hwnd == 0 {
		return 0, false
	}
	return process.WindowHandle(hwnd), true
}

func (s *WindowsSystem) WindowProcessID(window process.WindowHandle) process.ProcessID {
	var pid uint32
	// Only fails for an invalid window, which FindWindow just returned as valid.
	_, _ = windows.GetWindowThreadProcessId(windows.HWND(window), &pid)
	return process.ProcessID(pid)
}

func (s *WindowsSystem) OpenProcess(pid process.ProcessID) (process.Handle, error) {
	handle, err := windows.OpenProcess(PROCESS_ALL_ACCESS, false, uint32(pid))
	if err != nil {
		return 0, err
	}
	return process.Handle(handle), nil
}

func (s *WindowsSystem) QueryImagePath(h process.Handle, buf []byte) error {
	if len(buf) == 0 {
		return windows.ERROR_INSUFFICIENT_BUFFER
	}

	size := uint32(len(buf))
	ret, _, err := procQueryFullProcessImageNameA.Call(
		uintptr(h),
		0,
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(unsafe.Pointer(&size)),
	)
	if ret == 0 {
		return err
	}
	return nil
}

func (s *WindowsSystem) CloseHandle(h process.Handle) error {
	return windows.CloseHandle(windows.Handle(h))
}

func (s *WindowsSystem) CreateModuleSnapshot(pid process.ProcessID) (process.Handle, error) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32, uint32(pid))
	if err != nil {
		return 0, err
	}
	return process.Handle(snapshot), nil
}

func (s *WindowsSystem) FirstModule(snapshot process.Handle, entry *process.ModuleEntry) error {
	return moduleCall(procModule32First, snapshot, entry)
}

func (s *WindowsSystem) NextModule(snapshot process.Handle, entry *process.ModuleEntry) error {
	return moduleCall(procModule32Next, snapshot, entry)
}

func moduleCall(proc *windows.LazyProc, snapshot process.Handle, entry *process.ModuleEntry) error {
	var me moduleEntry32
	me.Size = uint32(unsafe.Sizeof(me))

	ret, _, err := proc.Call(uintptr(snapshot), uintptr(unsafe.Pointer(&me)))
	if ret == 0 {
		return err
	}

	entry.Name = me.Module
	entry.BaseAddress = process.ProcessMemoryAddress(me.ModBaseAddr)
	entry.Size = process.ProcessMemorySize(me.ModBaseSize)
	return nil
}

func (s *WindowsSystem) ReadMemory(h process.Handle, addr process.ProcessMemoryAddress, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	if err := checkAddress(addr); err != nil {
		return 0, err
	}

	var bytesRead uintptr
	err := windows.ReadProcessMemory(windows.Handle(h), uintptr(addr), &buf[0], uintptr(len(buf)), &bytesRead)
	return int(bytesRead), err
}

func (s *WindowsSystem) WriteMemory(h process.Handle, addr process.ProcessMemoryAddress, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}
	if err := checkAddress(addr); err != nil {
		return 0, err
	}

	var bytesWritten uintptr
	err := windows.WriteProcessMemory(windows.Handle(h), uintptr(addr), &data[0], uintptr(len(data)), &bytesWritten)
	return int(bytesWritten), err
}

// checkAddress rejects addresses that do not fit this build's pointer width.
func checkAddress(addr process.ProcessMemoryAddress) error {
	if uint64(uintptr(addr)) != uint64(addr) {
		return fmt.Errorf("address %s exceeds native pointer width: %w", addr.ToString(), windows.ERROR_INVALID_PARAMETER)
	}
	return nil
}
