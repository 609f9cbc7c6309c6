package process

import (
	"fmt"
	"math"
)

// ProcessMemoryAddress represents a memory address within the target process.
// It is never dereferenced locally.
type ProcessMemoryAddress uint64

func (pma ProcessMemoryAddress) ToString() string {
	return fmt.Sprintf("0x%X", uint64(pma))
}

func (pma ProcessMemoryAddress) String() string {
	return pma.ToString()
}

// AddOffset returns pma+offset, or ErrAddressOverflow if the sum does not fit.
func (pma ProcessMemoryAddress) AddOffset(offset ProcessMemorySize) (ProcessMemoryAddress, error) {
	if uint64(offset) > math.MaxUint64-uint64(pma) {
		return 0, fmt.Errorf("%w: %s + 0x%X", ErrAddressOverflow, pma.ToString(), uint64(offset))
	}
	return pma + ProcessMemoryAddress(offset), nil
}

// ProcessMemorySize represents a size of, or offset into, a memory region
type ProcessMemorySize uint64

func (pms ProcessMemorySize) ToString() string {
	return fmt.Sprintf("%d bytes", uint64(pms))
}

// ModuleInfo describes one module mapped into the target process
type ModuleInfo struct {
	Name        string               // Short module name, e.g. "client.dll"
	BaseAddress ProcessMemoryAddress // Load address in the target process
	Size        ProcessMemorySize    // Size of the mapped image
}

func (mi ModuleInfo) String() string {
	return fmt.Sprintf("%s base=%s size=0x%X", mi.Name, mi.BaseAddress.ToString(), uint64(mi.Size))
}
