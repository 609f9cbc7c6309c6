// Package remote_value reads a fixed-width little-endian value at a module-relative
// offset in an attached process.
package remote_value

import (
	"encoding/binary"
	"fmt"

	"procpeek/process"
)

// Reference target: the local player's health in Team Fortress 2.
const (
	DefaultWindowTitle = "Team Fortress 2"
	ClientModuleName   = "client.dll"
	HealthOffset       = process.ProcessMemorySize(0x00C3938C)
	HealthWidth        = process.ProcessMemorySize(2)
)

// Target names a value by module, offset into that module, and width in bytes.
type Target struct {
	Module string
	Offset process.ProcessMemorySize
	Width  process.ProcessMemorySize
}

// DefaultTarget returns the health field target
func DefaultTarget() Target {
	return Target{
		Module: ClientModuleName,
		Offset: HealthOffset,
		Width:  HealthWidth,
	}
}

func (t Target) String() string {
	return fmt.Sprintf("%s+0x%X (%d bytes)", t.Module, uint64(t.Offset), uint64(t.Width))
}

// Validate checks that the target can be read and decoded.
func (t Target) Validate() error {
	if t.Module == "" {
		return fmt.Errorf("module name is empty")
	}
	if len(t.Module) >= process.MaxModuleName {
		return fmt.Errorf("module name %q exceeds %d bytes", t.Module, process.MaxModuleName-1)
	}
	switch t.Width {
	case 1, 2, 4, 8:
	default:
		return fmt.Errorf("unsupported width %d, want 1, 2, 4 or 8", t.Width)
	}
	return nil
}

// Reader reads one Target from one attached process.
type Reader struct {
	proc   *process.ProcessHandle
	target Target
}

// NewReader validates target and binds it to proc. proc stays owned by the caller.
func NewReader(proc *process.ProcessHandle, target Target) (*Reader, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	return &Reader{proc: proc, target: target}, nil
}

func (r *Reader) Target() Target {
	return r.target
}

// Address resolves the absolute address of the target in the remote process.
// The module base is looked up again on every call.
func (r *Reader) Address() (process.ProcessMemoryAddress, error) {
	if !r.proc.IsOpen() {
		return 0, process.ErrProcessNotOpen
	}

	base, ok := r.proc.FindModuleBase(r.target.Module)
	if !ok {
		return 0, fmt.Errorf("%w: %s", process.ErrModuleNotFound, r.target.Module)
	}

	addr, err := base.AddOffset(r.target.Offset)
	if err != nil {
		return 0, err
	}
	return addr, nil
}

// Read resolves the target address and decodes Width bytes there as an unsigned
// little-endian integer. A partial or failed read is an error, never a zero value.
func (r *Reader) Read() (uint64, error) {
	addr, err := r.Address()
	if err != nil {
		return 0, err
	}

	data, err := r.proc.ReadMemory(addr, r.target.Width)
	if err != nil {
		return 0, err
	}

	return DecodeUnsigned(data)
}

// DecodeUnsigned decodes a 1, 2, 4 or 8 byte little-endian unsigned integer.
func DecodeUnsigned(data []byte) (uint64, error) {
	switch len(data) {
	case 1:
		return uint64(data[0]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(data)), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(data)), nil
	case 8:
		return binary.LittleEndian.Uint64(data), nil
	default:
		return 0, fmt.Errorf("cannot decode %d bytes as an unsigned integer", len(data))
	}
}

// ReadUINT16 reads a 2-byte value at module+offset.
func ReadUINT16(proc *process.ProcessHandle, module string, offset process.ProcessMemorySize) (uint16, error) {
	r, err := NewReader(proc, Target{Module: module, Offset: offset, Width: 2})
	if err != nil {
		return 0, err
	}

	v, err := r.Read()
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}
