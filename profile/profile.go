// Package profile loads target profiles: which window to attach to and which
// module-relative value to read. Profiles let a new game build be targeted by
// editing a YAML file instead of rebuilding.
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"procpeek/process"
	"procpeek/remote_value"
)

// Profile describes one value to read from one target process.
//
//	name: tf2-health
//	window_title: Team Fortress 2
//	module: client.dll
//	offset: 0x00C3938C
//	width: 2
type Profile struct {
	Name        string `yaml:"name"`
	WindowTitle string `yaml:"window_title"`
	Module      string `yaml:"module"`
	Offset      Offset `yaml:"offset"`
	Width       uint64 `yaml:"width"`
}

// Offset is a module-relative byte offset. In YAML it may be written as an
// integer or as a string with a 0x, 0o or 0b prefix.
type Offset process.ProcessMemorySize

func (o *Offset) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: offset must be a scalar", value.Line)
	}
	v, err := ParseOffset(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*o = Offset(v)
	return nil
}

func (o Offset) MarshalYAML() (interface{}, error) {
	return fmt.Sprintf("0x%08X", uint64(o)), nil
}

// ParseOffset parses a decimal or prefixed (0x, 0o, 0b) unsigned offset.
func ParseOffset(s string) (process.ProcessMemorySize, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid offset %q: %w", s, err)
	}
	return process.ProcessMemorySize(v), nil
}

// Default returns the built-in Team Fortress 2 health profile.
func Default() *Profile {
	t := remote_value.DefaultTarget()
	return &Profile{
		Name:        "tf2-health",
		WindowTitle: remote_value.DefaultWindowTitle,
		Module:      t.Module,
		Offset:      Offset(t.Offset),
		Width:       uint64(t.Width),
	}
}

// Load reads and validates a profile file. Fields missing from the file keep their defaults.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes and validates a YAML profile. Unknown keys are rejected and
// missing ones keep their defaults, except name: a profile without one is unnamed.
func Parse(data []byte) (*Profile, error) {
	p := Default()
	p.Name = ""

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the window title and the read target.
func (p *Profile) Validate() error {
	if p.WindowTitle == "" {
		return fmt.Errorf("window_title is required")
	}
	if strings.ContainsRune(p.WindowTitle, 0) {
		return fmt.Errorf("window_title contains a NUL byte")
	}
	if err := p.Target().Validate(); err != nil {
		return fmt.Errorf("invalid target: %w", err)
	}
	return nil
}

// Target returns the read target described by the profile.
func (p *Profile) Target() remote_value.Target {
	return remote_value.Target{
		Module: p.Module,
		Offset: process.ProcessMemorySize(p.Offset),
		Width:  process.ProcessMemorySize(p.Width),
	}
}

// Marshal renders the profile as YAML.
func (p *Profile) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}
