package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"procpeek/process"
	"procpeek/profile"
)

// offsetValue is a pflag.Value accepting decimal or 0x-prefixed offsets.
type offsetValue process.ProcessMemorySize

var _ pflag.Value = (*offsetValue)(nil)

func (o *offsetValue) String() string {
	return fmt.Sprintf("0x%08X", uint64(*o))
}

func (o *offsetValue) Set(s string) error {
	v, err := profile.ParseOffset(s)
	if err != nil {
		return err
	}
	*o = offsetValue(v)
	return nil
}

func (o *offsetValue) Type() string {
	return "offset"
}
