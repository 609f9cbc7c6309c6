package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newModulesCmd(a *app, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List the modules loaded in the target process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			proc, _, err := a.attach(cmd.Flags(), opts)
			if err != nil {
				return err
			}
			defer proc.Close()

			modules, err := proc.Modules()
			if err != nil {
				return fmt.Errorf("list modules: %w", err)
			}

			for _, m := range modules {
				_, _ = fmt.Fprintf(a.stdout, "%-32s 0x%016X 0x%X\n", m.Name, uint64(m.BaseAddress), uint64(m.Size))
			}
			return nil
		},
	}
}
