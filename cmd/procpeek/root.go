package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	psutil "github.com/shirou/gopsutil/v4/process"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"procpeek/hexdump"
	"procpeek/process"
	"procpeek/profile"
	"procpeek/remote_value"
)

// app carries the collaborators the commands need, so tests can swap the OS layer.
type app struct {
	newSystem func() (process.System, error)
	pidExists func(pid int32) (bool, error)
	stdout    io.Writer
	stderr    io.Writer
}

func newApp() *app {
	return &app{
		newSystem: getSystem,
		pidExists: psutil.PidExists,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
	}
}

// maxDump bounds --dump; the dump is a diagnostic for the bytes around one value.
const maxDump = 4096

type rootOptions struct {
	config       string
	title        string
	module       string
	offset       offsetValue
	width        uint64
	dump         uint64
	cacheModules bool
	noColor      bool
	verbose      bool
	printProfile bool
}

func newRootCmd(a *app) *cobra.Command {
	defaults := profile.Default()
	opts := &rootOptions{
		title:  defaults.WindowTitle,
		module: defaults.Module,
		offset: offsetValue(defaults.Offset),
		width:  defaults.Width,
	}

	cmd := &cobra.Command{
		Use:   "procpeek",
		Short: "Read a value from another process's memory at a module-relative offset",
		Long: `procpeek finds a process by the exact title of its top-level window, looks up the
base address of a loaded module, and reads a little-endian unsigned value at
module base + offset.

With no flags it reads the local player's health from Team Fortress 2.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRead(cmd.Flags(), opts)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.config, "config", "c", "", "target profile (YAML); explicit flags override it")
	pf.StringVarP(&opts.title, "title", "t", opts.title, "exact title of the target's top-level window")
	pf.BoolVar(&opts.cacheModules, "cache-modules", false, "remember module base addresses instead of re-enumerating")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "print attach and address details to stderr")

	f := cmd.Flags()
	f.StringVarP(&opts.module, "module", "m", opts.module, "module the offset is relative to")
	f.VarP(&opts.offset, "offset", "o", "byte offset from the module base (decimal or 0x hex)")
	f.Uint64VarP(&opts.width, "width", "w", opts.width, "value width in bytes: 1, 2, 4 or 8")
	f.Uint64Var(&opts.dump, "dump", 0, "also hex dump this many bytes starting at the value")
	f.BoolVar(&opts.noColor, "no-color", false, "disable colors in the hex dump")
	f.BoolVar(&opts.printProfile, "print-profile", false, "print the resolved profile as YAML and exit without attaching")

	cmd.AddCommand(newModulesCmd(a, opts))
	return cmd
}

// resolveProfile layers explicitly set flags over the config file over the defaults.
func (o *rootOptions) resolveProfile(flags *pflag.FlagSet) (*profile.Profile, error) {
	p := profile.Default()
	if o.config != "" {
		loaded, err := profile.Load(o.config)
		if err != nil {
			return nil, err
		}
		p = loaded
	}

	if flags.Changed("title") {
		p.WindowTitle = o.title
	}
	if flags.Changed("module") || flags.Changed("offset") || flags.Changed("width") {
		// the profile's name no longer describes the target
		p.Name = ""
	}
	if flags.Changed("module") {
		p.Module = o.module
	}
	if flags.Changed("offset") {
		p.Offset = profile.Offset(o.offset)
	}
	if flags.Changed("width") {
		p.Width = o.width
	}
	if o.dump > maxDump {
		return nil, fmt.Errorf("--dump %d exceeds the %d byte limit", o.dump, maxDump)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (a *app) attach(flags *pflag.FlagSet, opts *rootOptions) (*process.ProcessHandle, *profile.Profile, error) {
	prof, err := opts.resolveProfile(flags)
	if err != nil {
		return nil, nil, err
	}

	sys, err := a.newSystem()
	if err != nil {
		return nil, nil, err
	}

	var attachOpts []process.Option
	if opts.cacheModules {
		attachOpts = append(attachOpts, process.WithModuleCache())
	}

	proc, err := process.AttachByWindowTitle(sys, prof.WindowTitle, attachOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("attach: %w", err)
	}

	if opts.verbose {
		_, _ = fmt.Fprintf(a.stderr, "attached to %s (pid %d, %s)\n", proc.Name(), proc.PID(), proc.Path())
	}
	return proc, prof, nil
}

func (a *app) runRead(flags *pflag.FlagSet, opts *rootOptions) error {
	if opts.printProfile {
		return a.printProfile(flags, opts)
	}

	proc, prof, err := a.attach(flags, opts)
	if err != nil {
		return err
	}
	defer proc.Close()

	reader, err := remote_value.NewReader(proc, prof.Target())
	if err != nil {
		return err
	}

	value, err := reader.Read()
	if err != nil {
		return a.explainReadFailure(proc, fmt.Errorf("read %s: %w", reader.Target(), err))
	}

	if opts.verbose {
		if addr, err := reader.Address(); err == nil {
			_, _ = fmt.Fprintf(a.stderr, "%s resolved to %s\n", reader.Target(), addr.ToString())
		}
	}

	name := prof.Name
	if name == "" {
		name = "value"
	}
	_, _ = fmt.Fprintf(a.stdout, "%s: %d\n", name, value)

	if opts.dump > 0 {
		a.dumpAround(reader, proc, process.ProcessMemorySize(opts.dump), !opts.noColor)
	}
	return nil
}

func (a *app) printProfile(flags *pflag.FlagSet, opts *rootOptions) error {
	prof, err := opts.resolveProfile(flags)
	if err != nil {
		return err
	}

	data, err := prof.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	_, err = a.stdout.Write(data)
	return err
}

// dumpAround hex dumps size bytes from the value's address. Failures here only warn,
// the value itself was already read successfully.
func (a *app) dumpAround(reader *remote_value.Reader, proc *process.ProcessHandle, size process.ProcessMemorySize, color bool) {
	addr, err := reader.Address()
	if err != nil {
		_, _ = fmt.Fprintf(a.stderr, "dump: %v\n", err)
		return
	}

	data, err := proc.ReadMemory(addr, size)
	if err != nil {
		_, _ = fmt.Fprintf(a.stderr, "dump: %v\n", err)
		return
	}

	options := hexdump.DefaultOptions()
	options.StartAddress = addr
	options.HighlightAddress = addr
	options.HighlightSize = reader.Target().Width
	options.Color = color
	hexdump.DumpToWriter(a.stdout, data, options)
}

// explainReadFailure adds a note when the read failed because the target is gone.
func (a *app) explainReadFailure(proc *process.ProcessHandle, err error) error {
	if !errors.Is(err, process.ErrRemoteReadFailed) && !errors.Is(err, process.ErrModuleNotFound) {
		return err
	}

	exists, perr := a.pidExists(int32(proc.PID()))
	if perr != nil || exists {
		return err
	}
	return fmt.Errorf("%w (process %d has exited)", err, proc.PID())
}
