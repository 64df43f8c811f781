package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/mit-pdos/go-store/alloc"
	"github.com/mit-pdos/go-store/config"
	"github.com/mit-pdos/go-store/image"
)

// Write implements subcommands.Command for the "write" and "append"
// commands. Both verify the image and admit the pending data; neither
// stores it yet.
type Write struct {
	name     string
	synopsis string
	src      source
}

func newWrite(name, synopsis string) *Write {
	return &Write{name: name, synopsis: synopsis}
}

// Name implements subcommands.Command.Name.
func (w *Write) Name() string {
	return w.name
}

// Synopsis implements subcommands.Command.Synopsis.
func (w *Write) Synopsis() string {
	return w.synopsis
}

// Usage implements subcommands.Command.Usage.
func (w *Write) Usage() string {
	return fmt.Sprintf(`%s [flags] - %s.

Data comes from -file, from -data, or from standard input when it is not a
terminal. Its name must fit an inode record.
`, w.name, w.synopsis)
}

// SetFlags implements subcommands.Command.SetFlags.
func (w *Write) SetFlags(f *flag.FlagSet) {
	config.RegisterDiskFlags(f)
	f.StringVar(&w.src.File, "file", "", "file whose contents are written.")
	f.Var(&w.src.Data, "data", "literal data to write.")
	f.StringVar(&w.src.Name, "name", "", "name the data is stored under. Defaults to the base name of -file.")
}

// Execute implements subcommands.Command.Execute.
func (w *Write) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	env := args[0].(*Env)
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	if err := w.src.Validate(); err != nil {
		fmt.Fprintf(env.Stderr, "store: %v\n", err)
		f.Usage()
		return subcommands.ExitUsageError
	}

	conf, err := config.NewFromFlags(f)
	if err != nil {
		return env.fail(err)
	}
	if err := conf.Validate(); err != nil {
		return env.fail(err)
	}
	if err := w.src.CheckName(); err != nil {
		return env.fail(err)
	}

	// the sidecar lock is only created next to an image that exists
	if err := image.Exists(conf.DiskPath); err != nil {
		return env.fail(err)
	}
	unlock, err := image.Lock(ctx, conf.DiskPath)
	if err != nil {
		return env.fail(err)
	}
	defer unlock()

	v, err := image.Verify(conf.DiskPath)
	if err != nil {
		return env.fail(err)
	}
	conf = conf.WithDiskSize(v.Super.DiskSize)
	conf.Log()
	fmt.Fprintf(env.Stdout, "Disk: %s\n", conf.DiskPath)
	fmt.Fprintf(env.Stdout, "Size: %s (%d bytes)\n", human(conf.DiskSize), conf.DiskSize)

	pending, err := w.src.Pending(env)
	if err != nil {
		return env.fail(err)
	}
	if err := alloc.Admit(v, pending); err != nil {
		return env.fail(err)
	}
	fmt.Fprintf(env.Stdout, "admitted %d bytes\n", pending)
	return subcommands.ExitSuccess
}
