package cli

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"github.com/mit-pdos/go-store/config"
	"github.com/mit-pdos/go-store/image"
)

// Info implements subcommands.Command for the "info" command.
type Info struct{}

// Name implements subcommands.Command.Name.
func (*Info) Name() string {
	return "info"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Info) Synopsis() string {
	return "verify a disk image and print its superblock"
}

// Usage implements subcommands.Command.Usage.
func (*Info) Usage() string {
	return `info [flags] - verify a disk image and print its superblock and layout.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Info) SetFlags(f *flag.FlagSet) {
	config.RegisterDiskFlags(f)
}

// Execute implements subcommands.Command.Execute.
func (*Info) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	env := args[0].(*Env)
	if f.NArg() != 0 {
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

	if err := image.Exists(conf.DiskPath); err != nil {
		return env.fail(err)
	}
	unlock, err := image.RLock(ctx, conf.DiskPath)
	if err != nil {
		return env.fail(err)
	}
	defer unlock()

	v, err := image.Verify(conf.DiskPath)
	if err != nil {
		return env.fail(err)
	}
	printSuper(env.Stdout, &v.Super)
	printLayout(env.Stdout, &v.Super)
	return subcommands.ExitSuccess
}
