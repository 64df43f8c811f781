package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/mit-pdos/go-store/config"
	"github.com/mit-pdos/go-store/image"
)

// Init implements subcommands.Command for the "init" command.
type Init struct{}

// Name implements subcommands.Command.Name.
func (*Init) Name() string {
	return "init"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Init) Synopsis() string {
	return "create a new disk image"
}

// Usage implements subcommands.Command.Usage.
func (*Init) Usage() string {
	return `init [flags] - create a new disk image. The image must not exist yet.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Init) SetFlags(f *flag.FlagSet) {
	config.RegisterDiskFlags(f)
	config.RegisterLayoutFlags(f)
}

// Execute implements subcommands.Command.Execute.
func (*Init) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	env := args[0].(*Env)
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	conf, err := config.NewFromFlags(f)
	if err != nil {
		return env.fail(err)
	}
	if err := conf.ValidateForInit(); err != nil {
		return env.fail(err)
	}
	conf.Log()

	p := image.ParamsFromConfig(conf)
	if _, err := p.Precheck(); err != nil {
		return env.fail(err)
	}
	unlock, err := image.Lock(ctx, conf.DiskPath)
	if err != nil {
		return env.fail(err)
	}
	defer unlock()

	sb, err := image.Create(p)
	if err != nil {
		return env.fail(err)
	}
	printConfig(env.Stdout, conf)
	printSuper(env.Stdout, &sb)
	fmt.Fprintf(env.Stdout, "Disk %s initiated\n", conf.DiskPath)
	return subcommands.ExitSuccess
}
