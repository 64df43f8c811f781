// Package cli is the store command line: it parses flags, loads the
// configuration, and drives the image builder, verifier and space
// accountant.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/mit-pdos/go-store/util"
)

// Env is the process environment commands run against.
type Env struct {
	Stdin           io.Reader
	StdinIsTerminal bool
	Stdout          io.Writer
	Stderr          io.Writer
}

// Main runs the store command line and exits.
func Main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	env := &Env{
		Stdin:           os.Stdin,
		StdinIsTerminal: term.IsTerminal(int(os.Stdin.Fd())),
		Stdout:          os.Stdout,
		Stderr:          os.Stderr,
	}
	status := Run(ctx, os.Args[1:], env)
	cancel()
	os.Exit(int(status))
}

// Run parses args, which exclude the program name, and executes the
// subcommand they name.
func Run(ctx context.Context, args []string, env *Env) subcommands.ExitStatus {
	topFlags := flag.NewFlagSet("store", flag.ContinueOnError)
	topFlags.SetOutput(env.Stderr)
	debug := topFlags.Bool("debug", false, "enable debug logging.")
	logFormat := topFlags.String("log-format", "text", "log format: text or json.")

	cdr := subcommands.NewCommander(topFlags, "store")
	cdr.Output = env.Stdout
	cdr.Error = env.Stderr
	forEachCmd(cdr, cdr.Register)

	if err := topFlags.Parse(args); err != nil {
		return subcommands.ExitUsageError
	}
	if err := setupLogging(env.Stderr, *debug, *logFormat); err != nil {
		fmt.Fprintf(env.Stderr, "store: %v\n", err)
		return subcommands.ExitUsageError
	}
	return cdr.Execute(ctx, env)
}

func forEachCmd(cdr *subcommands.Commander, cb func(cmd subcommands.Command, group string)) {
	// Help and flags commands are generated automatically.
	cb(cdr.HelpCommand(), "")
	cb(cdr.FlagsCommand(), "")
	cb(cdr.CommandsCommand(), "")

	cb(new(Init), "")
	cb(newWrite("write", "check that data fits on a disk image before writing it"), "")
	cb(newWrite("append", "check that data fits on a disk image before appending it"), "")
	cb(new(Info), "")
}

func setupLogging(w io.Writer, debug bool, format string) error {
	logrus.SetOutput(w)
	switch format {
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("invalid log format %q, must be text or json", format)
	}
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
		util.Debug = 10
	} else {
		logrus.SetLevel(logrus.InfoLevel)
		util.Debug = 0
	}
	return nil
}
