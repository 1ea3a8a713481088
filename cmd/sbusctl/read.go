package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/timotiviert/digimat-saia/sbus"
)

// readCmd declares one item and blocks until its value arrives or the
// timeout elapses, the CLI-facing equivalent of spec.md §4.4's
// item.read(timeout).
type readCmd struct {
	targetFlags
}

func (*readCmd) Name() string     { return "read" }
func (*readCmd) Synopsis() string { return "read one item by address (e.g. r100, f10, i3)" }
func (*readCmd) Usage() string {
	return "read --host=<pcd> <tag>\n\n" +
		"tag is a prefix-coded address: i<idx> input, f<idx> flag, o<idx> output,\n" +
		"r<idx> register, t<idx> timer, c<idx> counter.\n"
}

func (c *readCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *readCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Println("read: exactly one tag is required")
		return subcommands.ExitUsageError
	}
	tag := f.Arg(0)

	err := c.withServer(ctx, false, func(opCtx context.Context, srv *sbus.Server) error {
		item, ok := srv.Declare(tag)
		if !ok {
			return fmt.Errorf("could not declare %q", tag)
		}
		logVerbose(c.verbose, "sbusctl: reading %s[%d]", item.Space(), item.Index())
		v, arrived := item.Read(opCtx, c.timeout, srv.Memory.EnqueuePriorityPull)
		if !arrived {
			return fmt.Errorf("timed out waiting for %s", tag)
		}
		if item.Boolean() {
			fmt.Printf("%s = %v\n", tag, v != 0)
		} else {
			fmt.Printf("%s = %g\n", tag, v)
		}
		return nil
	})
	if err != nil {
		fmt.Println(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
