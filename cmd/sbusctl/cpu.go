package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/timotiviert/digimat-saia/sbus"
)

// cpuCmd implements run/stop/restart as three thin instances of the same
// command, mirroring dev_finder's pattern of one struct reused across
// subcommand registrations with a distinguishing field.
type cpuCmd struct {
	targetFlags
	verb string
}

func (c *cpuCmd) Name() string { return c.verb }

func (c *cpuCmd) Synopsis() string {
	switch c.verb {
	case "run":
		return "set CPU run state to Run"
	case "stop":
		return "set CPU run state to Stop"
	default:
		return "restart the CPU"
	}
}

func (c *cpuCmd) Usage() string {
	return fmt.Sprintf("%s --host=<pcd> [flags...]\n", c.verb)
}

func (c *cpuCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *cpuCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	err := c.withServer(ctx, false, func(opCtx context.Context, srv *sbus.Server) error {
		if !waitIdle(opCtx, srv) {
			return fmt.Errorf("link busy")
		}
		var req sbus.Request
		switch c.verb {
		case "run":
			req = sbus.NewRunCpuAllRequest(srv)
		case "stop":
			req = sbus.NewStopCpuAllRequest(srv)
		default:
			req = sbus.NewRestartCpuAllRequest(srv)
		}
		if !srv.Link.Initiate(req) {
			return fmt.Errorf("could not initiate request")
		}
		if !waitIdle(opCtx, srv) {
			return fmt.Errorf("timed out waiting for response")
		}
		return nil
	})
	if err != nil {
		fmt.Println(err)
		return subcommands.ExitFailure
	}
	fmt.Printf("%s: ok\n", c.verb)
	return subcommands.ExitSuccess
}
