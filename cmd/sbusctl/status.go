package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/google/subcommands"
	"github.com/kr/pretty"

	"github.com/timotiviert/digimat-saia/sbus"
)

// statusCmd polls ReadPcdStatusOwn once and prints the run state plus the
// device name, if this command's own Node has already learned it (each
// command starts a fresh Node, so nothing carries over from an earlier
// run; spec.md §3 Server "status byte... device-info map").
type statusCmd struct {
	targetFlags
	debug bool
}

func (*statusCmd) Name() string     { return "status" }
func (*statusCmd) Synopsis() string { return "query a PCD's CPU run state" }
func (*statusCmd) Usage() string    { return "status --host=<pcd> [flags...]\n" }

func (c *statusCmd) SetFlags(f *flag.FlagSet) {
	c.register(f)
	f.BoolVar(&c.debug, "debug", false, "dump the full Server struct")
}

func (c *statusCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	err := c.withServer(ctx, false, func(opCtx context.Context, srv *sbus.Server) error {
		if !waitIdle(opCtx, srv) {
			return fmt.Errorf("link busy")
		}
		if !srv.Link.Initiate(sbus.NewReadPcdStatusOwnRequest(srv)) {
			return fmt.Errorf("could not initiate status request")
		}
		if !waitIdle(opCtx, srv) {
			return fmt.Errorf("timed out waiting for response")
		}

		fmt.Printf("host:    %s\n", srv.Host)
		fmt.Printf("status:  %s\n", srv.Status())
		fmt.Printf("alive:   %v\n", srv.IsAlive())
		fmt.Printf("sent:    %s frames\n", humanize.Comma(int64(srv.Link.SentCount())))
		if name, ok := srv.DeviceInfo("deviceName"); ok {
			fmt.Printf("device:  %s\n", name)
		}
		if c.debug {
			fmt.Println(pretty.Sprint(srv))
		}
		return nil
	})
	if err != nil {
		fmt.Println(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
