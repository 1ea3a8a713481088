package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/google/subcommands"

	"github.com/timotiviert/digimat-saia/retry"
	"github.com/timotiviert/digimat-saia/sbus"
)

// writeCmd pushes a value to one item and waits for the push/pull
// round trip spec.md's Invariants describe: "push-pending clears and
// pull-pending is set... after the push request completes".
type writeCmd struct {
	targetFlags
}

func (*writeCmd) Name() string     { return "write" }
func (*writeCmd) Synopsis() string { return "write one item by address (e.g. f10 true, r100 42)" }
func (*writeCmd) Usage() string {
	return "write --host=<pcd> <tag> <value>\n"
}

func (c *writeCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *writeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Println("write: exactly one tag and one value are required")
		return subcommands.ExitUsageError
	}
	tag, raw := f.Arg(0), f.Arg(1)

	err := c.withServer(ctx, false, func(opCtx context.Context, srv *sbus.Server) error {
		item, ok := srv.Declare(tag)
		if !ok {
			return fmt.Errorf("could not declare %q", tag)
		}
		if item.Boolean() {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return fmt.Errorf("value %q is not a boolean", raw)
			}
			item.WriteBool(v, srv.Memory.EnqueuePush)
		} else {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fmt.Errorf("value %q is not a number", raw)
			}
			item.WriteValue(v, srv.Memory.EnqueuePush)
		}
		logVerbose(c.verbose, "sbusctl: pushing %s[%d] = %s", item.Space(), item.Index(), raw)
		if !waitRoundTrip(opCtx, item) {
			return fmt.Errorf("timed out waiting for confirmation of %s", tag)
		}
		fmt.Printf("%s = %s (confirmed)\n", tag, raw)
		return nil
	})
	if err != nil {
		fmt.Println(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// waitRoundTrip polls until the item is neither push- nor pull-pending,
// i.e. the write has been sent and its confirmation pull has returned
// (spec.md §4.4 Writing value / §3 Invariants).
func waitRoundTrip(ctx context.Context, item *sbus.Item) bool {
	err := retry.Retry(ctx, retry.NewConstantBackoff(10*time.Millisecond), func() error {
		if !item.IsPushPending() && !item.IsPullPending() {
			return nil
		}
		return errNotReady
	})
	return err == nil
}
