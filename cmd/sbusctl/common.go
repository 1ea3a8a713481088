package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/pflag"

	"github.com/timotiviert/digimat-saia/retry"
	"github.com/timotiviert/digimat-saia/sbus"
	"github.com/timotiviert/digimat-saia/transport"
)

var errNotReady = errors.New("sbusctl: not ready yet")

// targetFlags are the host/port/timeout flags every command that talks to
// one PCD shares, registered through pflag's flag.FlagSet compatibility
// shim the way traceutil's subcommands share a common embedded struct.
type targetFlags struct {
	host      string
	port      int
	localPort int
	timeout   time.Duration
	verbose   bool
}

func (t *targetFlags) register(f *flag.FlagSet) {
	fs := pflag.NewFlagSet("sbusctl", pflag.ContinueOnError)
	fs.StringVar(&t.host, "host", "", "PCD host or IP address")
	fs.IntVar(&t.port, "port", transport.DefaultPort, "PCD UDP port")
	fs.IntVar(&t.localPort, "local-port", 0, "local UDP port to bind (0 = ephemeral)")
	fs.DurationVar(&t.timeout, "timeout", 5*time.Second, "per-operation timeout")
	fs.BoolVarP(&t.verbose, "verbose", "v", false, "verbose logging")
	fs.VisitAll(func(pf *pflag.Flag) {
		f.Var(pf.Value, pf.Name, pf.Usage)
	})
}

// withServer boots an ephemeral Node, declares the target as a Server, runs
// the manager loop for the duration of fn, and tears both down on return.
func (t *targetFlags) withServer(ctx context.Context, scan bool, fn func(ctx context.Context, srv *sbus.Server) error) error {
	if t.host == "" && !scan {
		return fmt.Errorf("sbusctl: --host is required")
	}

	node, err := sbus.NewNode(t.localPort, scan, nil)
	if err != nil {
		return fmt.Errorf("sbusctl: start node: %w", err)
	}
	defer node.Close()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- node.Run(runCtx) }()
	defer func() {
		cancel()
		<-done
	}()

	var srv *sbus.Server
	if t.host != "" {
		srv = node.DeclareServer(t.host, t.port, nil)
	}

	opCtx, opCancel := context.WithTimeout(ctx, t.timeout)
	defer opCancel()
	return fn(opCtx, srv)
}

// waitIdle polls srv's Link until it returns to Idle or ctx expires,
// reporting whether it went idle in time. Used by one-shot commands (CPU
// control, status poll) that submit a single Request directly on the Link
// rather than through a Transfer (spec.md §4.3). It drives the same
// retry.Retry polling loop the teacher's botanist commands use to wait out
// an asynchronous device state instead of hand-rolling a ticker select.
func waitIdle(ctx context.Context, srv *sbus.Server) bool {
	err := retry.Retry(ctx, retry.NewConstantBackoff(10*time.Millisecond), func() error {
		if !srv.Link.Busy() {
			return nil
		}
		return errNotReady
	})
	return err == nil
}

func logVerbose(verbose bool, format string, args ...interface{}) {
	if verbose {
		glog.Infof(format, args...)
	}
}
