// Command sbusctl drives a Saia S-Bus node from the shell: discover
// controllers on the local subnet, read and write their I/O image, and
// flip CPU run state, the way bin/traceutil wires google/subcommands
// together for a small fixed set of verbs.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/golang/glog"
	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&discoverCmd{}, "")
	subcommands.Register(&readCmd{}, "")
	subcommands.Register(&writeCmd{}, "")
	subcommands.Register(&cpuCmd{verb: "run"}, "")
	subcommands.Register(&cpuCmd{verb: "stop"}, "")
	subcommands.Register(&cpuCmd{verb: "restart"}, "")
	subcommands.Register(&statusCmd{}, "")
	subcommands.Register(&interactiveCmd{}, "")

	flag.Parse()
	defer glog.Flush()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
