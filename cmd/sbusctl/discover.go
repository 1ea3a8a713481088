package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/subcommands"

	"github.com/timotiviert/digimat-saia/sbus"
	"github.com/timotiviert/digimat-saia/transport"
)

// discoverCmd broadcasts ReadStationNumber and reports whatever Servers
// the Node auto-declares from unicast replies within the window (spec.md
// §4.6 DiscoverNodes, §8 scenario 1). With --range it skips the broadcast
// and declares a block of consecutive hosts directly
// (original_source/server.py's SAIAServers.declareRange, for subnets that
// filter broadcast traffic).
type discoverCmd struct {
	targetFlags
	window    time.Duration
	rangeBase string
	rangeN    int
	rangeLid  int
	name      string
}

func (*discoverCmd) Name() string     { return "discover" }
func (*discoverCmd) Synopsis() string { return "broadcast a node discovery scan" }
func (*discoverCmd) Usage() string {
	return "discover [--window=3s] [--range-base=<ip> --range-count=<n> [--range-lid=<n>]]\n"
}

func (c *discoverCmd) SetFlags(f *flag.FlagSet) {
	c.register(f)
	f.DurationVar(&c.window, "window", 3*time.Second, "how long to collect replies")
	f.StringVar(&c.rangeBase, "range-base", "", "first IPv4 address of a consecutive block to declare directly")
	f.IntVar(&c.rangeN, "range-count", 0, "number of consecutive addresses to declare")
	f.IntVar(&c.rangeLid, "range-lid", 0, "first logical station id to assign (0 = don't assign)")
	f.StringVar(&c.name, "name", "", "only print the server whose device name matches (original_source's mount() convenience)")
}

func (c *discoverCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	scan := c.rangeBase == ""
	node, err := sbus.NewNode(c.localPort, scan, nil)
	if err != nil {
		fmt.Println(err)
		return subcommands.ExitFailure
	}
	defer node.Close()

	runCtx, cancel := context.WithTimeout(ctx, c.window)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- node.Run(runCtx) }()

	if c.rangeBase != "" {
		node.DeclareServerRange(c.rangeBase, c.rangeN, c.rangeLid, transport.DefaultPort, nil)
	}

	<-runCtx.Done()
	<-done

	if c.name != "" {
		srv, ok := node.Servers().Lookup(c.name)
		if !ok {
			fmt.Printf("no discovered server named %q\n", c.name)
			return subcommands.ExitFailure
		}
		fmt.Printf("%s\tstation=%d\talive=%v\n", srv.Host, srv.LID(), srv.IsAlive())
		return subcommands.ExitSuccess
	}

	servers := node.Servers().List()
	if len(servers) == 0 {
		fmt.Println("no stations found")
		return subcommands.ExitSuccess
	}
	for _, srv := range servers {
		fmt.Printf("%s\tstation=%d\talive=%v\n", srv.Host, srv.LID(), srv.IsAlive())
	}
	fmt.Printf("%d alive, %d dead, all alive: %v\n",
		len(node.Servers().Alive()), len(node.Servers().Dead()), node.Servers().IsAlive())
	return subcommands.ExitSuccess
}
