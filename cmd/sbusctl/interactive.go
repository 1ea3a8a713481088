package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/google/shlex"
	"github.com/google/subcommands"

	"github.com/timotiviert/digimat-saia/sbus"
)

// interactiveCmd is the Node's "interactive flag" console named in
// spec.md §3: a line-reading loop, shlex-tokenized the way Fuchsia's own
// line-based tools re-split typed commands, dispatching against one
// already-declared Server for the session's duration.
type interactiveCmd struct {
	targetFlags
}

func (*interactiveCmd) Name() string     { return "interactive" }
func (*interactiveCmd) Synopsis() string { return "open a read/write console against one PCD" }
func (*interactiveCmd) Usage() string {
	return "interactive --host=<pcd>\n\n" +
		"commands: read <tag>, write <tag> <value>, status, find <key>, quit\n"
}

func (c *interactiveCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *interactiveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.host == "" {
		fmt.Println("interactive: --host is required")
		return subcommands.ExitUsageError
	}

	node, err := sbus.NewNode(c.localPort, false, nil)
	if err != nil {
		fmt.Println(err)
		return subcommands.ExitFailure
	}
	defer node.Close()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- node.Run(runCtx) }()
	defer func() {
		cancel()
		<-done
	}()

	srv := node.DeclareServer(c.host, c.port, nil)
	fmt.Printf("connected to %s:%d — type \"quit\" to exit\n", c.host, c.port)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("sbus> ")
		if !scanner.Scan() {
			break
		}
		args, err := shlex.Split(scanner.Text())
		if err != nil || len(args) == 0 {
			continue
		}
		if c.dispatch(ctx, srv, args) {
			break
		}
	}
	return subcommands.ExitSuccess
}

// dispatch runs one tokenized console line. It returns true once the
// session should end.
func (c *interactiveCmd) dispatch(ctx context.Context, srv *sbus.Server, args []string) bool {
	switch args[0] {
	case "quit", "exit":
		return true

	case "status":
		opCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		if !waitIdle(opCtx, srv) || !srv.Link.Initiate(sbus.NewReadPcdStatusOwnRequest(srv)) || !waitIdle(opCtx, srv) {
			fmt.Println("status: request failed")
			return false
		}
		fmt.Printf("status: %s alive=%v\n", srv.Status(), srv.IsAlive())

	case "read":
		if len(args) != 2 {
			fmt.Println("usage: read <tag>")
			return false
		}
		item, ok := srv.Declare(args[1])
		if !ok {
			fmt.Printf("could not declare %q\n", args[1])
			return false
		}
		opCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		v, arrived := item.Read(opCtx, c.timeout, srv.Memory.EnqueuePriorityPull)
		if !arrived {
			fmt.Println("read: timed out")
			return false
		}
		fmt.Printf("%s = %g\n", args[1], v)

	case "write":
		if len(args) != 3 {
			fmt.Println("usage: write <tag> <value>")
			return false
		}
		item, ok := srv.Declare(args[1])
		if !ok {
			fmt.Printf("could not declare %q\n", args[1])
			return false
		}
		if item.Boolean() {
			v, err := strconv.ParseBool(args[2])
			if err != nil {
				fmt.Println("write: value must be a boolean")
				return false
			}
			item.WriteBool(v, srv.Memory.EnqueuePush)
		} else {
			v, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				fmt.Println("write: value must be a number")
				return false
			}
			item.WriteValue(v, srv.Memory.EnqueuePush)
		}
		fmt.Printf("%s <- %s queued\n", args[1], args[2])

	case "find":
		if len(args) != 2 {
			fmt.Println("usage: find <key>")
			return false
		}
		found := 0
		for _, it := range srv.Memory.Registers().Items() {
			if !srv.Match(it, args[1]) {
				continue
			}
			found++
			fmt.Printf("r%d = %g", it.Index(), it.Value())
			if next, ok := it.Next(1); ok {
				fmt.Printf(" (next r%d = %g)", next.Index(), next.Value())
			}
			fmt.Println()
		}
		if found == 0 {
			fmt.Println("find: no declared register matched")
		}

	default:
		fmt.Printf("unknown command %q\n", args[0])
	}
	return false
}
