package sbus

import (
	"context"
	"net"
	"time"

	"github.com/golang/glog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/timotiviert/digimat-saia/transport"
	"github.com/timotiviert/digimat-saia/wire"
)

const (
	tickInterval    = 20 * time.Millisecond
	readDeadline    = 100 * time.Millisecond
	maxServersPerTick = 8
)

// Node is the singleton owning the process's UDP socket, the Servers
// registry, and the local pseudo-server representing this process itself
// (spec.md §3). It runs the cooperative single-threaded engine described
// in spec.md §5/§9: one goroutine reading datagrams with a short
// deadline, one goroutine ticking every state machine.
type Node struct {
	socket  *transport.Socket
	servers *Servers
	Local   *Server

	broadcastAddr string
	scanEnabled   bool

	cursor int

	lastTickErr  error
	lastDiscover time.Time
}

// NewNode binds a UDP socket on port (0 picks an ephemeral one for
// tests) and creates the local pseudo-server.
func NewNode(port int, scanEnabled bool, limits map[Space]spaceInfo) (*Node, error) {
	socket, err := transport.Listen(port)
	if err != nil {
		return nil, err
	}
	n := &Node{
		socket:      socket,
		servers:     NewServers(),
		scanEnabled: scanEnabled,
	}
	n.broadcastAddr = transport.BroadcastAddress("")
	n.Local = NewServer("", socket.LocalPort(), true, n.sendTo, limits)
	return n, nil
}

// Servers exposes the registry for declaring remote controllers.
func (n *Node) Servers() *Servers { return n.servers }

// LocalPort reports the bound UDP port.
func (n *Node) LocalPort() int { return n.socket.LocalPort() }

// DeclareServer registers a remote PCD by host:port and returns its
// Server, creating it if this is the first mention of that host.
func (n *Node) DeclareServer(host string, port int, limits map[Space]spaceInfo) *Server {
	if srv, ok := n.servers.ByHost(host); ok {
		return srv
	}
	srv := NewServer(host, port, false, func(payload []byte, seq uint16, broadcast bool) error {
		return n.sendToHost(host, port, payload, seq, broadcast)
	}, limits)
	n.servers.Add(srv)
	return srv
}

// DeclareServerRange declares count servers at consecutive IPv4 addresses
// starting at baseHost, assigning consecutive logical station ids starting
// at startLid if startLid > 0 (original_source/server.py's
// SAIAServers.declareRange: "declare a block of servers at consecutive
// IPs/LIDs"). An address that fails to parse as IPv4 stops the scan and
// returns whatever was declared so far.
func (n *Node) DeclareServerRange(baseHost string, count int, startLid int, port int, limits map[Space]spaceInfo) []*Server {
	ip := net.ParseIP(baseHost).To4()
	if ip == nil {
		return nil
	}
	out := make([]*Server, 0, count)
	lid := startLid
	for i := 0; i < count; i++ {
		srv := n.DeclareServer(ip.String(), port, limits)
		if startLid > 0 {
			n.servers.AssignLid(srv, lid)
			lid++
		}
		out = append(out, srv)
		ip[3]++
	}
	return out
}

// sendTo is the local server's SendFunc: broadcasts go to the subnet
// broadcast address, everything else is addressed by the caller's own
// host/port via sendToHost (the local server itself never sends
// unicast payloads in normal operation, but DiscoverNodes needs a
// broadcast path).
func (n *Node) sendTo(payload []byte, seq uint16, broadcast bool) error {
	frame := wire.Encode(wire.Frame{
		Version:      wire.ProtocolVersion,
		ProtocolType: wire.TypeRequest,
		Sequence:     seq,
		Attribute:    0,
		Payload:      payload,
	})
	target := n.broadcastAddr
	return n.socket.SendTo(frame, target, transport.DefaultPort)
}

func (n *Node) sendToHost(host string, port int, payload []byte, seq uint16, broadcast bool) error {
	frame := wire.Encode(wire.Frame{
		Version:      wire.ProtocolVersion,
		ProtocolType: wire.TypeRequest,
		Sequence:     seq,
		Attribute:    0,
		Payload:      payload,
	})
	return n.socket.SendTo(frame, host, port)
}

// Run drives the Node's two long-running goroutines — the UDP read loop
// and the manager tick loop — until ctx is canceled or one fails fatally
// (spec.md §9 "dedicated worker goroutine... runs the manager at fixed
// cadence").
func (n *Node) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return n.readLoop(gctx) })
	g.Go(func() error { return n.managerLoop(gctx) })
	return g.Wait()
}

func (n *Node) readLoop(ctx context.Context) error {
	buf := make([]byte, wire.MaxFrameSize)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		size, addr, err := n.socket.ReadFrom(buf, readDeadline)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}
		n.dispatch(buf[:size], addr)
	}
}

func (n *Node) managerLoop(ctx context.Context) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n.tick()
		}
	}
}

// dispatch decodes an inbound frame and routes it: by source host to a
// known Server's Link, or — while network scanning is enabled — as a new
// ReadStationNumber reply auto-declaring a Server (spec.md §4.6
// DiscoverNodes, §4.7 "Inbound datagrams are dispatched by source host").
func (n *Node) dispatch(data []byte, addr *net.UDPAddr) {
	frame, err := wire.Decode(data)
	if err != nil {
		glog.Warningf("sbus: dropping malformed frame from %s: %v", addr, err)
		return
	}

	host := addr.IP.String()
	if srv, ok := n.servers.ByHost(host); ok {
		srv.Link.OnMessage(frame.Attribute, frame.Sequence, frame.Payload)
		return
	}

	if n.scanEnabled && frame.ProtocolType == wire.TypeResponse && len(frame.Payload) >= 1 {
		lid := int(frame.Payload[0])
		srv := n.DeclareServer(host, transport.DefaultPort, nil)
		n.servers.AssignLid(srv, lid)
		glog.Infof("sbus: discovered node %s as station %d", host, lid)
	}
}

// tick round-robins over at most maxServersPerTick remote servers per
// pass, plus the local server, aggregating any manager errors via
// multierr instead of letting one misbehaving server halt the loop
// (spec.md §4.7, §9 "one misbehaving item cannot halt the engine").
func (n *Node) tick() {
	var errs error

	n.Local.manager(n.scanEnabled, n.maybeDiscover)

	all := n.servers.List()
	if len(all) == 0 {
		n.lastTickErr = errs
		return
	}
	count := maxServersPerTick
	if count > len(all) {
		count = len(all)
	}
	for i := 0; i < count; i++ {
		idx := (n.cursor + i) % len(all)
		srv := all[idx]
		func() {
			defer func() {
				if r := recover(); r != nil {
					errs = multierr.Append(errs, &serverPanicError{host: srv.Host})
				}
			}()
			srv.manager(false, nil)
		}()
	}
	n.cursor = (n.cursor + count) % len(all)
	n.lastTickErr = errs
}

func (n *Node) maybeDiscover() {
	if n.Local.Transfers.Active() != nil {
		return
	}
	if time.Since(n.lastDiscover) < discoverInterval {
		return
	}
	n.lastDiscover = time.Now()
	n.Local.Transfers.Submit(NewDiscoverNodesTransfer(n.broadcastAddr))
}

// LastTickError returns the aggregate error from the most recent manager
// tick, or nil.
func (n *Node) LastTickError() error { return n.lastTickErr }

// Close releases the UDP socket.
func (n *Node) Close() error { return n.socket.Close() }

type serverPanicError struct{ host string }

func (e *serverPanicError) Error() string { return "sbus: manager panic for server " + e.host }
