// Package transport wraps the UDP socket a Node uses to exchange S-Bus
// datagrams, and resolves the broadcast address used for node discovery.
// It is an external collaborator per spec.md §1: the protocol engine only
// needs "read with a short deadline", "write to host:port", and "resolve a
// broadcast target".
package transport

import (
	"context"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"
)

// DefaultPort is the Ether-S-Bus UDP port (spec.md §3/§6).
const DefaultPort = 5050

// Socket is a UDP endpoint configured for broadcast send/receive with a
// reusable local port, the way a Node binds its single shared socket.
type Socket struct {
	conn *net.UDPConn
	pc   *ipv4.PacketConn
}

// Listen binds a UDP socket on the given local port (0 picks an ephemeral
// port) with SO_REUSEADDR and SO_BROADCAST set.
func Listen(port int) (*Socket, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
				if sockErr != nil {
					return
				}
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}

	conn, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("transport: listen on port %d: %w", port, err)
	}

	udpConn := conn.(*net.UDPConn)
	glog.V(1).Infof("transport: listening on %s", udpConn.LocalAddr())
	return &Socket{conn: udpConn, pc: ipv4.NewPacketConn(udpConn)}, nil
}

// LocalPort returns the port the socket is bound to.
func (s *Socket) LocalPort() int {
	if addr, ok := s.conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.Port
	}
	return 0
}

// SendTo writes data to host:port.
func (s *Socket) SendTo(data []byte, host string, port int) error {
	addr, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return fmt.Errorf("transport: resolve %s:%d: %w", host, port, err)
	}
	_, err = s.conn.WriteToUDP(data, addr)
	return err
}

// ReadFrom reads one datagram, giving up after deadline elapses. A timeout
// is reported via the returned error satisfying net.Error.Timeout(); callers
// should treat that as "nothing arrived yet", not a fatal error.
func (s *Socket) ReadFrom(buf []byte, deadline time.Duration) (int, *net.UDPAddr, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(deadline)); err != nil {
		return 0, nil, err
	}
	n, addr, err := s.conn.ReadFromUDP(buf)
	return n, addr, err
}

// Close releases the socket. Any in-flight ReadFrom calls will return
// promptly with an error.
func (s *Socket) Close() error {
	return s.conn.Close()
}
