package transport

import (
	"net"
	"testing"
	"time"
)

func TestSocketSendReceiveLoopback(t *testing.T) {
	server, err := Listen(0)
	if err != nil {
		t.Fatalf("listen server: %v", err)
	}
	defer server.Close()

	client, err := Listen(0)
	if err != nil {
		t.Fatalf("listen client: %v", err)
	}
	defer client.Close()

	msg := []byte("hello sbus")
	if err := client.SendTo(msg, "127.0.0.1", server.LocalPort()); err != nil {
		t.Fatalf("SendTo: %v", err)
	}

	buf := make([]byte, 256)
	n, addr, err := server.ReadFrom(buf, time.Second)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if string(buf[:n]) != string(msg) {
		t.Errorf("got %q, want %q", buf[:n], msg)
	}
	if addr == nil {
		t.Error("expected a non-nil source address")
	}
}

func TestSocketReadTimeout(t *testing.T) {
	s, err := Listen(0)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer s.Close()

	buf := make([]byte, 16)
	_, _, err = s.ReadFrom(buf, 50*time.Millisecond)
	if err == nil {
		t.Fatal("expected a read-deadline timeout error")
	}
}

func TestBroadcastAddressFallback(t *testing.T) {
	if got := BroadcastAddress(""); got != "255.255.255.255" {
		t.Errorf("BroadcastAddress(\"\") = %q, want limited broadcast", got)
	}
	if got := BroadcastAddress("not an ip"); got != "255.255.255.255" {
		t.Errorf("BroadcastAddress(garbage) = %q, want limited broadcast", got)
	}
}

func TestSubnetBroadcast(t *testing.T) {
	_, n, err := net.ParseCIDR("10.0.0.5/24")
	if err != nil {
		t.Fatal(err)
	}
	if got := subnetBroadcast(n); got != "10.0.0.255" {
		t.Errorf("subnetBroadcast(10.0.0.5/24) = %q, want 10.0.0.255", got)
	}
}
