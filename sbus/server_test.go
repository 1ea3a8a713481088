package sbus

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/timotiviert/digimat-saia/wire"
)

func TestServerDeviceInfoProbePopulatesInfoAndLoadsSymbols(t *testing.T) {
	dir := t.TempDir()
	mapPath := filepath.Join(dir, "MyPCD.map")
	if err := os.WriteFile(mapPath, []byte("tag1 R 8\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var lastSeq uint16
	sent := 0
	send := func(payload []byte, seq uint16, broadcast bool) error {
		sent++
		lastSeq = seq
		return nil
	}

	srv := NewServer("10.0.0.9", 5050, false, send, nil)
	srv.SetMapSearchPath(dir)
	srv.setLid(7)

	// Drive the manager loop: the first tick(s) submit the device-info
	// transfer and send its first block request; once a request is
	// in flight, answer it with a terminated identification record.
	answered := false
	for i := 0; i < 20; i++ {
		srv.manager(false, nil)
		if sent > 0 && !answered {
			answered = true
			body := []byte("MyPCD;TypeX;2024-01-01\x00")
			srv.Link.OnMessage(wire.TypeResponse, lastSeq, body)
		}
		if srv.Transfers.Active() == nil && answered {
			break
		}
	}

	name, ok := srv.DeviceInfo("deviceName")
	if !ok || name != "MyPCD" {
		t.Errorf("DeviceInfo(deviceName) = %q, %v, want MyPCD, true", name, ok)
	}
	pcdType, ok := srv.DeviceInfo("pcdType")
	if !ok || pcdType != "TypeX" {
		t.Errorf("DeviceInfo(pcdType) = %q, %v, want TypeX, true", pcdType, ok)
	}
	build, ok := srv.DeviceInfo("buildDateTime")
	if !ok || build != "2024-01-01" {
		t.Errorf("DeviceInfo(buildDateTime) = %q, %v, want 2024-01-01, true", build, ok)
	}

	if srv.Symbols == nil {
		t.Fatal("expected LoadSymbols to have populated Symbols")
	}
	addr, ok := srv.Symbols.Lookup("tag1")
	if !ok || addr.Index != 8 {
		t.Errorf("Symbols.Lookup(tag1) = %+v, %v, want index 8, true", addr, ok)
	}
}

func TestServerMaybeProbeDeviceInfoSkipsOnceResolved(t *testing.T) {
	send := func(payload []byte, seq uint16, broadcast bool) error { return nil }
	srv := NewServer("10.0.0.9", 5050, false, send, nil)
	srv.setLid(7)
	srv.setDeviceInfo("deviceName", "AlreadyKnown")

	srv.maybeProbeDeviceInfo()

	if srv.Transfers.Active() != nil || srv.Transfers.pending.Len() != 0 {
		t.Error("maybeProbeDeviceInfo should not submit once a device name is already known")
	}
}

func TestServerWatchdogExpiryClearsStatus(t *testing.T) {
	send := func(payload []byte, seq uint16, broadcast bool) error { return nil }
	srv := NewServer("10.0.0.9", 5050, false, send, nil)
	srv.setStatus(wire.StatusRun)

	srv.Link.watchdogDeadline = time.Now().Add(-time.Second)
	srv.Link.alive = true

	srv.Link.Tick()

	if srv.IsAlive() {
		t.Error("expected Link to be marked not alive after watchdog expiry")
	}
	if got := srv.Status(); got != wire.StatusUnknown {
		t.Errorf("Status() = %v, want StatusUnknown after watchdog expiry", got)
	}
}
