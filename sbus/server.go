package sbus

import (
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/timotiviert/digimat-saia/symtab"
	"github.com/timotiviert/digimat-saia/wire"
)

// LID is the logical station identifier, 0-254; 255 means broadcast
// (spec.md GLOSSARY).
const (
	LIDUnknown   = -1
	LIDBroadcast = 255
)

// Server is one controller: its own Link, Memory, TransferQueue and
// SymbolTable (spec.md §3). A Server may be the local pseudo-server
// representing this Node itself, or a remote PCD reached over UDP.
type Server struct {
	Host string
	Port int

	Link      *Link
	Memory    *Memory
	Transfers *TransferQueue
	Symbols   *symtab.Table

	local bool

	mu                sync.Mutex
	lid               int
	status            wire.StatusByte
	deviceInfo        map[string]string
	pauseUntil        time.Time
	lastStatus        wire.StatusByte
	statusKnown       bool
	lastStatusReq     time.Time
	lastDeviceInfoReq time.Time
	mapSearchPath     string
}

// statusPollInterval is how often a remote server's CPU run state is
// re-polled once its LID is known (spec.md §4.7: "re-issue
// ReadPcdStatusOwn every 5s").
const statusPollInterval = 5 * time.Second

// deviceInfoRetryInterval is how often the device-info probe is retried
// while it has not yet produced a device name (e.g. the PCD was briefly
// unreachable at LID-assignment time).
const deviceInfoRetryInterval = 60 * time.Second

// NewServer creates a Server bound to host:port, with a fresh Link/Memory/
// TransferQueue. send performs the actual datagram transmit for this
// server's Link.
func NewServer(host string, port int, local bool, send SendFunc, limits map[Space]spaceInfo) *Server {
	s := &Server{
		Host:       host,
		Port:       port,
		local:      local,
		lid:        LIDUnknown,
		deviceInfo: make(map[string]string),
		Transfers:  NewTransferQueue(),
		Memory:     NewMemory(limits),
	}
	s.Link = NewLink(0, send)
	s.Link.SetOnSendErr(func(error) { s.Pause(errorPause) })
	s.Link.SetOnWatchdogExpired(func() { s.setStatus(wire.StatusUnknown) })
	return s
}

// SetMapSearchPath sets the directory a device-info probe's
// loadSymbols(deviceName+".map") resolves relative to (spec.md §3 Node
// "map-file search path"). The zero value resolves relative to the
// process's working directory.
func (s *Server) SetMapSearchPath(dir string) {
	s.mu.Lock()
	s.mapSearchPath = dir
	s.mu.Unlock()
}

// LID returns the server's logical station id, or LIDUnknown.
func (s *Server) LID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lid
}

// setLid records a station number learned from ReadStationNumber. Callers
// going through Servers.AssignLid get duplicate-LID resolution; this
// direct setter is used by the request object itself.
func (s *Server) setLid(lid int) {
	s.mu.Lock()
	s.lid = lid
	s.mu.Unlock()
}

// Status returns the last known CPU run-state byte.
func (s *Server) Status() wire.StatusByte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// setStatus records a new status byte, logging only on an actual change
// (spec.md §4.7 "status-change-only logging").
func (s *Server) setStatus(v wire.StatusByte) {
	s.mu.Lock()
	changed := !s.statusKnown || v != s.lastStatus
	s.status = v
	s.lastStatus = v
	s.statusKnown = true
	s.mu.Unlock()
	if changed {
		glog.Infof("sbus: server %s status -> %s", s.Host, v)
	}
}

// DeviceInfo returns a field set by a completed ReadDeviceInformation
// transfer (deviceName, pcdType, buildDateTime; spec.md §4.6).
func (s *Server) DeviceInfo(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.deviceInfo[key]
	return v, ok
}

// setDeviceInfo stores one field of the parsed identification record.
func (s *Server) setDeviceInfo(key, value string) {
	s.mu.Lock()
	s.deviceInfo[key] = value
	s.mu.Unlock()
}

// Pause suspends this server's Link activity for d (spec.md §7 SendError
// / DuplicateLid: "paused 15s"). It only extends the deadline forward: a
// pause ending before the current deadline leaves it unchanged.
func (s *Server) Pause(d time.Duration) {
	s.mu.Lock()
	if until := time.Now().Add(d); until.After(s.pauseUntil) {
		s.pauseUntil = until
	}
	s.mu.Unlock()
	glog.Warningf("sbus: pausing server %s for %s", s.Host, d)
}

// Paused reports whether the server is still within a pause window.
func (s *Server) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Now().Before(s.pauseUntil)
}

// IsAlive reports the underlying Link's liveness (spec.md §7 WatchdogExpired).
func (s *Server) IsAlive() bool { return s.Link.IsAlive() }

// IsLocal reports whether this is the Node's own pseudo-server.
func (s *Server) IsLocal() bool { return s.local }

// LoadSymbols loads (or reloads) this server's symbol table from path and
// starts watching it for changes so edits to the .map file take effect
// without a restart. Called by a completed ReadDeviceInformation transfer
// in remote mode (spec.md §4.6: "triggers loadSymbols(deviceName+\".map\")").
func (s *Server) LoadSymbols(path string) error {
	table, err := symtab.Load(path)
	if err != nil {
		return err
	}
	if err := table.Watch(); err != nil {
		glog.Warningf("sbus: watch %s: %v", path, err)
	}
	if s.Symbols != nil {
		if err := s.Symbols.Close(); err != nil {
			glog.Warningf("sbus: close previous symbol table for %s: %v", s.Host, err)
		}
	}
	s.Symbols = table
	return nil
}

// Match reports whether key identifies it, either as a numeric index
// (matched against it.Index()) or as a substring of its resolved tag name
// from this server's loaded symbol table (original_source/items.py's
// SAIAItem.match, used by SAIAItems.table(key) to filter an item dump).
// A server with no loaded symbol table can only match by index.
func (s *Server) Match(it *Item, key string) bool {
	if n, err := strconv.Atoi(key); err == nil && n == it.Index() {
		return true
	}
	if s.Symbols == nil {
		return false
	}
	tag, ok := s.Symbols.ReverseLookup(symtab.Address{Space: spaceToSymtab(it.Space()), Index: it.Index()})
	return ok && strings.Contains(tag, key)
}

// manager advances this server's tick: the Link first, then — depending
// on local/remote role — transfers, memory, and periodic status/LID
// polling (spec.md §4.7).
func (s *Server) manager(scanEnabled bool, discover func()) {
	s.Link.Tick()

	if s.Paused() {
		return
	}

	if s.local {
		s.Transfers.Manager(s.Link)
		s.driveMemory()
		if scanEnabled && discover != nil {
			discover()
		}
		return
	}

	if s.LID() == LIDUnknown {
		if !s.Link.Busy() {
			s.Link.Initiate(NewReadStationNumberRequest(s, false))
		}
		return
	}

	s.Transfers.Manager(s.Link)
	s.driveMemory()
	s.maybeProbeDeviceInfo()
	s.maybeStatusPoll()
}

// maybeStatusPoll re-submits a ReadPcdStatusOwn transfer every
// statusPollInterval once this remote server's LID is known (spec.md
// §4.7). It defers to whatever transfer is already active, same as
// Node.maybeDiscover defers to the local server's active transfer.
func (s *Server) maybeStatusPoll() {
	if s.Transfers.Active() != nil {
		return
	}
	if time.Since(s.lastStatusReq) < statusPollInterval {
		return
	}
	s.lastStatusReq = time.Now()
	s.Transfers.Submit(NewFromRequestTransfer(NewReadPcdStatusOwnRequest(s)))
}

// maybeProbeDeviceInfo submits a ReadDeviceInformation transfer once this
// remote server's LID is known and no device name has been learned yet,
// retrying every deviceInfoRetryInterval until one succeeds (spec.md
// §4.6: "Issues repeated block-file reads... Parses deviceName, pcdType,
// buildDateTime... calls server.setDeviceInfo(k,v)... triggers
// loadSymbols(deviceName+\".map\")"). It defers to whatever transfer is
// already active, the same debounce shape as maybeStatusPoll.
func (s *Server) maybeProbeDeviceInfo() {
	if _, ok := s.DeviceInfo("deviceName"); ok {
		return
	}
	if s.Transfers.Active() != nil {
		return
	}
	if time.Since(s.lastDeviceInfoReq) < deviceInfoRetryInterval {
		return
	}
	s.lastDeviceInfoReq = time.Now()
	s.Transfers.Submit(NewDeviceInfoTransfer(s.onDeviceInfoResolved))
}

// onDeviceInfoResolved records a completed device-info probe's fields and,
// in remote mode, loads the device's symbol map (spec.md §4.6).
func (s *Server) onDeviceInfoResolved(info DeviceInfo) {
	if info.DeviceName != "" {
		s.setDeviceInfo("deviceName", info.DeviceName)
	}
	if info.PCDType != "" {
		s.setDeviceInfo("pcdType", info.PCDType)
	}
	if info.BuildDateTime != "" {
		s.setDeviceInfo("buildDateTime", info.BuildDateTime)
	}
	if s.local || info.DeviceName == "" {
		return
	}
	path := filepath.Join(s.mapSearchPath, info.DeviceName+".map")
	if err := s.LoadSymbols(path); err != nil {
		glog.Warningf("sbus: load symbols for %s from %s: %v", s.Host, path, err)
	}
}

// driveMemory submits at most one coalesced range request per tick,
// building either a ReadRangeRequest or a WriteRangeRequest from the next
// optimizer output, and runs each container's round-robin manager
// (spec.md §4.5, §4.4).
func (s *Server) driveMemory() {
	for _, space := range []Space{SpaceInput, SpaceFlag, SpaceOutput, SpaceRegister, SpaceTimer, SpaceCounter} {
		s.Memory.Container(space).Manager(s.Memory.EnqueuePull)
	}

	if s.Link.Busy() {
		return
	}
	op, ok := s.Memory.NextOp()
	if !ok {
		return
	}
	info := s.Memory.InfoFor(op.Space)
	var req Request
	switch op.Kind {
	case OpRead:
		req = NewReadRangeRequest(op, info.width, info.readOp)
	case OpWrite:
		req = NewWriteRangeRequest(op, info.width, info.writeOp, s.Memory.EnqueuePull)
	}
	s.Link.Initiate(req)
}
