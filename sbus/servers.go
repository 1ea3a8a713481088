package sbus

import (
	"strings"
	"sync"
)

// Servers is the Node's dual-indexed registry: by host string and by
// logical station id (spec.md §3 Node: "a table of Servers keyed by host
// string and by logical station id").
type Servers struct {
	mu     sync.Mutex
	byHost map[string]*Server
	byLid  map[int]*Server
}

func NewServers() *Servers {
	return &Servers{
		byHost: make(map[string]*Server),
		byLid:  make(map[int]*Server),
	}
}

// Add registers s by host. It does not touch the LID index; callers use
// AssignLid once a station number is known.
func (s *Servers) Add(srv *Server) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byHost[srv.Host] = srv
}

// ByHost looks up a server by its host string.
func (s *Servers) ByHost(host string) (*Server, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	srv, ok := s.byHost[host]
	return srv, ok
}

// ByLid looks up a server by its assigned logical station id.
func (s *Servers) ByLid(lid int) (*Server, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	srv, ok := s.byLid[lid]
	return srv, ok
}

// AssignLid claims lid for srv. If another server already holds it, srv is
// paused 15s and the existing claim is kept (spec.md §8 scenario 6,
// original_source/server.py's duplicate-LID handling, spec.md §7
// DuplicateLid).
func (s *Servers) AssignLid(srv *Server, lid int) bool {
	s.mu.Lock()
	existing, taken := s.byLid[lid]
	if taken && existing != srv {
		s.mu.Unlock()
		srv.Pause(errorPause)
		return false
	}
	s.byLid[lid] = srv
	s.mu.Unlock()
	srv.setLid(lid)
	return true
}

// List returns a snapshot of every registered server.
func (s *Servers) List() []*Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Server, 0, len(s.byHost))
	for _, srv := range s.byHost {
		out = append(out, srv)
	}
	return out
}

// Count returns the number of registered servers.
func (s *Servers) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byHost)
}

// Alive returns every registered server whose Link is currently alive
// (original_source/server.py's SAIAServers.alive()).
func (s *Servers) Alive() []*Server {
	var out []*Server
	for _, srv := range s.List() {
		if srv.IsAlive() {
			out = append(out, srv)
		}
	}
	return out
}

// Dead returns every registered server whose Link is not currently alive
// (original_source/server.py's SAIAServers.dead()).
func (s *Servers) Dead() []*Server {
	var out []*Server
	for _, srv := range s.List() {
		if !srv.IsAlive() {
			out = append(out, srv)
		}
	}
	return out
}

// IsAlive reports whether every registered server is alive
// (original_source/server.py's SAIAServers.isAlive(): true unless dead()
// is non-empty).
func (s *Servers) IsAlive() bool {
	return len(s.Dead()) == 0
}

// normalizeTag reduces a device name to the lowercase, underscore-joined
// form original_source/server.py's SAIAServers.normalizeTag used to mount
// a server as a Python attribute. spec.md's REDESIGN FLAGS ask for an
// explicit accessor instead of that attribute-injection trick, so Lookup
// below takes the normalized name directly rather than exposing it as a
// struct field.
func normalizeTag(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	lastUnderscore := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}

// Lookup finds a registered server by its device-info name, normalized the
// same way original_source/server.py's mount() did when it injected
// node.servers.<name> attributes for interactive use. Go has no attribute
// injection, so this is the explicit equivalent spec.md's REDESIGN FLAGS
// ask for: Server.Declare parses "r8"-style addresses, Lookup resolves a
// device's human name.
func (s *Servers) Lookup(name string) (*Server, bool) {
	want := normalizeTag(name)
	if want == "" {
		return nil, false
	}
	for _, srv := range s.List() {
		if deviceName, ok := srv.DeviceInfo("deviceName"); ok && normalizeTag(deviceName) == want {
			return srv, true
		}
	}
	return nil, false
}
