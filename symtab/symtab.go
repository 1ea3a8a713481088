// Package symtab loads the plain-text ".map" symbol files that name S-Bus
// addresses (spec.md §6): one non-empty line per symbol, mapping a tag name
// to an address-space letter and an index. The core protocol engine only
// ever consumes the Lookup/ReverseLookup interface named in spec.md §6; how
// the file is parsed and kept fresh is this package's concern.
package symtab

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/golang/glog"
)

// Space identifies one of the four addressable spaces a symbol can name.
type Space byte

const (
	Input    Space = 'I'
	Flag     Space = 'F'
	Output   Space = 'O'
	Register Space = 'R'
	Timer    Space = 'T'
	Counter  Space = 'C'
)

func (s Space) String() string {
	switch s {
	case Input:
		return "input"
	case Flag:
		return "flag"
	case Output:
		return "output"
	case Register:
		return "register"
	case Timer:
		return "timer"
	case Counter:
		return "counter"
	default:
		return "unknown"
	}
}

// Address names one addressable item: its space and its index within it.
type Address struct {
	Space Space
	Index int
}

// Table is a loaded symbol map: tag name <-> (space, index).
type Table struct {
	mu      sync.RWMutex
	byTag   map[string]Address
	byAddr  map[Address]string
	path    string
	watcher *fsnotify.Watcher
}

// Load parses path into a new Table. A missing file is not an error: it
// yields an empty table, matching the source's "map file may not exist
// yet" tolerance.
func Load(path string) (*Table, error) {
	t := &Table{path: path}
	if err := t.reload(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) reload() error {
	f, err := os.Open(t.path)
	if os.IsNotExist(err) {
		t.mu.Lock()
		t.byTag = map[string]Address{}
		t.byAddr = map[Address]string{}
		t.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("symtab: open %s: %w", t.path, err)
	}
	defer f.Close()

	byTag := map[string]Address{}
	byAddr := map[Address]string{}

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			glog.Warningf("symtab: %s:%d: expected \"tag SPACE index\", got %q", t.path, lineNo, line)
			continue
		}
		tag, spaceStr, indexStr := fields[0], strings.ToUpper(fields[1]), fields[2]
		if len(spaceStr) != 1 {
			glog.Warningf("symtab: %s:%d: invalid address space %q", t.path, lineNo, spaceStr)
			continue
		}
		space := Space(spaceStr[0])
		switch space {
		case Input, Flag, Output, Register, Timer, Counter:
		default:
			glog.Warningf("symtab: %s:%d: unknown address space %q", t.path, lineNo, spaceStr)
			continue
		}
		index, err := strconv.Atoi(indexStr)
		if err != nil || index < 0 {
			glog.Warningf("symtab: %s:%d: invalid index %q", t.path, lineNo, indexStr)
			continue
		}
		addr := Address{Space: space, Index: index}
		byTag[tag] = addr
		byAddr[addr] = tag
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("symtab: read %s: %w", t.path, err)
	}

	t.mu.Lock()
	t.byTag = byTag
	t.byAddr = byAddr
	t.mu.Unlock()
	glog.V(1).Infof("symtab: loaded %d symbols from %s", len(byTag), t.path)
	return nil
}

// Lookup resolves a tag name to its address.
func (t *Table) Lookup(tag string) (Address, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	a, ok := t.byTag[tag]
	return a, ok
}

// ReverseLookup resolves an address back to its tag name, if any.
func (t *Table) ReverseLookup(addr Address) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tag, ok := t.byAddr[addr]
	return tag, ok
}

// Count returns the number of loaded symbols.
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byTag)
}

// Watch starts watching the underlying file for changes and reloads the
// table whenever it is written. Reload failures are logged, not returned:
// a transient write error on the map file must not disturb a Node that is
// otherwise running fine.
func (t *Table) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("symtab: new watcher: %w", err)
	}
	if err := w.Add(t.path); err != nil {
		w.Close()
		if os.IsNotExist(err) {
			// Nothing to watch yet; the caller may retry once the file
			// shows up.
			return nil
		}
		return fmt.Errorf("symtab: watch %s: %w", t.path, err)
	}

	t.watcher = w
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					if err := t.reload(); err != nil {
						glog.Warningf("symtab: reload %s: %v", t.path, err)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				glog.Warningf("symtab: watcher error on %s: %v", t.path, err)
			}
		}
	}()
	return nil
}

// Close stops the file watcher, if one was started.
func (t *Table) Close() error {
	if t.watcher != nil {
		return t.watcher.Close()
	}
	return nil
}
