package symtab

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMapFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "device.map")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndLookup(t *testing.T) {
	path := writeMapFile(t, "# comment\n\npump_running F 12\ntank_level R 8\n")
	table, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if table.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", table.Count())
	}
	addr, ok := table.Lookup("pump_running")
	if !ok || addr != (Address{Space: Flag, Index: 12}) {
		t.Errorf("Lookup(pump_running) = %+v, %v", addr, ok)
	}
	tag, ok := table.ReverseLookup(Address{Space: Register, Index: 8})
	if !ok || tag != "tank_level" {
		t.Errorf("ReverseLookup = %q, %v", tag, ok)
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	table, err := Load(filepath.Join(t.TempDir(), "missing.map"))
	if err != nil {
		t.Fatal(err)
	}
	if table.Count() != 0 {
		t.Errorf("Count() = %d, want 0 for a missing map file", table.Count())
	}
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	path := writeMapFile(t, "good R 1\nbad_line_only_two_fields F\nunknown_space X 2\nnot_a_number R abc\n")
	table, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if table.Count() != 1 {
		t.Errorf("Count() = %d, want 1 (only the well-formed line)", table.Count())
	}
}
