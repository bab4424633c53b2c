package modcache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chazu/lathe/pkg/scad"
)

func write(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func TestRefreshTracksSignature(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib.scad")
	t0 := time.Unix(1700000000, 0)
	write(t, lib, "module a() { cube(1); }", t0)

	c := New(scad.Parse)
	if !c.Refresh(lib) {
		t.Fatal("first refresh should report a change")
	}
	if c.Refresh(lib) {
		t.Error("unchanged library should not report a change")
	}
	if m := c.Lookup(lib); m == nil || m.Scope.Modules["a"] == nil {
		t.Fatalf("Lookup = %v, want module a", m)
	}

	write(t, lib, "module b() { sphere(1); }", t0.Add(time.Second))
	if !c.Refresh(lib) {
		t.Fatal("modified library should report a change")
	}
	if c.Lookup(lib).Scope.Modules["b"] == nil {
		t.Error("Lookup should return the re-parsed library")
	}
}

func TestRefreshNestedUses(t *testing.T) {
	dir := t.TempDir()
	outer := filepath.Join(dir, "outer.scad")
	inner := filepath.Join(dir, "inner.scad")
	t0 := time.Unix(1700000000, 0)
	write(t, outer, "use <inner.scad>\nmodule o() { i(); }", t0)
	write(t, inner, "module i() { cube(1); }", t0)

	c := New(scad.Parse)
	c.Refresh(outer)
	if c.Len() != 2 {
		t.Fatalf("cached %d libraries, want 2", c.Len())
	}

	write(t, inner, "module i() { cube(2); }", t0.Add(time.Second))
	if !c.Refresh(outer) {
		t.Error("change in a nested library should propagate")
	}
}

func TestRefreshCycleTerminates(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.scad")
	b := filepath.Join(dir, "b.scad")
	t0 := time.Unix(1700000000, 0)
	write(t, a, "use <b.scad>", t0)
	write(t, b, "use <a.scad>", t0)

	c := New(scad.Parse)
	c.Refresh(a)
	if c.Len() != 2 {
		t.Errorf("cached %d libraries, want 2", c.Len())
	}
}

func TestBrokenLibraryWarns(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "broken.scad")
	write(t, lib, "module (", time.Unix(1700000000, 0))

	c := New(scad.Parse)
	c.Refresh(lib)
	if c.Lookup(lib) != nil {
		t.Error("broken library should not resolve")
	}
	if w := c.Warnings(); len(w) != 1 {
		t.Errorf("warnings = %v, want one", w)
	}
	if w := c.Warnings(); len(w) != 0 {
		t.Errorf("Warnings should clear, got %v", w)
	}

	missing := filepath.Join(dir, "missing.scad")
	if c.Refresh(missing) {
		t.Error("a library that never existed should not report a change")
	}
}

func TestFlush(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib.scad")
	write(t, lib, "module a() { cube(1); }", time.Unix(1700000000, 0))

	c := New(scad.Parse)
	c.Refresh(lib)
	c.Flush()
	if c.Len() != 0 {
		t.Fatalf("Len after Flush = %d", c.Len())
	}
	if !c.Refresh(lib) {
		t.Error("refresh after flush should re-parse")
	}
}
