package fsutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	cases := []struct{ in, want string }{
		{"", ""},
		{"/abs/path", "/abs/path"},
		{"rel/path", "rel/path"},
		{"~", home},
		{"~/models/stan", filepath.Join(home, "models", "stan")},
	}
	for _, c := range cases {
		got, err := ExpandHome(c.in)
		if err != nil {
			t.Fatalf("ExpandHome(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ExpandHome(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPathExists(t *testing.T) {
	d := t.TempDir()
	p := filepath.Join(d, "x")
	if PathExists(p) {
		t.Fatalf("expected missing path")
	}
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !PathExists(p) {
		t.Fatalf("expected existing path")
	}
}

func TestEnsureDir(t *testing.T) {
	d := t.TempDir()
	p := filepath.Join(d, "a", "b")
	if err := EnsureDir(p); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	if !PathExists(p) {
		t.Fatalf("dir not created")
	}
	if err := EnsureDir(""); err == nil {
		t.Fatalf("expected error on empty dir")
	}
}

func TestWriteTemp(t *testing.T) {
	d := t.TempDir()
	p, err := WriteTemp(d, "data-*.json", []byte(`{"N":10}`))
	if err != nil {
		t.Fatalf("WriteTemp: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(p), "data-") || !strings.HasSuffix(p, ".json") {
		t.Fatalf("unexpected temp name: %s", p)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != `{"N":10}` {
		t.Fatalf("content: %s", b)
	}
}
