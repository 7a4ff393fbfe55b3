package model

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const bernoulliSrc = `data { int<lower=0> N; array[N] int<lower=0,upper=1> y; }
parameters { real<lower=0,upper=1> theta; }
model { theta ~ beta(1,1); y ~ bernoulli(theta); }
`

func writeStan(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(bernoulliSrc), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestNewValidation(t *testing.T) {
	d := t.TempDir()
	p := writeStan(t, d, "bernoulli.stan")

	m, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.Name() != "bernoulli" || m.StanFile() != p || m.Compiled() {
		t.Fatalf("unexpected handle: %s", m)
	}

	if _, err := New(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	if _, err := New(filepath.Join(d, "missing.stan")); err == nil {
		t.Fatalf("expected error on missing file")
	}

	// wrong extension
	bad := filepath.Join(d, "notstan.txt")
	if err := os.WriteFile(bad, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(bad); err == nil {
		t.Fatalf("expected error on non-.stan file")
	}

	// empty base name
	dot := filepath.Join(d, ".stan")
	if err := os.WriteFile(dot, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(dot); err == nil {
		t.Fatalf("expected error on empty program name")
	}
}

func TestNewWithExe(t *testing.T) {
	d := t.TempDir()
	p := writeStan(t, d, "bernoulli.stan")
	exe := filepath.Join(d, "bernoulli"+ExeSuffix())
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write exe: %v", err)
	}

	m, err := NewWithExe(p, exe)
	if err != nil {
		t.Fatalf("NewWithExe: %v", err)
	}
	if !m.Compiled() || m.ExeFile() != exe {
		t.Fatalf("unexpected handle: %s", m)
	}

	// empty exe path is allowed
	if m2, err := NewWithExe(p, ""); err != nil || m2.Compiled() {
		t.Fatalf("NewWithExe with empty exe: %v %v", m2, err)
	}

	// basename mismatch
	other := filepath.Join(d, "other"+ExeSuffix())
	if err := os.WriteFile(other, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write exe: %v", err)
	}
	if _, err := NewWithExe(p, other); err == nil || !strings.Contains(err.Error(), "name mismatch") {
		t.Fatalf("expected name mismatch error, got %v", err)
	}

	// missing exe
	if _, err := NewWithExe(p, filepath.Join(d, "gone")); err == nil {
		t.Fatalf("expected error on missing exe")
	}
}

func TestCode(t *testing.T) {
	d := t.TempDir()
	p := writeStan(t, d, "bernoulli.stan")
	m, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	code, err := m.Code()
	if err != nil {
		t.Fatalf("Code: %v", err)
	}
	if !strings.Contains(code, "bernoulli(theta)") {
		t.Fatalf("unexpected code: %q", code)
	}
}

// fakeCmdStan writes a cmdstan dir with a bin/stanc that touches the
// requested hpp file, and returns the dir plus a fake make script honoring
// the MAKE env override.
func fakeCmdStan(t *testing.T) string {
	t.Helper()
	cs := t.TempDir()
	if err := os.MkdirAll(filepath.Join(cs, "bin"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	stanc := `#!/bin/sh
for a in "$@"; do
  case "$a" in
    --o=*) : > "${a#--o=}" ;;
  esac
done
`
	if err := os.WriteFile(filepath.Join(cs, "bin", "stanc"), []byte(stanc), 0o755); err != nil {
		t.Fatalf("write stanc: %v", err)
	}
	mk := `#!/bin/sh
# last arg is the target executable path
for a in "$@"; do tgt="$a"; done
: > "$tgt"
chmod +x "$tgt"
`
	mkPath := filepath.Join(cs, "fakemake")
	if err := os.WriteFile(mkPath, []byte(mk), 0o755); err != nil {
		t.Fatalf("write make: %v", err)
	}
	t.Setenv("MAKE", mkPath)
	return cs
}

func TestCompile(t *testing.T) {
	if ExeSuffix() != "" {
		t.Skip("fake toolchain scripts are unix-only")
	}
	d := t.TempDir()
	p := writeStan(t, d, "bernoulli.stan")
	cs := fakeCmdStan(t)

	m, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Compile(context.Background(), cs, CompileOptions{}); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !m.Compiled() {
		t.Fatalf("expected compiled handle")
	}
	if filepath.Base(m.ExeFile()) != "bernoulli" {
		t.Fatalf("unexpected exe: %s", m.ExeFile())
	}

	// second compile is a no-op without overwrite
	if err := m.Compile(context.Background(), "", CompileOptions{}); err != nil {
		t.Fatalf("recompile should be a no-op: %v", err)
	}
}

func TestCompileOptLevelZero(t *testing.T) {
	if ExeSuffix() != "" {
		t.Skip("fake toolchain scripts are unix-only")
	}
	d := t.TempDir()
	p := writeStan(t, d, "bernoulli.stan")
	cs := fakeCmdStan(t)

	// record the make args so the O= level is observable
	argsFile := filepath.Join(cs, "make-args")
	mk := "#!/bin/sh\necho \"$@\" > " + argsFile + "\nfor a in \"$@\"; do tgt=\"$a\"; done\n: > \"$tgt\"\n"
	mkPath := filepath.Join(cs, "fakemake")
	if err := os.WriteFile(mkPath, []byte(mk), 0o755); err != nil {
		t.Fatalf("write make: %v", err)
	}

	m, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	zero := 0
	if err := m.Compile(context.Background(), cs, CompileOptions{OptLevel: &zero}); err != nil {
		t.Fatalf("Compile with O=0: %v", err)
	}
	b, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read make args: %v", err)
	}
	if !strings.Contains(string(b), "O=0") {
		t.Fatalf("make should be invoked with O=0, got: %s", b)
	}
}

func TestCompileErrors(t *testing.T) {
	d := t.TempDir()
	p := writeStan(t, d, "bernoulli.stan")
	m, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Compile(context.Background(), "", CompileOptions{}); err == nil {
		t.Fatalf("expected error without cmdstan dir")
	}
	bad := 9
	if err := m.Compile(context.Background(), t.TempDir(), CompileOptions{OptLevel: &bad}); err == nil {
		t.Fatalf("expected error on bad opt level")
	}
	if err := m.Compile(context.Background(), t.TempDir(), CompileOptions{IncludePaths: []string{filepath.Join(d, "nope")}}); err == nil {
		t.Fatalf("expected error on bad include path")
	}
}
