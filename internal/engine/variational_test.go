package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stand/pkg/types"
)

func TestVariational(t *testing.T) {
	requireUnix(t)
	d := t.TempDir()
	out := t.TempDir()
	script := scriptHeader + `cat > "$out" <<'CSV'
` + variationalCSV + `CSV
echo "Drawing a sample of size 1000 from the approximate posterior."
echo "COMPLETED."
`
	m := fakeModel(t, d, "bernoulli", script)
	e := newTestEngine(t, out, m)

	f, err := e.Variational(context.Background(), types.VariationalRequest{Model: "bernoulli"})
	if err != nil {
		t.Fatalf("Variational: %v", err)
	}
	want := []string{"lp__", "log_p__", "log_g__", "theta"}
	if got := f.ColumnNames(); len(got) != 4 || got[3] != want[3] {
		t.Fatalf("columns: %v", got)
	}
	if v, ok := f.Param("theta"); !ok || v != 0.25 {
		t.Fatalf("theta estimate: %v %v", v, ok)
	}
	if f.NumDraws() != 3 {
		t.Fatalf("draws: %d", f.NumDraws())
	}
	if _, err := os.Stat(f.CSVFile); err != nil {
		t.Fatalf("csv output missing: %v", err)
	}
	b, err := os.ReadFile(f.ConsoleFile)
	if err != nil {
		t.Fatalf("console transcript missing: %v", err)
	}
	if !strings.Contains(string(b), "COMPLETED") {
		t.Fatalf("transcript: %s", b)
	}
	if len(f.Cmd) == 0 || f.Cmd[1] != "method=variational" {
		t.Fatalf("recorded cmd: %v", f.Cmd)
	}
}

func TestVariationalDefaultModel(t *testing.T) {
	requireUnix(t)
	d := t.TempDir()
	script := scriptHeader + `cat > "$out" <<'CSV'
` + variationalCSV + `CSV
`
	m := fakeModel(t, d, "bernoulli", script)
	e := New(Config{OutputDir: t.TempDir(), DefaultModel: "bernoulli"}, []types.Model{m}, testLogger())

	if _, err := e.Variational(context.Background(), types.VariationalRequest{}); err != nil {
		t.Fatalf("Variational with default model: %v", err)
	}
}

func TestVariationalNonConvergence(t *testing.T) {
	requireUnix(t)
	d := t.TempDir()
	script := scriptHeader + `cat > "$out" <<'CSV'
` + variationalCSV + `CSV
echo "The algorithm may not have converged."
`
	m := fakeModel(t, d, "badmodel", script)
	e := newTestEngine(t, t.TempDir(), m)

	_, err := e.Variational(context.Background(), types.VariationalRequest{Model: "badmodel"})
	if !IsNonConvergence(err) {
		t.Fatalf("expected non-convergence error, got %v", err)
	}

	// tolerated when require_converged is false
	no := false
	f, err := e.Variational(context.Background(), types.VariationalRequest{Model: "badmodel", RequireConverged: &no})
	if err != nil {
		t.Fatalf("expected tolerated run: %v", err)
	}
	if f.NumDraws() != 3 {
		t.Fatalf("draws: %d", f.NumDraws())
	}
}

func TestVariationalRunFailed(t *testing.T) {
	requireUnix(t)
	d := t.TempDir()
	script := "#!/bin/sh\necho 'Exception: variable does not exist' >&2\nexit 1\n"
	m := fakeModel(t, d, "broken", script)
	e := newTestEngine(t, t.TempDir(), m)

	_, err := e.Variational(context.Background(), types.VariationalRequest{Model: "broken"})
	if !IsRunFailed(err) {
		t.Fatalf("expected run-failed error, got %v", err)
	}
	if !strings.Contains(err.Error(), "variable does not exist") {
		t.Fatalf("error should carry stderr tail: %v", err)
	}
}

func TestVariationalNoOutput(t *testing.T) {
	requireUnix(t)
	d := t.TempDir()
	// exits 0 but never writes the output CSV
	m := fakeModel(t, d, "silent", "#!/bin/sh\nexit 0\n")
	e := newTestEngine(t, t.TempDir(), m)

	_, err := e.Variational(context.Background(), types.VariationalRequest{Model: "silent"})
	if !IsRunFailed(err) {
		t.Fatalf("expected run-failed error on missing output, got %v", err)
	}
}

func TestVariationalModelErrors(t *testing.T) {
	requireUnix(t)
	d := t.TempDir()
	stan := filepath.Join(d, "uncompiled.stan")
	if err := os.WriteFile(stan, []byte("parameters { real x; }"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	reg := []types.Model{{ID: "uncompiled", Name: "uncompiled", StanFile: stan}}
	e := newTestEngine(t, t.TempDir(), reg...)

	_, err := e.Variational(context.Background(), types.VariationalRequest{Model: "nope"})
	if !IsModelNotFound(err) {
		t.Fatalf("expected model-not-found, got %v", err)
	}
	_, err = e.Variational(context.Background(), types.VariationalRequest{})
	if !IsModelNotFound(err) {
		t.Fatalf("expected model-not-found without default, got %v", err)
	}
	_, err = e.Variational(context.Background(), types.VariationalRequest{Model: "uncompiled"})
	if !IsNotCompiled(err) {
		t.Fatalf("expected not-compiled, got %v", err)
	}
}

func TestVariationalDataHandling(t *testing.T) {
	requireUnix(t)
	d := t.TempDir()
	out := t.TempDir()
	// echo the data file path into the console so the test can see it
	script := scriptHeader + `prev=""
data=""
for a in "$@"; do
  case "$prev" in
    data) case "$a" in file=*) data="${a#file=}" ;; esac ;;
  esac
  prev="$a"
done
echo "data=$data"
cat > "$out" <<'CSV'
` + variationalCSV + `CSV
`
	m := fakeModel(t, d, "bernoulli", script)
	e := newTestEngine(t, out, m)

	f, err := e.Variational(context.Background(), types.VariationalRequest{
		Model: "bernoulli",
		Data:  map[string]any{"N": 10, "y": []int{0, 1, 0, 1}},
	})
	if err != nil {
		t.Fatalf("Variational with inline data: %v", err)
	}
	b, _ := os.ReadFile(f.ConsoleFile)
	if !strings.Contains(string(b), "data-") {
		t.Fatalf("engine did not receive a data file: %s", b)
	}
	// temp data file is removed after the run
	entries, _ := os.ReadDir(out)
	for _, ent := range entries {
		if strings.HasPrefix(ent.Name(), "data-") {
			t.Fatalf("temp data file leaked: %s", ent.Name())
		}
	}

	// both inline data and a data file is a caller error
	_, err = e.Variational(context.Background(), types.VariationalRequest{
		Model:    "bernoulli",
		Data:     map[string]any{"N": 1},
		DataFile: "/tmp/x.json",
	})
	if !IsInvalidArgument(err) {
		t.Fatalf("expected invalid-argument, got %v", err)
	}

	// missing data file is a caller error
	_, err = e.Variational(context.Background(), types.VariationalRequest{
		Model:    "bernoulli",
		DataFile: filepath.Join(d, "missing.json"),
	})
	if !IsInvalidArgument(err) {
		t.Fatalf("expected invalid-argument on missing data file, got %v", err)
	}
}
