package engine

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"stand/pkg/types"
)

// scriptHeader extracts the path following an "output file=" argument pair,
// shared by all fake engine scripts.
const scriptHeader = `#!/bin/sh
prev=""
out=""
for a in "$@"; do
  case "$prev" in
    output) case "$a" in file=*) out="${a#file=}" ;; esac ;;
  esac
  prev="$a"
done
`

const variationalCSV = `# method = variational
lp__,log_p__,log_g__,theta
# Stepsize adaptation complete.
0,-7.2,-0.5,0.25
0,-7.1,-0.4,0.22
0,-7.3,-0.6,0.27
0,-7.0,-0.3,0.24
`

const sampleCSV = `# method = sample
lp__,theta
-7.1,0.21
-7.3,0.29
`

func testLogger() zerolog.Logger { return zerolog.Nop() }

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engine scripts are unix-only")
	}
}

// fakeModel writes a Stan program and a fake engine executable with the
// given script body, returning the registry entry.
func fakeModel(t *testing.T, dir, name, script string) types.Model {
	t.Helper()
	stan := filepath.Join(dir, name+".stan")
	if err := os.WriteFile(stan, []byte("parameters { real theta; }"), 0o644); err != nil {
		t.Fatalf("write stan: %v", err)
	}
	exe := filepath.Join(dir, name)
	if err := os.WriteFile(exe, []byte(script), 0o755); err != nil {
		t.Fatalf("write exe: %v", err)
	}
	return types.Model{ID: name, Name: name, StanFile: stan, ExeFile: exe, Compiled: true}
}

func newTestEngine(t *testing.T, outputDir string, reg ...types.Model) *Engine {
	t.Helper()
	return New(Config{
		OutputDir:   outputDir,
		MaxParallel: 4,
		MaxWait:     2 * time.Second,
	}, reg, zerolog.Nop())
}
