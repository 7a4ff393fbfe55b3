// Package model implements the Stan program handle: path validation, access
// to the program source, and compilation to an executable via the external
// stanc translator and the CmdStan makefile.
package model

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"stand/internal/common/fsutil"
)

// ExeSuffix is the platform suffix of compiled model executables.
func ExeSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}

// Model is a handle on a Stan program and, once compiled, its executable.
type Model struct {
	name     string
	stanFile string
	exeFile  string
}

// New constructs a handle for a Stan program file. The file must exist and
// be named <name>.stan with a non-empty name.
func New(stanFile string) (*Model, error) {
	if stanFile == "" {
		return nil, fmt.Errorf("must specify Stan program file")
	}
	if !fsutil.PathExists(stanFile) {
		return nil, fmt.Errorf("no such file %s", stanFile)
	}
	base := filepath.Base(stanFile)
	if !strings.HasSuffix(base, ".stan") || len(base) < len(".stan")+1 {
		return nil, fmt.Errorf("invalid stan filename %s", stanFile)
	}
	return &Model{
		name:     strings.TrimSuffix(base, ".stan"),
		stanFile: stanFile,
	}, nil
}

// NewWithExe constructs a handle for a program that already has a compiled
// executable. The executable basename must match the program name.
func NewWithExe(stanFile, exeFile string) (*Model, error) {
	m, err := New(stanFile)
	if err != nil {
		return nil, err
	}
	if exeFile == "" {
		return m, nil
	}
	if !fsutil.PathExists(exeFile) {
		return nil, fmt.Errorf("no such file %s", exeFile)
	}
	exeName := strings.TrimSuffix(filepath.Base(exeFile), ExeSuffix())
	if exeName != m.name {
		return nil, fmt.Errorf("name mismatch between Stan file and compiled executable, expecting basename: %s found: %s", m.name, exeName)
	}
	m.exeFile = exeFile
	return m, nil
}

// Name returns the program name (basename without the .stan extension).
func (m *Model) Name() string { return m.name }

// StanFile returns the path to the Stan program file.
func (m *Model) StanFile() string { return m.stanFile }

// ExeFile returns the path to the compiled executable, empty until compiled.
func (m *Model) ExeFile() string { return m.exeFile }

// Compiled reports whether the handle has a compiled executable.
func (m *Model) Compiled() bool { return m.exeFile != "" }

func (m *Model) String() string {
	return fmt.Sprintf("Model(name=%s, stan_file=%q, exe_file=%q)", m.name, m.stanFile, m.exeFile)
}

// Code returns the Stan program source.
func (m *Model) Code() (string, error) {
	b, err := os.ReadFile(m.stanFile)
	if err != nil {
		return "", fmt.Errorf("read stan file: %w", err)
	}
	return string(b), nil
}

// CompileOptions are tunables for Compile. Zero values use defaults.
type CompileOptions struct {
	// C++ compiler optimization level (0-3). Defaults to 2 when nil; 0 is
	// a valid fast-compile level.
	OptLevel *int
	// Recompile even when the executable already exists.
	Overwrite bool
	// Directories searched for #include'd Stan files.
	IncludePaths []string
}

// Compile translates the Stan program to C++ with the stanc binary from
// cmdstanDir, then builds the executable via the CmdStan makefile. Both
// steps run external tools; the handle's exe path is set on success.
func (m *Model) Compile(ctx context.Context, cmdstanDir string, opts CompileOptions) error {
	if m.exeFile != "" && !opts.Overwrite {
		return nil
	}
	if cmdstanDir == "" {
		return fmt.Errorf("cmdstan directory not configured")
	}
	optLvl := 2
	if opts.OptLevel != nil {
		optLvl = *opts.OptLevel
	}
	if optLvl < 0 || optLvl > 3 {
		return fmt.Errorf("opt level must be in 0..3, found %d", optLvl)
	}

	hppFile := strings.TrimSuffix(m.stanFile, ".stan") + ".hpp"
	if opts.Overwrite || !fsutil.PathExists(hppFile) {
		stanc := filepath.Join(cmdstanDir, "bin", "stanc"+ExeSuffix())
		args := []string{fmt.Sprintf("--o=%s", hppFile)}
		if len(opts.IncludePaths) > 0 {
			var bad []string
			for _, d := range opts.IncludePaths {
				if !fsutil.PathExists(d) {
					bad = append(bad, d)
				}
			}
			if len(bad) > 0 {
				return fmt.Errorf("invalid include paths: %s", strings.Join(bad, ", "))
			}
			args = append(args, "--include_paths="+strings.Join(opts.IncludePaths, ","))
		}
		args = append(args, m.stanFile)
		if err := runTool(ctx, "", stanc, args...); err != nil {
			return fmt.Errorf("translate %s: %w", m.stanFile, err)
		}
		if !fsutil.PathExists(hppFile) {
			return fmt.Errorf("stanc produced no output for %s", m.stanFile)
		}
	}

	abs, err := filepath.Abs(m.stanFile)
	if err != nil {
		return fmt.Errorf("abs path: %w", err)
	}
	exeFile := strings.TrimSuffix(abs, ".stan") + ExeSuffix()
	make := os.Getenv("MAKE")
	if make == "" {
		make = "make"
	}
	// The CmdStan makefile builds model executables by target path.
	if err := runTool(ctx, cmdstanDir, make, fmt.Sprintf("O=%d", optLvl), exeFile); err != nil {
		return fmt.Errorf("build %s: %w", exeFile, err)
	}
	if !fsutil.PathExists(exeFile) {
		return fmt.Errorf("make produced no executable for %s", m.stanFile)
	}
	m.exeFile = exeFile
	return nil
}

// runTool runs an external build tool, capturing combined output. On failure
// the tail of the output is attached to the error.
func runTool(ctx context.Context, dir, bin string, args ...string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		tail := out.String()
		if len(tail) > 4096 {
			tail = tail[len(tail)-4096:]
		}
		return fmt.Errorf("%s: %w; output tail: %s", filepath.Base(bin), err, tail)
	}
	return nil
}
