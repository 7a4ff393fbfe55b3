// Package engine drives the external CmdStan inference engine: it composes
// command lines, spawns one subprocess per run (or per chain), records
// console transcripts, and parses the engine's CSV output into fits.
package engine

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"stand/internal/common/fsutil"
	"stand/internal/model"
	"stand/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxWait    = 30 * time.Second
	defaultRunTimeout = 0 // no timeout beyond the caller's context
)

// Config encapsulates all tunables for Engine construction.
type Config struct {
	// CmdStan installation directory (bin/stanc, makefile).
	CmdStanDir string
	// Directory where run outputs (CSV, console transcripts) are written.
	OutputDir string
	// Model id used when a request omits one.
	DefaultModel string
	// Maximum chains executing concurrently across all runs.
	// Defaults to the number of CPUs.
	MaxParallel int
	// Per-run wall clock limit. Zero disables.
	RunTimeout time.Duration
	// Maximum time a run waits for its model's in-flight slot.
	MaxWait time.Duration
}

// Engine owns the registry of Stan programs and runs inference against the
// external engine. One run per model is in flight at a time; additional
// requests wait up to MaxWait and then fail with a too-busy error.
type Engine struct {
	cfg Config
	log zerolog.Logger

	mu        sync.RWMutex
	registry  []types.Model
	index     map[string]int
	inflight  map[string]chan struct{}
	active    int
	runsTotal uint64
	lastErr   string
	startTime time.Time
}

// New constructs an Engine over a registry of discovered programs.
func New(cfg Config, reg []types.Model, log zerolog.Logger) *Engine {
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = runtime.NumCPU()
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultMaxWait
	}
	if cfg.RunTimeout < 0 {
		cfg.RunTimeout = defaultRunTimeout
	}
	e := &Engine{
		cfg:       cfg,
		log:       log,
		registry:  append([]types.Model(nil), reg...),
		index:     make(map[string]int, len(reg)),
		inflight:  make(map[string]chan struct{}),
		startTime: time.Now(),
	}
	for i, m := range e.registry {
		e.index[m.ID] = i
	}
	return e
}

// ListModels returns a snapshot of the registry.
func (e *Engine) ListModels() []types.Model {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]types.Model, len(e.registry))
	copy(out, e.registry)
	return out
}

// Resolve maps a request model id (possibly empty) to a registry entry.
func (e *Engine) Resolve(id string) (types.Model, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if id == "" {
		id = e.cfg.DefaultModel
		if id == "" {
			return types.Model{}, modelNotFoundError{id: "(unspecified)"}
		}
	}
	i, ok := e.index[id]
	if !ok {
		return types.Model{}, modelNotFoundError{id: id}
	}
	return e.registry[i], nil
}

// Ready reports whether the engine can accept runs.
func (e *Engine) Ready() bool {
	return fsutil.PathExists(e.cfg.OutputDir) || e.cfg.OutputDir == ""
}

// Status returns a read-only projection of engine state.
func (e *Engine) Status() types.StatusResponse {
	e.mu.RLock()
	defer e.mu.RUnlock()
	compiled := 0
	for _, m := range e.registry {
		if m.Compiled {
			compiled++
		}
	}
	return types.StatusResponse{
		State:          "ready",
		Models:         len(e.registry),
		Compiled:       compiled,
		ActiveRuns:     e.active,
		RunsTotal:      e.runsTotal,
		LastError:      e.lastErr,
		CmdStanDir:     e.cfg.CmdStanDir,
		OutputDir:      e.cfg.OutputDir,
		UptimeSeconds:  int64(time.Since(e.startTime).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
	}
}

// Compile builds the executable for a registered program and updates the
// registry entry on success.
func (e *Engine) Compile(ctx context.Context, req types.CompileRequest) (types.Model, error) {
	entry, err := e.Resolve(req.Model)
	if err != nil {
		return types.Model{}, err
	}
	exe := entry.ExeFile
	if req.Overwrite {
		exe = "" // force rebuild; a stale executable path would short-circuit
	}
	m, err := model.NewWithExe(entry.StanFile, exe)
	if err != nil {
		return types.Model{}, ErrInvalidArgument(err.Error())
	}
	opts := model.CompileOptions{
		OptLevel:     req.OptLevel,
		Overwrite:    req.Overwrite,
		IncludePaths: req.IncludePaths,
	}
	if err := m.Compile(ctx, e.cfg.CmdStanDir, opts); err != nil {
		e.recordErr(err)
		return types.Model{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if i, ok := e.index[entry.ID]; ok {
		e.registry[i].ExeFile = m.ExeFile()
		e.registry[i].Compiled = true
		entry = e.registry[i]
	}
	e.log.Info().Str("model", entry.ID).Str("exe", m.ExeFile()).Msg("compile done")
	return entry, nil
}

// handle builds a model.Model from a registry entry, requiring a compiled
// executable for inference.
func (e *Engine) handle(entry types.Model) (*model.Model, error) {
	if !entry.Compiled || entry.ExeFile == "" {
		return nil, notCompiledError{id: entry.ID}
	}
	return model.NewWithExe(entry.StanFile, entry.ExeFile)
}

func (e *Engine) recordErr(err error) {
	e.mu.Lock()
	e.lastErr = err.Error()
	e.mu.Unlock()
}

func (e *Engine) runStarted() {
	e.mu.Lock()
	e.active++
	e.runsTotal++
	e.mu.Unlock()
	activeRuns.Inc()
}

func (e *Engine) runEnded(method string, start time.Time, err error) {
	e.mu.Lock()
	e.active--
	if err != nil {
		e.lastErr = err.Error()
	}
	e.mu.Unlock()
	activeRuns.Dec()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	runsTotal.WithLabelValues(method, outcome).Inc()
	runDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
