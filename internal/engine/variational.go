package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"stand/internal/common/fsutil"
	"stand/internal/stancsv"
	"stand/pkg/fit"
	"stand/pkg/types"
)

// Diagnostic the engine prints when the ELBO optimization stops without
// reaching the convergence threshold.
const nonConvergenceDiagnostic = "may not have converged"

// Variational runs the engine's variational (ADVI) method for a model and
// returns the parsed fit. The call fails loudly when the subprocess exits
// non-zero or the engine reports non-convergence (unless the request sets
// require_converged to false).
func (e *Engine) Variational(ctx context.Context, req types.VariationalRequest) (*fit.VariationalFit, error) {
	entry, err := e.Resolve(req.Model)
	if err != nil {
		return nil, err
	}
	mdl, err := e.handle(entry)
	if err != nil {
		return nil, err
	}
	release, err := e.beginRun(ctx, entry.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := fsutil.EnsureDir(e.cfg.OutputDir); err != nil {
		return nil, err
	}
	dataFile, cleanup, err := e.resolveDataFile(req.Data, req.DataFile)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	runID := uuid.NewString()
	outFile := filepath.Join(e.cfg.OutputDir, fmt.Sprintf("%s-%s.csv", entry.ID, runID))
	consoleFile := filepath.Join(e.cfg.OutputDir, fmt.Sprintf("%s-%s.txt", entry.ID, runID))
	args := variationalArgs(mdl.ExeFile(), req, dataFile, outFile)

	if e.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.RunTimeout)
		defer cancel()
	}

	start := time.Now()
	e.runStarted()
	console, runErr := e.runProcess(ctx, runID, args, consoleFile)
	if runErr != nil {
		err := runFailedError{runID: runID, msg: runErr.Error()}
		e.runEnded("variational", start, err)
		return nil, err
	}

	if requireConverged(req) && strings.Contains(strings.ToLower(console), nonConvergenceDiagnostic) {
		err := nonConvergenceError{runID: runID}
		e.runEnded("variational", start, err)
		return nil, err
	}

	parsed, err := stancsv.ParseVariationalFile(outFile)
	if err != nil {
		ferr := runFailedError{runID: runID, msg: err.Error()}
		e.runEnded("variational", start, ferr)
		return nil, ferr
	}
	e.runEnded("variational", start, nil)

	f := fit.NewVariationalFit(runID, parsed.Columns, parsed.Estimate, parsed.Draws)
	f.CSVFile = outFile
	f.ConsoleFile = consoleFile
	f.Cmd = args
	e.log.Info().
		Str("run_id", runID).
		Str("model", entry.ID).
		Int("columns", len(parsed.Columns)).
		Int("draws", len(parsed.Draws)).
		Dur("dur", time.Since(start)).
		Msg("variational done")
	return f, nil
}

func requireConverged(req types.VariationalRequest) bool {
	return req.RequireConverged == nil || *req.RequireConverged
}
