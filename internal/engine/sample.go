package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"stand/internal/common/fsutil"
	"stand/internal/stancsv"
	"stand/pkg/fit"
	"stand/pkg/types"
)

const defaultChains = 4

// Sample runs multi-chain NUTS for a model: one engine subprocess per
// chain, at most cores chains in parallel. Every chain's exit code is
// checked; any failure fails the whole run with the failed chains named.
func (e *Engine) Sample(ctx context.Context, req types.SampleRequest) (*fit.SampleFit, error) {
	entry, err := e.Resolve(req.Model)
	if err != nil {
		return nil, err
	}
	mdl, err := e.handle(entry)
	if err != nil {
		return nil, err
	}

	chains := req.Chains
	if chains == 0 {
		chains = defaultChains
	}
	if chains < 1 {
		return nil, ErrInvalidArgument(fmt.Sprintf("chains must be a positive integer, found %d", chains))
	}
	chainIDs, err := resolveChainIDs(req.ChainIDs, req.ChainIDOffset, chains)
	if err != nil {
		return nil, err
	}
	chArgs, err := resolveChainArgs(req, chainIDs)
	if err != nil {
		return nil, err
	}
	cores := req.Cores
	if cores == 0 {
		cores = 1
	}
	if cores < 1 {
		return nil, ErrInvalidArgument(fmt.Sprintf("cores must be a positive integer, found %d", cores))
	}
	if max := runtime.NumCPU(); cores > max {
		e.log.Warn().Int("requested", cores).Int("available", max).Msg("clamping cores")
		cores = max
	}
	if cores > e.cfg.MaxParallel {
		cores = e.cfg.MaxParallel
	}
	for _, ca := range chArgs {
		if ca.initFile != "" && !fsutil.PathExists(ca.initFile) {
			return nil, ErrInvalidArgument(fmt.Sprintf("no such init file: %s", ca.initFile))
		}
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
	if e.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.RunTimeout)
		defer cancel()
	}

	csvFiles := make([]string, chains)
	consoleFiles := make([]string, chains)
	cmds := make([][]string, chains)
	chainErrs := make([]error, chains)

	start := time.Now()
	e.runStarted()

	sem := make(chan struct{}, cores)
	var wg sync.WaitGroup
	for i := 0; i < chains; i++ {
		csvFiles[i] = filepath.Join(e.cfg.OutputDir, fmt.Sprintf("%s-%s-%d.csv", entry.ID, runID, chainIDs[i]))
		consoleFiles[i] = filepath.Join(e.cfg.OutputDir, fmt.Sprintf("%s-%s-%d.txt", entry.ID, runID, chainIDs[i]))
		cmds[i] = sampleArgs(mdl.ExeFile(), req, chArgs[i], dataFile, csvFiles[i])
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			chainRunID := fmt.Sprintf("%s/%d", runID, chainIDs[i])
			_, chainErrs[i] = e.runProcess(ctx, chainRunID, cmds[i], consoleFiles[i])
		}(i)
	}
	wg.Wait()

	var failed []string
	for i, cerr := range chainErrs {
		if cerr != nil {
			failed = append(failed, fmt.Sprintf("chain %d: %v", chainIDs[i], cerr))
		}
	}
	if len(failed) > 0 {
		err := runFailedError{runID: runID, msg: "error during sampling: " + strings.Join(failed, "; ")}
		e.runEnded("sample", start, err)
		return nil, err
	}

	// Validate per-chain output: headers must agree and draws must be present.
	draws := make([][][]float64, chains)
	var columns []string
	for i, p := range csvFiles {
		t, perr := stancsv.ParseFile(p)
		if perr != nil {
			err := runFailedError{runID: runID, msg: perr.Error()}
			e.runEnded("sample", start, err)
			return nil, err
		}
		if len(t.Rows) == 0 {
			err := runFailedError{runID: runID, msg: fmt.Sprintf("chain %d produced no draws", chainIDs[i])}
			e.runEnded("sample", start, err)
			return nil, err
		}
		if columns == nil {
			columns = t.Columns
		} else if !stancsv.SameColumns(columns, t.Columns) {
			err := runFailedError{runID: runID, msg: fmt.Sprintf("chain %d column names disagree with chain %d", chainIDs[i], chainIDs[0])}
			e.runEnded("sample", start, err)
			return nil, err
		}
		draws[i] = t.Rows
	}
	e.runEnded("sample", start, nil)

	f := fit.NewSampleFit(runID, columns, chainIDs, draws)
	f.CSVFiles = csvFiles
	f.ConsoleFiles = consoleFiles
	f.Cmds = cmds
	e.log.Info().
		Str("run_id", runID).
		Str("model", entry.ID).
		Int("chains", chains).
		Int("draws_per_chain", f.DrawsPerChain()).
		Dur("dur", time.Since(start)).
		Msg("sample done")
	return f, nil
}

// resolveChainIDs defaults ids to 1..chains, applies the offset form
// (offset+1..offset+chains), and validates explicit lists: the length must
// match the chain count and every id must be positive.
func resolveChainIDs(ids []int, offset, chains int) ([]int, error) {
	if offset != 0 {
		if len(ids) > 0 {
			return nil, ErrInvalidArgument("specify either chain_ids or chain_id_offset, not both")
		}
		if offset < 0 {
			return nil, ErrInvalidArgument(fmt.Sprintf("chain_id_offset must be a positive integer, found %d", offset))
		}
	}
	if len(ids) == 0 {
		out := make([]int, chains)
		for i := range out {
			out[i] = offset + i + 1
		}
		return out, nil
	}
	if len(ids) != chains {
		return nil, ErrInvalidArgument(fmt.Sprintf("chain_ids must correspond to number of chains: %d chains, found %d ids", chains, len(ids)))
	}
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if id < 1 {
			return nil, ErrInvalidArgument(fmt.Sprintf("chain_id must be a positive integer, found %d", id))
		}
		if seen[id] {
			return nil, ErrInvalidArgument(fmt.Sprintf("duplicate chain_id %d", id))
		}
		seen[id] = true
	}
	return append([]int(nil), ids...), nil
}

// resolveChainArgs expands the request's scalar-or-list seed, init, and
// stepsize fields into per-chain values. List lengths must match the chain
// count; a scalar and its list form are mutually exclusive.
func resolveChainArgs(req types.SampleRequest, chainIDs []int) ([]chainArgs, error) {
	chains := len(chainIDs)
	if len(req.Seeds) > 0 {
		if req.Seed > 0 {
			return nil, ErrInvalidArgument("specify either seed or seeds, not both")
		}
		if len(req.Seeds) != chains {
			return nil, ErrInvalidArgument(fmt.Sprintf("seeds must correspond to number of chains: %d chains, found %d seeds", chains, len(req.Seeds)))
		}
	}
	if len(req.InitFiles) > 0 {
		if req.InitFile != "" {
			return nil, ErrInvalidArgument("specify either init_file or init_files, not both")
		}
		if len(req.InitFiles) != chains {
			return nil, ErrInvalidArgument(fmt.Sprintf("init_files must correspond to number of chains: %d chains, found %d files", chains, len(req.InitFiles)))
		}
	}
	if len(req.StepSizes) > 0 {
		if req.StepSize > 0 {
			return nil, ErrInvalidArgument("specify either step_size or step_sizes, not both")
		}
		if len(req.StepSizes) != chains {
			return nil, ErrInvalidArgument(fmt.Sprintf("step_sizes must correspond to number of chains: %d chains, found %d values", chains, len(req.StepSizes)))
		}
		for _, s := range req.StepSizes {
			if s <= 0 {
				return nil, ErrInvalidArgument(fmt.Sprintf("step_size must be positive, found %g", s))
			}
		}
	}
	out := make([]chainArgs, chains)
	for i := range out {
		ca := chainArgs{
			id:       chainIDs[i],
			seed:     req.Seed,
			initFile: req.InitFile,
			stepSize: req.StepSize,
		}
		if len(req.Seeds) > 0 {
			ca.seed = req.Seeds[i]
		}
		if len(req.InitFiles) > 0 {
			ca.initFile = req.InitFiles[i]
		}
		if len(req.StepSizes) > 0 {
			ca.stepSize = req.StepSizes[i]
		}
		out[i] = ca
	}
	return out, nil
}
