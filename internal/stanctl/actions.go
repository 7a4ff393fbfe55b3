package stanctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"stand/internal/engine"
	"stand/internal/model"
	"stand/internal/rdump"
	"stand/pkg/types"
)

// Actions are indirected through fn* variables so tests can stub them.
var (
	fnCompile     = actionCompile
	fnVariational = actionVariational
	fnSample      = actionSample
	fnRdump       = actionRdump
)

// engineFor builds a single-program engine for the given .stan file. The CLI
// drives the same engine the server does, just with a one-entry registry.
func engineFor(cfg *Config, stanFile string) (*engine.Engine, string, error) {
	abs, err := filepath.Abs(stanFile)
	if err != nil {
		return nil, "", fmt.Errorf("abs path: %w", err)
	}
	m, err := model.New(abs)
	if err != nil {
		return nil, "", err
	}
	entry := types.Model{
		ID:       m.Name(),
		Name:     m.Name(),
		StanFile: m.StanFile(),
	}
	exe := strings.TrimSuffix(abs, ".stan") + model.ExeSuffix()
	if st, err := os.Stat(exe); err == nil && !st.IsDir() {
		entry.ExeFile = exe
		entry.Compiled = true
	}
	outDir := cfg.OutputDir
	if outDir == "" {
		outDir = filepath.Dir(abs)
	}
	eng := engine.New(engine.Config{
		CmdStanDir:  cfg.CmdStanDir,
		OutputDir:   outDir,
		RunTimeout:  time.Duration(cfg.RunTimeoutS) * time.Second,
		MaxParallel: cfg.Cores,
	}, []types.Model{entry}, cliLogger(cfg))
	return eng, entry.ID, nil
}

func cliLogger(cfg *Config) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(cfg.LogLvl)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
}

func actionCompile(cfg *Config, stanFile string, req types.CompileRequest) error {
	eng, id, err := engineFor(cfg, stanFile)
	if err != nil {
		return err
	}
	req.Model = id
	info("[stanctl] Compiling %s", stanFile)
	m, err := eng.Compile(context.Background(), req)
	if err != nil {
		return err
	}
	info("[stanctl] Built %s", m.ExeFile)
	return nil
}

// loadDataArg reads --data: a path to a JSON file whose variables are passed
// to the engine inline.
func loadDataArg(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("parse data file %s: %w", path, err)
	}
	return data, nil
}

func actionVariational(cfg *Config, stanFile string, req types.VariationalRequest, out io.Writer) error {
	eng, id, err := engineFor(cfg, stanFile)
	if err != nil {
		return err
	}
	req.Model = id
	debug("[stanctl] variational run for %s", id)
	f, err := eng.Variational(context.Background(), req)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "run: %s\ndraws: %d\ncsv: %s\n\n", f.RunID(), f.NumDraws(), f.CSVFile)
	printEstimates(out, f.ColumnNames(), f.Estimate())
	return nil
}

// printEstimates writes the posterior mean table in column order, skipping
// the engine's bookkeeping columns (trailing double underscore).
func printEstimates(out io.Writer, cols []string, est []float64) {
	tw := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PARAMETER\tMEAN")
	for i, name := range cols {
		if strings.HasSuffix(name, "__") {
			continue
		}
		fmt.Fprintf(tw, "%s\t%g\n", name, est[i])
	}
	tw.Flush()
}

// actionRdump converts a JSON data file into the Rdump format the engine
// also accepts, for data prepared by hand or other tooling.
func actionRdump(cfg *Config, jsonFile, outFile string) error {
	data, err := loadDataArg(jsonFile)
	if err != nil {
		return err
	}
	vars, err := rdump.Normalize(data)
	if err != nil {
		return err
	}
	if err := rdump.WriteFile(outFile, vars); err != nil {
		return err
	}
	info("[stanctl] Wrote %s", outFile)
	return nil
}

func actionSample(cfg *Config, stanFile string, req types.SampleRequest, out io.Writer) error {
	eng, id, err := engineFor(cfg, stanFile)
	if err != nil {
		return err
	}
	req.Model = id
	debug("[stanctl] sample run for %s", id)
	f, err := eng.Sample(context.Background(), req)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "run: %s\nchains: %d\ndraws per chain: %d\n", f.RunID(), f.Chains(), f.DrawsPerChain())
	for i, p := range f.CSVFiles {
		fmt.Fprintf(out, "chain %d: %s\n", f.ChainIDs()[i], p)
	}
	return nil
}
