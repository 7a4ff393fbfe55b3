// Package fit holds the result objects produced by inference runs. A fit is
// only constructed for runs the engine reported as successful; callers can
// therefore treat every accessor as total.
package fit

// VariationalFit is the result of a variational (ADVI) run: the posterior
// mean estimate plus draws from the approximate posterior.
type VariationalFit struct {
	runID       string
	columnNames []string
	estimate    []float64
	sample      [][]float64

	// Output file locations, useful for diagnostics and re-parsing.
	CSVFile     string
	ConsoleFile string
	// Command line the engine was invoked with.
	Cmd []string
}

// NewVariationalFit assembles a fit from parsed engine output. The estimate
// must be aligned to columnNames; sample rows must have the same width.
func NewVariationalFit(runID string, columnNames []string, estimate []float64, sample [][]float64) *VariationalFit {
	return &VariationalFit{
		runID:       runID,
		columnNames: columnNames,
		estimate:    estimate,
		sample:      sample,
	}
}

// RunID returns the identifier of the run that produced this fit.
func (f *VariationalFit) RunID() string { return f.runID }

// ColumnNames returns the ordered output column names, including the
// engine's bookkeeping columns (lp__ and friends).
func (f *VariationalFit) ColumnNames() []string {
	out := make([]string, len(f.columnNames))
	copy(out, f.columnNames)
	return out
}

// ParamsDict returns a mapping from column name to its posterior mean
// estimate.
func (f *VariationalFit) ParamsDict() map[string]float64 {
	out := make(map[string]float64, len(f.columnNames))
	for i, name := range f.columnNames {
		out[name] = f.estimate[i]
	}
	return out
}

// Param returns the posterior mean estimate for a single column.
func (f *VariationalFit) Param(name string) (float64, bool) {
	for i, n := range f.columnNames {
		if n == name {
			return f.estimate[i], true
		}
	}
	return 0, false
}

// Estimate returns the posterior mean estimates as a row aligned to
// ColumnNames.
func (f *VariationalFit) Estimate() []float64 {
	out := make([]float64, len(f.estimate))
	copy(out, f.estimate)
	return out
}

// Sample returns the matrix of draws from the approximate posterior, one
// row per draw, columns aligned to ColumnNames. The backing array is shared;
// callers must not mutate it.
func (f *VariationalFit) Sample() [][]float64 { return f.sample }

// NumDraws returns the number of draws in the approximate posterior sample.
func (f *VariationalFit) NumDraws() int { return len(f.sample) }

// SampleFit is the result of a multi-chain NUTS run.
type SampleFit struct {
	runID       string
	columnNames []string
	chainIDs    []int
	draws       [][][]float64 // per chain: draws x columns

	// Per-chain output file locations and commands.
	CSVFiles     []string
	ConsoleFiles []string
	Cmds         [][]string
}

// NewSampleFit assembles a fit from per-chain parsed output. Chains must
// agree on columnNames; the engine validates this before construction.
func NewSampleFit(runID string, columnNames []string, chainIDs []int, draws [][][]float64) *SampleFit {
	return &SampleFit{
		runID:       runID,
		columnNames: columnNames,
		chainIDs:    chainIDs,
		draws:       draws,
	}
}

// RunID returns the identifier of the run that produced this fit.
func (f *SampleFit) RunID() string { return f.runID }

// Chains returns the number of chains.
func (f *SampleFit) Chains() int { return len(f.draws) }

// ChainIDs returns the per-chain ids in run order.
func (f *SampleFit) ChainIDs() []int {
	out := make([]int, len(f.chainIDs))
	copy(out, f.chainIDs)
	return out
}

// ColumnNames returns the ordered output column names shared by all chains.
func (f *SampleFit) ColumnNames() []string {
	out := make([]string, len(f.columnNames))
	copy(out, f.columnNames)
	return out
}

// ChainDraws returns the draw matrix for one chain. The backing array is
// shared; callers must not mutate it.
func (f *SampleFit) ChainDraws(i int) [][]float64 { return f.draws[i] }

// Draws returns all chains' draws concatenated in chain order.
func (f *SampleFit) Draws() [][]float64 {
	var n int
	for _, c := range f.draws {
		n += len(c)
	}
	out := make([][]float64, 0, n)
	for _, c := range f.draws {
		out = append(out, c...)
	}
	return out
}

// DrawsPerChain returns the number of retained draws in the first chain,
// or 0 when there are no chains.
func (f *SampleFit) DrawsPerChain() int {
	if len(f.draws) == 0 {
		return 0
	}
	return len(f.draws[0])
}
