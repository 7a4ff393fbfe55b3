package types

// CompileRequest asks the server to compile a Stan program to an executable.
type CompileRequest struct {
	// Model identifier to compile.
	// example: bernoulli
	Model string `json:"model" example:"bernoulli"`
	// C++ compiler optimization level (0-3). Defaults to 2 when omitted.
	// example: 2
	OptLevel *int `json:"opt_level,omitempty" example:"2"`
	// Recompile even when an executable already exists.
	// example: false
	Overwrite bool `json:"overwrite,omitempty" example:"false"`
	// Directories searched for #include'd Stan files.
	IncludePaths []string `json:"include_paths,omitempty"`
}

// VariationalRequest asks the server to run the engine's variational
// (ADVI) method for a model.
type VariationalRequest struct {
	// Optional model identifier. If empty, the server default is used.
	// example: bernoulli
	Model string `json:"model,omitempty" example:"bernoulli"`
	// Inline data variables. Written to a temporary JSON file for the engine.
	Data map[string]any `json:"data,omitempty"`
	// Path to an existing JSON or Rdump data file, alternative to inline data.
	// example: /home/user/models/stan/bernoulli.data.json
	DataFile string `json:"data_file,omitempty" example:"/home/user/models/stan/bernoulli.data.json"`
	// Variational family: meanfield or fullrank. Engine default when empty.
	// example: meanfield
	Algorithm string `json:"algorithm,omitempty" example:"meanfield"`
	// Maximum number of ADVI iterations.
	// example: 10000
	Iter int `json:"iter,omitempty" example:"10000"`
	// Number of MC draws for gradient estimation.
	// example: 1
	GradSamples int `json:"grad_samples,omitempty" example:"1"`
	// Number of MC draws for ELBO estimation.
	// example: 100
	ElboSamples int `json:"elbo_samples,omitempty" example:"100"`
	// Stepsize scaling parameter.
	// example: 0.1
	Eta float64 `json:"eta,omitempty" example:"0.1"`
	// Whether stepsize adaptation is engaged. Engine default when nil.
	AdaptEngaged *bool `json:"adapt_engaged,omitempty"`
	// Number of stepsize adaptation iterations.
	// example: 50
	AdaptIter int `json:"adapt_iter,omitempty" example:"50"`
	// Convergence tolerance on the relative ELBO norm.
	// example: 0.01
	TolRelObj float64 `json:"tol_rel_obj,omitempty" example:"0.01"`
	// ELBO evaluation period, in iterations.
	// example: 100
	EvalElbo int `json:"eval_elbo,omitempty" example:"100"`
	// Number of approximate posterior draws to write.
	// example: 1000
	OutputSamples int `json:"output_samples,omitempty" example:"1000"`
	// Random seed; 0 or omitted lets the engine choose.
	// example: 42
	Seed int64 `json:"seed,omitempty" example:"42"`
	// When false, a non-convergence diagnostic from the engine is tolerated
	// and the partial estimate is returned. Defaults to true.
	RequireConverged *bool `json:"require_converged,omitempty"`
}

// SampleRequest asks the server to draw from the posterior with NUTS.
type SampleRequest struct {
	// Optional model identifier. If empty, the server default is used.
	// example: bernoulli
	Model string `json:"model,omitempty" example:"bernoulli"`
	// Inline data variables. Written to a temporary JSON file for the engine.
	Data map[string]any `json:"data,omitempty"`
	// Path to an existing JSON or Rdump data file, alternative to inline data.
	DataFile string `json:"data_file,omitempty"`
	// Number of sampler chains. Defaults to 4.
	// example: 4
	Chains int `json:"chains,omitempty" example:"4"`
	// Number of chains run in parallel. Defaults to 1.
	// example: 2
	Cores int `json:"cores,omitempty" example:"2"`
	// Random seed shared by all chains; the chain id advances the RNG.
	// example: 42
	Seed int64 `json:"seed,omitempty" example:"42"`
	// Per-chain seeds, alternative to seed. Length must match chains.
	Seeds []int64 `json:"seeds,omitempty"`
	// Explicit per-chain ids. Defaults to 1..chains.
	ChainIDs []int `json:"chain_ids,omitempty"`
	// Chain id offset, alternative to chain_ids: ids become
	// offset+1..offset+chains.
	// example: 10
	ChainIDOffset int `json:"chain_id_offset,omitempty" example:"10"`
	// Path to a JSON or Rdump file of initial parameter values.
	InitFile string `json:"init_file,omitempty"`
	// Per-chain init files, alternative to init_file. Length must match chains.
	InitFiles []string `json:"init_files,omitempty"`
	// Number of warmup iterations per chain.
	// example: 1000
	WarmupIters int `json:"warmup_iters,omitempty" example:"1000"`
	// Number of posterior draws per chain.
	// example: 1000
	SamplingIters int `json:"sampling_iters,omitempty" example:"1000"`
	// Save warmup draws into the output CSV.
	SaveWarmup bool `json:"save_warmup,omitempty"`
	// Period between saved draws.
	// example: 1
	Thin int `json:"thin,omitempty" example:"1"`
	// Maximum NUTS tree depth.
	// example: 10
	MaxTreedepth int `json:"max_treedepth,omitempty" example:"10"`
	// Mass matrix type: diag_e or dense_e. Engine default when empty.
	// example: diag_e
	Metric string `json:"metric,omitempty" example:"diag_e"`
	// Initial HMC stepsize.
	// example: 1.0
	StepSize float64 `json:"step_size,omitempty" example:"1.0"`
	// Per-chain initial stepsizes, alternative to step_size. Length must
	// match chains.
	StepSizes []float64 `json:"step_sizes,omitempty"`
	// Whether stepsize/metric adaptation is engaged. Engine default when nil.
	AdaptEngaged *bool `json:"adapt_engaged,omitempty"`
	// Adaptation target Metropolis acceptance rate.
	// example: 0.8
	AdaptDelta float64 `json:"adapt_delta,omitempty" example:"0.8"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of discovered Stan programs.
	Models []Model `json:"models"`
}

// VariationalResponse is returned by POST /variational.
type VariationalResponse struct {
	// Run identifier; output files are named from it.
	// example: 6b2e9a0e-0d0e-4e2a-9c37-5a4b2f1c8d90
	RunID string `json:"run_id" example:"6b2e9a0e-0d0e-4e2a-9c37-5a4b2f1c8d90"`
	// Ordered output column names, including engine bookkeeping columns.
	ColumnNames []string `json:"column_names"`
	// Parameter name -> posterior mean estimate.
	Params map[string]float64 `json:"params"`
	// Posterior mean estimates aligned to column_names.
	Estimate []float64 `json:"estimate"`
	// Draws from the approximate posterior, one row per draw.
	Sample [][]float64 `json:"sample"`
}

// SampleResponse is returned by POST /sample.
type SampleResponse struct {
	// Run identifier; per-chain output files are named from it.
	RunID string `json:"run_id"`
	// Number of chains run.
	// example: 4
	Chains int `json:"chains" example:"4"`
	// Ordered output column names shared by all chains.
	ColumnNames []string `json:"column_names"`
	// Draws retained per chain.
	// example: 1000
	DrawsPerChain int `json:"draws_per_chain" example:"1000"`
	// Per-chain CSV output paths on the server.
	CSVFiles []string `json:"csv_files"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Overall engine state (ready, error).
	// example: ready
	State string `json:"state" example:"ready"`
	// Number of discovered Stan programs.
	// example: 3
	Models int `json:"models" example:"3"`
	// Number of programs with a compiled executable.
	// example: 2
	Compiled int `json:"compiled" example:"2"`
	// Inference runs currently executing.
	// example: 1
	ActiveRuns int `json:"active_runs" example:"1"`
	// Total inference runs started since boot.
	// example: 12
	RunsTotal uint64 `json:"runs_total" example:"12"`
	// Last run error observed (if any).
	LastError string `json:"last_error,omitempty"`
	// CmdStan installation directory in use.
	CmdStanDir string `json:"cmdstan_dir,omitempty"`
	// Directory where run outputs are written.
	OutputDir string `json:"output_dir,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
