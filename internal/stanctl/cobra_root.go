package stanctl

import (
	"os"

	"github.com/spf13/cobra"

	"stand/pkg/types"
)

// buildRootCmd is a convenience for help-only fallbacks.
func buildRootCmd() *cobra.Command { return buildRootCmdWith(defaultConfig()) }

// buildRootCmdWith constructs a Cobra command tree wired to the fn* actions.
func buildRootCmdWith(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "stanctl",
		Short:         "Compile Stan programs and run inference from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags -> Config
	root.PersistentFlags().StringVar(&cfg.CmdStanDir, "cmdstan", cfg.CmdStanDir, "CmdStan installation directory (defaults STAND_CMDSTAN)")
	root.PersistentFlags().StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Directory for run outputs (defaults STAND_OUTPUT_DIR or the program's directory)")
	root.PersistentFlags().StringVar(&cfg.LogLvl, "log-level", cfg.LogLvl, "Log level: debug|info|warn|error (defaults STANCTL_LOG_LEVEL or info)")
	root.PersistentFlags().IntVar(&cfg.RunTimeoutS, "run-timeout-s", cfg.RunTimeoutS, "Per-run wall clock limit in seconds (0 disables)")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		SetLogLevel(cfg.LogLvl)
	}

	// compile
	var (
		compileReq types.CompileRequest
		optLevel   int
	)
	compileCmd := &cobra.Command{
		Use:     "compile <model.stan>",
		Short:   "Compile a Stan program to an executable",
		Example: "  stanctl compile bernoulli.stan\n  stanctl compile --force --opt 3 bernoulli.stan",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("opt") {
				compileReq.OptLevel = &optLevel
			}
			return fnCompile(cfg, args[0], compileReq)
		},
	}
	compileCmd.Flags().IntVar(&optLevel, "opt", 2, "C++ optimization level 0-3 (default 2 when unset; 0 compiles fastest)")
	compileCmd.Flags().BoolVar(&compileReq.Overwrite, "force", false, "Rebuild even when an executable exists")
	compileCmd.Flags().StringSliceVar(&compileReq.IncludePaths, "include-paths", nil, "Directories searched for #include'd Stan files")
	root.AddCommand(compileCmd)

	// variational
	var (
		varReq      types.VariationalRequest
		varDataPath string
		tolerateNC  bool
	)
	variationalCmd := &cobra.Command{
		Use:     "variational <model.stan>",
		Short:   "Run the engine's variational (ADVI) method and print the estimates",
		Example: "  stanctl variational --data bernoulli.data.json bernoulli.stan\n  stanctl variational --algorithm fullrank --iter 20000 bernoulli.stan",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := loadDataArg(varDataPath)
			if err != nil {
				return err
			}
			varReq.Data = data
			if tolerateNC {
				f := false
				varReq.RequireConverged = &f
			}
			return fnVariational(cfg, args[0], varReq, os.Stdout)
		},
	}
	variationalCmd.Flags().StringVar(&varDataPath, "data", "", "JSON data file passed to the engine")
	variationalCmd.Flags().StringVar(&varReq.Algorithm, "algorithm", "", "Variational family: meanfield|fullrank (engine default when empty)")
	variationalCmd.Flags().IntVar(&varReq.Iter, "iter", 0, "Maximum ADVI iterations (engine default when 0)")
	variationalCmd.Flags().IntVar(&varReq.GradSamples, "grad-samples", 0, "MC draws for gradient estimation")
	variationalCmd.Flags().IntVar(&varReq.ElboSamples, "elbo-samples", 0, "MC draws for ELBO estimation")
	variationalCmd.Flags().Float64Var(&varReq.Eta, "eta", 0, "Stepsize scaling parameter")
	variationalCmd.Flags().IntVar(&varReq.AdaptIter, "adapt-iter", 0, "Stepsize adaptation iterations")
	variationalCmd.Flags().Float64Var(&varReq.TolRelObj, "tol-rel-obj", 0, "Convergence tolerance on the relative ELBO norm")
	variationalCmd.Flags().IntVar(&varReq.EvalElbo, "eval-elbo", 0, "ELBO evaluation period in iterations")
	variationalCmd.Flags().IntVar(&varReq.OutputSamples, "output-samples", 0, "Approximate posterior draws to write")
	variationalCmd.Flags().Int64Var(&varReq.Seed, "seed", 0, "Random seed (0 lets the engine choose)")
	variationalCmd.Flags().BoolVar(&tolerateNC, "tolerate-nonconvergence", false, "Return the partial estimate even when the engine reports non-convergence")
	root.AddCommand(variationalCmd)

	// sample
	var (
		smpReq      types.SampleRequest
		smpDataPath string
	)
	sampleCmd := &cobra.Command{
		Use:     "sample <model.stan>",
		Short:   "Draw from the posterior with multi-chain NUTS",
		Example: "  stanctl sample --chains 4 --cores 2 --data bernoulli.data.json bernoulli.stan",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := loadDataArg(smpDataPath)
			if err != nil {
				return err
			}
			smpReq.Data = data
			cfg.Cores = smpReq.Cores
			return fnSample(cfg, args[0], smpReq, os.Stdout)
		},
	}
	sampleCmd.Flags().StringVar(&smpDataPath, "data", "", "JSON data file passed to the engine")
	sampleCmd.Flags().IntVar(&smpReq.Chains, "chains", 0, "Number of sampler chains (default 4)")
	sampleCmd.Flags().IntVar(&smpReq.Cores, "cores", 0, "Chains run in parallel (default 1)")
	sampleCmd.Flags().Int64Var(&smpReq.Seed, "seed", 0, "Random seed shared by all chains")
	sampleCmd.Flags().Int64SliceVar(&smpReq.Seeds, "seeds", nil, "Per-chain seeds, alternative to --seed")
	sampleCmd.Flags().IntSliceVar(&smpReq.ChainIDs, "chain-ids", nil, "Explicit per-chain ids (default 1..chains)")
	sampleCmd.Flags().IntVar(&smpReq.ChainIDOffset, "chain-id-offset", 0, "Chain id offset: ids become offset+1..offset+chains")
	sampleCmd.Flags().StringVar(&smpReq.InitFile, "init", "", "JSON or Rdump file of initial parameter values")
	sampleCmd.Flags().StringSliceVar(&smpReq.InitFiles, "init-files", nil, "Per-chain init files, alternative to --init")
	sampleCmd.Flags().IntVar(&smpReq.WarmupIters, "warmup", 0, "Warmup iterations per chain")
	sampleCmd.Flags().IntVar(&smpReq.SamplingIters, "samples", 0, "Posterior draws per chain")
	sampleCmd.Flags().BoolVar(&smpReq.SaveWarmup, "save-warmup", false, "Save warmup draws into the output CSV")
	sampleCmd.Flags().IntVar(&smpReq.Thin, "thin", 0, "Period between saved draws")
	sampleCmd.Flags().IntVar(&smpReq.MaxTreedepth, "max-depth", 0, "Maximum NUTS tree depth")
	sampleCmd.Flags().StringVar(&smpReq.Metric, "metric", "", "Mass matrix type: diag_e|dense_e")
	sampleCmd.Flags().Float64Var(&smpReq.StepSize, "stepsize", 0, "Initial HMC stepsize")
	sampleCmd.Flags().Float64SliceVar(&smpReq.StepSizes, "stepsizes", nil, "Per-chain initial stepsizes, alternative to --stepsize")
	sampleCmd.Flags().Float64Var(&smpReq.AdaptDelta, "delta", 0, "Adaptation target acceptance rate")
	root.AddCommand(sampleCmd)

	// rdump
	rdumpCmd := &cobra.Command{
		Use:     "rdump <data.json> <out.R>",
		Short:   "Convert a JSON data file to the Rdump format",
		Example: "  stanctl rdump bernoulli.data.json bernoulli.data.R",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return fnRdump(cfg, args[0], args[1])
		},
	}
	root.AddCommand(rdumpCmd)

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(os.Stdout, true) }})
	completionCmd.AddCommand(&cobra.Command{Use: "powershell", Short: "PowerShell completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenPowerShellCompletionWithDesc(os.Stdout) }})
	root.AddCommand(completionCmd)

	return root
}
