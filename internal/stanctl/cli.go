package stanctl

import (
	"fmt"
	"os"
)

// Config carries the CLI-wide settings threaded through commands.
type Config struct {
	CmdStanDir  string
	OutputDir   string
	LogLvl      string
	RunTimeoutS int
	Cores       int
}

func defaultConfig() *Config {
	return &Config{
		CmdStanDir:  envStr("STAND_CMDSTAN", ""),
		OutputDir:   envStr("STAND_OUTPUT_DIR", ""),
		LogLvl:      envStr("STANCTL_LOG_LEVEL", "info"),
		RunTimeoutS: envInt("STANCTL_RUN_TIMEOUT_S", 0),
	}
}

// MainWithArgs is a testable variant of Main that accepts args explicitly.
// It returns an exit code (0 for success, non-zero on error).
func MainWithArgs(args []string) int {
	cfg := defaultConfig()
	root := buildRootCmdWith(cfg)
	if len(args) == 0 {
		_ = root.Help()
		return 2
	}
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	return 0
}

// Main returns an exit code (0 for success, non-zero on error) for use by cmd/stanctl.
func Main() int { return MainWithArgs(os.Args[1:]) }
