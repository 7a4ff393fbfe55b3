package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"stand/internal/config"
	"stand/internal/engine"
	"stand/internal/httpapi"
	"stand/internal/registry"
)

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// splitCSV splits a comma-separated flag value, dropping empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	// Flags with environment variable defaults
	addr := flag.String("addr", envStr("STAND_ADDR", ":8080"), "HTTP listen address, e.g. :8080")
	modelsDir := flag.String("models-dir", envStr("STAND_MODELS_DIR", "~/models/stan"), "Directory to scan for *.stan program files")
	cmdstanDir := flag.String("cmdstan", envStr("STAND_CMDSTAN", ""), "CmdStan installation directory")
	outputDir := flag.String("output-dir", envStr("STAND_OUTPUT_DIR", ""), "Directory for run outputs (default: <models-dir>/out)")
	defaultModel := flag.String("default-model", envStr("STAND_DEFAULT_MODEL", ""), "Default model id when request omits model")
	maxParallel := flag.Int("max-parallel", 0, "Max chains executing concurrently (0=num CPUs)")
	runTimeoutS := flag.Int("run-timeout-s", 0, "Per-run wall clock limit in seconds (0 disables)")
	maxBodyBytes := flag.Int64("max-body-bytes", 0, "Max JSON request body size in bytes (0=default)")
	corsEnabled := flag.Bool("cors-enabled", false, "Enable CORS middleware")
	corsOrigins := flag.String("cors-origins", "*", "Comma-separated allowed CORS origins")
	logLevel := flag.String("log-level", envStr("STAND_LOG_LEVEL", "info"), "Log level: debug|info|warn|error")
	configPath := flag.String("config", envStr("STAND_CONFIG", ""), "Optional config file (.yaml/.json/.toml); flags override")
	flag.Parse()

	// Config file fills in anything the flags left at defaults. The logger is
	// constructed after the merge so a file-set log level takes effect.
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			l := newLogger(*logLevel)
			l.Fatal().Err(err).Str("path", *configPath).Msg("load config")
		}
		applyConfig(cfg, addr, modelsDir, cmdstanDir, outputDir, defaultModel, logLevel, maxParallel, runTimeoutS, corsEnabled, corsOrigins)
	}
	log := newLogger(*logLevel)
	if *outputDir == "" {
		*outputDir = *modelsDir + "/out"
	}

	// Load registry by scanning modelsDir for *.stan
	reg, err := registry.LoadDir(*modelsDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", *modelsDir).Msg("load models")
	}
	eng := engine.New(engine.Config{
		CmdStanDir:   *cmdstanDir,
		OutputDir:    *outputDir,
		DefaultModel: *defaultModel,
		MaxParallel:  *maxParallel,
		RunTimeout:   time.Duration(*runTimeoutS) * time.Second,
	}, reg, log)

	httpapi.SetLogger(log)
	if *maxBodyBytes > 0 {
		httpapi.SetMaxBodyBytes(*maxBodyBytes)
	}
	if *corsEnabled {
		httpapi.SetCORSOptions(true, splitCSV(*corsOrigins),
			[]string{"GET", "POST", "OPTIONS"}, []string{"Content-Type", "X-Log-Level"})
	}

	baseCtx, cancelBase := context.WithCancel(context.Background())
	httpapi.SetBaseContext(baseCtx)

	mux := httpapi.NewMux(eng)
	srv := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		log.Info().Str("addr", *addr).Str("models_dir", *modelsDir).Int("models", len(reg)).Msg("stand listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
}

// applyConfig copies config file values into flag targets still holding
// their zero/default values.
func applyConfig(cfg config.Config, addr, modelsDir, cmdstanDir, outputDir, defaultModel, logLevel *string, maxParallel, runTimeoutS *int, corsEnabled *bool, corsOrigins *string) {
	if cfg.Addr != "" && *addr == ":8080" {
		*addr = cfg.Addr
	}
	if cfg.ModelsDir != "" && *modelsDir == "~/models/stan" {
		*modelsDir = cfg.ModelsDir
	}
	if cfg.CmdStanDir != "" && *cmdstanDir == "" {
		*cmdstanDir = cfg.CmdStanDir
	}
	if cfg.OutputDir != "" && *outputDir == "" {
		*outputDir = cfg.OutputDir
	}
	if cfg.DefaultModel != "" && *defaultModel == "" {
		*defaultModel = cfg.DefaultModel
	}
	if cfg.LogLevel != "" && *logLevel == envStr("STAND_LOG_LEVEL", "info") {
		*logLevel = cfg.LogLevel
	}
	if cfg.MaxParallel > 0 && *maxParallel == 0 {
		*maxParallel = cfg.MaxParallel
	}
	if cfg.RunTimeoutS > 0 && *runTimeoutS == 0 {
		*runTimeoutS = cfg.RunTimeoutS
	}
	if cfg.CORSEnabled && !*corsEnabled {
		*corsEnabled = true
	}
	if cfg.CORSOrigins != "" && *corsOrigins == "*" {
		*corsOrigins = cfg.CORSOrigins
	}
}
