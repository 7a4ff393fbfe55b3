package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stand/internal/engine"
	"stand/pkg/fit"
	"stand/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListModels() []types.Model
	Status() types.StatusResponse
	Ready() bool
	Compile(ctx context.Context, req types.CompileRequest) (types.Model, error)
	Variational(ctx context.Context, req types.VariationalRequest) (*fit.VariationalFit, error)
	Sample(ctx context.Context, req types.SampleRequest) (*fit.SampleFit, error)
}

// serverBaseCtx is a process-level context that can be canceled on shutdown.
// Defaults to Background if not set.
var serverBaseCtx = context.Background()

// SetBaseContext sets the process-level base context used by handlers.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts returns a context that is canceled when either a or b is done.
// The returned cancel func must be called to release the goroutine when handler ends.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-a.Done():
			cancel()
		case <-b.Done():
			cancel()
		}
	}()
	return ctx, cancel
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	r.Use(MetricsMiddleware)

	// ListModels godoc
	// @Summary  List Stan programs
	// @Produce  json
	// @Success  200 {object} types.ModelsResponse
	// @Router   /models [get]
	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(types.ModelsResponse{Models: svc.ListModels()}); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	// Status godoc
	// @Summary  Engine status
	// @Produce  json
	// @Success  200 {object} types.StatusResponse
	// @Router   /status [get]
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(svc.Status()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	// Compile godoc
	// @Summary  Compile a Stan program
	// @Accept   json
	// @Produce  json
	// @Param    request body types.CompileRequest true "compile request"
	// @Success  200 {object} types.Model
	// @Failure  404 {object} types.ErrorResponse
	// @Router   /compile [post]
	r.Post("/compile", func(w http.ResponseWriter, r *http.Request) {
		var req types.CompileRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		handleRun(w, r, "compile", req.Model, func(ctx context.Context) (any, error) {
			return svc.Compile(ctx, req)
		})
	})

	// Variational godoc
	// @Summary  Run the engine's variational (ADVI) method
	// @Accept   json
	// @Produce  json
	// @Param    request body types.VariationalRequest true "variational request"
	// @Success  200 {object} types.VariationalResponse
	// @Failure  404 {object} types.ErrorResponse
	// @Failure  422 {object} types.ErrorResponse
	// @Router   /variational [post]
	r.Post("/variational", func(w http.ResponseWriter, r *http.Request) {
		var req types.VariationalRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		handleRun(w, r, "variational", req.Model, func(ctx context.Context) (any, error) {
			f, err := svc.Variational(ctx, req)
			if err != nil {
				return nil, err
			}
			return types.VariationalResponse{
				RunID:       f.RunID(),
				ColumnNames: f.ColumnNames(),
				Params:      f.ParamsDict(),
				Estimate:    f.Estimate(),
				Sample:      f.Sample(),
			}, nil
		})
	})

	// Sample godoc
	// @Summary  Run multi-chain NUTS sampling
	// @Accept   json
	// @Produce  json
	// @Param    request body types.SampleRequest true "sample request"
	// @Success  200 {object} types.SampleResponse
	// @Failure  404 {object} types.ErrorResponse
	// @Router   /sample [post]
	r.Post("/sample", func(w http.ResponseWriter, r *http.Request) {
		var req types.SampleRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		handleRun(w, r, "sample", req.Model, func(ctx context.Context) (any, error) {
			f, err := svc.Sample(ctx, req)
			if err != nil {
				return nil, err
			}
			return types.SampleResponse{
				RunID:         f.RunID(),
				Chains:        f.Chains(),
				ColumnNames:   f.ColumnNames(),
				DrawsPerChain: f.DrawsPerChain(),
				CSVFiles:      f.CSVFiles,
			}, nil
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// decodeJSON enforces content type and body size, reporting errors itself.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// handleRun wraps an engine call with logging, shutdown-joined context and
// error-to-status mapping.
func handleRun(w http.ResponseWriter, r *http.Request, op, model string, run func(context.Context) (any, error)) {
	lvl := requestLogLevel(r)
	start := time.Now()
	if lvl >= LevelInfo {
		z := zlog.Info().Str("op", op).Str("model", model)
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		z.Msg("run start")
	}
	// Join server base context with request context so shutdown cancels work too.
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	out, err := run(ctx)
	if err != nil {
		// If context was canceled (client disconnect or shutdown), just return.
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		status := statusForError(err)
		writeJSONError(w, status, err.Error())
		if status == http.StatusTooManyRequests {
			IncrementBackpressure(op)
		}
		if lvl >= LevelInfo {
			z := zlog.Info().Str("op", op).Int("status", status).Dur("dur", time.Since(start))
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				z = z.Str("request_id", rid)
			}
			z.Err(err).Msg("run end")
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	if lvl >= LevelInfo {
		z := zlog.Info().Str("op", op).Int("status", http.StatusOK).Dur("dur", time.Since(start))
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		z.Msg("run end")
	}
}

// statusForError maps well-known engine errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case engine.IsModelNotFound(err):
		return http.StatusNotFound
	case engine.IsNotCompiled(err):
		return http.StatusConflict
	case engine.IsTooBusy(err):
		return http.StatusTooManyRequests
	case engine.IsNonConvergence(err):
		return http.StatusUnprocessableEntity
	case engine.IsInvalidArgument(err):
		return http.StatusBadRequest
	case engine.IsRunFailed(err):
		return http.StatusBadGateway
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}
