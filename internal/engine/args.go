package engine

import (
	"strconv"

	"stand/pkg/types"
)

// Command-line composition for the external engine. Unset options are
// omitted so the engine's own defaults apply. Argument order matters: sub-
// arguments bind to the nearest preceding block keyword (adapt, data,
// random, output).

func variationalArgs(exe string, req types.VariationalRequest, dataFile, outFile string) []string {
	args := []string{exe, "method=variational"}
	if req.Algorithm != "" {
		args = append(args, "algorithm="+req.Algorithm)
	}
	if req.Iter > 0 {
		args = append(args, "iter="+strconv.Itoa(req.Iter))
	}
	if req.GradSamples > 0 {
		args = append(args, "grad_samples="+strconv.Itoa(req.GradSamples))
	}
	if req.ElboSamples > 0 {
		args = append(args, "elbo_samples="+strconv.Itoa(req.ElboSamples))
	}
	if req.Eta > 0 {
		args = append(args, "eta="+formatFloat(req.Eta))
	}
	if req.AdaptEngaged != nil || req.AdaptIter > 0 {
		args = append(args, "adapt")
		if req.AdaptEngaged != nil {
			args = append(args, "engaged="+boolArg(*req.AdaptEngaged))
		}
		if req.AdaptIter > 0 {
			args = append(args, "iter="+strconv.Itoa(req.AdaptIter))
		}
	}
	if req.TolRelObj > 0 {
		args = append(args, "tol_rel_obj="+formatFloat(req.TolRelObj))
	}
	if req.EvalElbo > 0 {
		args = append(args, "eval_elbo="+strconv.Itoa(req.EvalElbo))
	}
	if req.OutputSamples > 0 {
		args = append(args, "output_samples="+strconv.Itoa(req.OutputSamples))
	}
	if dataFile != "" {
		args = append(args, "data", "file="+dataFile)
	}
	if req.Seed > 0 {
		args = append(args, "random", "seed="+strconv.FormatInt(req.Seed, 10))
	}
	args = append(args, "output", "file="+outFile)
	return args
}

// chainArgs are the per-chain values resolved from the request's scalar or
// per-chain list fields.
type chainArgs struct {
	id       int
	seed     int64
	initFile string
	stepSize float64
}

func sampleArgs(exe string, req types.SampleRequest, ch chainArgs, dataFile, outFile string) []string {
	args := []string{exe, "id=" + strconv.Itoa(ch.id)}
	if ch.seed > 0 {
		args = append(args, "random", "seed="+strconv.FormatInt(ch.seed, 10))
	}
	if dataFile != "" {
		args = append(args, "data", "file="+dataFile)
	}
	if ch.initFile != "" {
		args = append(args, "init="+ch.initFile)
	}
	args = append(args, "output", "file="+outFile)
	args = append(args, "method=sample")
	if req.SamplingIters > 0 {
		args = append(args, "num_samples="+strconv.Itoa(req.SamplingIters))
	}
	if req.WarmupIters > 0 {
		args = append(args, "num_warmup="+strconv.Itoa(req.WarmupIters))
	}
	if req.SaveWarmup {
		args = append(args, "save_warmup=1")
	}
	if req.Thin > 0 {
		args = append(args, "thin="+strconv.Itoa(req.Thin))
	}
	if req.AdaptEngaged != nil || req.AdaptDelta > 0 {
		args = append(args, "adapt")
		if req.AdaptEngaged != nil {
			args = append(args, "engaged="+boolArg(*req.AdaptEngaged))
		}
		if req.AdaptDelta > 0 {
			args = append(args, "delta="+formatFloat(req.AdaptDelta))
		}
	}
	if req.MaxTreedepth > 0 || req.Metric != "" || ch.stepSize > 0 {
		args = append(args, "algorithm=hmc")
		if req.MaxTreedepth > 0 {
			args = append(args, "engine=nuts", "max_depth="+strconv.Itoa(req.MaxTreedepth))
		}
		if req.Metric != "" {
			args = append(args, "metric="+req.Metric)
		}
		if ch.stepSize > 0 {
			args = append(args, "stepsize="+formatFloat(ch.stepSize))
		}
	}
	return args
}

func boolArg(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
