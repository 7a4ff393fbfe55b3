package engine

// modelNotFoundError signals a model id absent from the registry (404).
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

// ErrModelNotFound constructs a modelNotFoundError.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

// notCompiledError signals a program without a compiled executable (409).
type notCompiledError struct{ id string }

func (e notCompiledError) Error() string { return "model not compiled: " + e.id }

// IsNotCompiled reports whether the error indicates a missing executable.
func IsNotCompiled(err error) bool {
	_, ok := err.(notCompiledError)
	return ok
}

// tooBusyError signals admission timeout/overflow for 429 mapping.
type tooBusyError struct{ modelID string }

func (e tooBusyError) Error() string { return "too busy: " + e.modelID }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	_, ok := err.(tooBusyError)
	return ok
}

// nonConvergenceError signals that the engine reported its approximation
// did not converge, so no fit is produced (422).
type nonConvergenceError struct{ runID string }

func (e nonConvergenceError) Error() string {
	return "the algorithm may not have converged (run " + e.runID + "); no fit produced"
}

// IsNonConvergence reports whether err indicates a non-converged run.
func IsNonConvergence(err error) bool {
	_, ok := err.(nonConvergenceError)
	return ok
}

// runFailedError signals a subprocess failure: non-zero exit, unparseable
// output, or an engine crash (502).
type runFailedError struct {
	runID string
	msg   string
}

func (e runFailedError) Error() string { return "run " + e.runID + " failed: " + e.msg }

// IsRunFailed reports whether err indicates an engine subprocess failure.
func IsRunFailed(err error) bool {
	_, ok := err.(runFailedError)
	return ok
}

// invalidArgumentError signals a caller mistake in run options (400).
type invalidArgumentError struct{ msg string }

func (e invalidArgumentError) Error() string { return e.msg }

// ErrInvalidArgument constructs an invalidArgumentError.
func ErrInvalidArgument(msg string) error { return invalidArgumentError{msg: msg} }

// IsInvalidArgument reports whether err indicates bad run options.
func IsInvalidArgument(err error) bool {
	_, ok := err.(invalidArgumentError)
	return ok
}
