package engine

import (
	"context"
	"time"
)

// beginRun reserves the single in-flight slot for a model. Returns a
// release func to be deferred. A second run against the same model waits up
// to MaxWait before failing with a too-busy error.
func (e *Engine) beginRun(ctx context.Context, modelID string) (func(), error) {
	e.mu.Lock()
	slot := e.inflight[modelID]
	if slot == nil {
		slot = make(chan struct{}, 1)
		e.inflight[modelID] = slot
	}
	e.mu.Unlock()

	// Fast path: respect an already-canceled context
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}

	timer := time.NewTimer(e.cfg.MaxWait)
	defer timer.Stop()
	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		return func() {}, tooBusyError{modelID: modelID}
	}
}
