package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// runProcess spawns one engine subprocess and waits for completion. The
// console output is written to consolePath (stderr appended after an ERROR
// marker) and returned for diagnostics scanning. A non-zero exit is
// reported with a stderr tail.
func (e *Engine) runProcess(ctx context.Context, runID string, args []string, consolePath string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("empty command")
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.log.Info().Str("run_id", runID).Str("exe", args[0]).Msg("run start")
	runErr := cmd.Run()

	// Transcript is written regardless of outcome so failed runs can be
	// inspected after the fact.
	var transcript bytes.Buffer
	transcript.Write(stdout.Bytes())
	if stderr.Len() > 0 {
		transcript.WriteString("ERROR\n")
		transcript.Write(stderr.Bytes())
	}
	if werr := os.WriteFile(consolePath, transcript.Bytes(), 0o644); werr != nil {
		e.log.Error().Str("run_id", runID).Err(werr).Msg("write transcript")
	}

	if runErr != nil {
		if ctx.Err() != nil {
			return stdout.String(), ctx.Err()
		}
		tail := stderr.String()
		if tail == "" {
			tail = stdout.String()
		}
		if len(tail) > 4096 {
			tail = tail[len(tail)-4096:]
		}
		e.log.Error().Str("run_id", runID).Err(runErr).Msg("run exit")
		return stdout.String(), fmt.Errorf("engine exited: %v; output tail: %s", runErr, tail)
	}
	e.log.Info().Str("run_id", runID).Msg("run done")
	return stdout.String(), nil
}
