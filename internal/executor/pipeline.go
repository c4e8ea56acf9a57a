package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/awsgate/awsgate/internal/log"
	"github.com/awsgate/awsgate/internal/shellsplit"
)

// runPipeline executes a piped command stage by stage. Each stage is spawned
// only after the previous one completed successfully, with the previous
// stage's captured stdout fed to its stdin. The timeout budget applies to
// every stage individually, so a stalled pipeline dies at the stage that
// stalls. A non-zero exit aborts the pipeline immediately with that stage's
// stderr as the error output.
func (e *Executor) runPipeline(ctx context.Context, logger log.Logger, command string, timeout time.Duration) (Result, error) {
	stages := shellsplit.SplitPipeline(command)

	var input []byte
	for i, stage := range stages {
		stdout, stderr, err := e.runStage(ctx, stage, input, i > 0, timeout)
		if err != nil {
			var exitErr *exec.ExitError
			switch {
			case errors.Is(err, context.DeadlineExceeded):
				logger.Warn("pipeline stage timed out", "command", command, "stage", i, "timeout", timeout)
				return Result{
					Status: StatusError,
					Output: fmt.Sprintf("Command timed out after %d seconds", int(timeout.Seconds())),
				}, nil
			case ctx.Err() != nil:
				return Result{}, &ExecutionError{Message: "execution canceled", Err: ctx.Err()}
			case errors.As(err, &exitErr):
				stderrStr := decode(stderr)
				logger.Warn("pipeline stage failed",
					"command", command,
					"stage", i,
					"exit_code", exitErr.ExitCode())
				return Result{Status: StatusError, Output: classifyError(stderrStr)}, nil
			default:
				return Result{}, &ExecutionError{Message: fmt.Sprintf("failed to run pipeline stage %d", i), Err: err}
			}
		}
		input = stdout
	}

	out := decode(input)
	if len(out) > e.cfg.MaxOutputSize {
		logger.Info("output truncated", "command", command, "size", len(out), "limit", e.cfg.MaxOutputSize)
		out = truncate(out, e.cfg.MaxOutputSize)
	}
	return Result{Status: StatusSuccess, Output: out}, nil
}

// runStage spawns one pipeline stage and waits for it under its own timeout
// budget. The returned error is nil only when the stage exited zero; a
// DeadlineExceeded error means the stage was killed at the budget.
func (e *Executor) runStage(ctx context.Context, stage string, input []byte, useInput bool, timeout time.Duration) (stdout, stderr []byte, err error) {
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	argv := shellsplit.Split(stage)
	if len(argv) == 0 {
		return nil, nil, fmt.Errorf("empty pipeline stage")
	}

	var outBuf, errBuf bytes.Buffer
	cmd := exec.CommandContext(sctx, argv[0], argv[1:]...) // #nosec G204 -- stages came through the validator
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	cmd.WaitDelay = killGracePeriod
	if useInput {
		cmd.Stdin = bytes.NewReader(input)
	}

	runErr := cmd.Run()
	if sctx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return nil, nil, context.DeadlineExceeded
	}
	return outBuf.Bytes(), errBuf.Bytes(), runErr
}
