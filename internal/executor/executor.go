// Package executor runs validated AWS CLI commands as isolated OS processes
// under timeout, rate-limit, and output-size bounds.
//
// Commands are split into argv by the shellsplit tokenizer and handed to
// exec directly — no shell is ever involved, so shell metacharacters in
// arguments are inert. Every invocation gets a wall-clock budget enforced by
// exec.CommandContext, which kills the child when the budget expires; for
// pipelines the budget applies to each stage individually (a slow pipeline
// is killed at the first stage that exceeds it, not only at the end).
//
// Outcome taxonomy: anything that is the child's fault — non-zero exit,
// timeout, authentication failure — comes back as a Result with error
// status. Only engine faults (spawn failure, caller cancellation) surface as
// errors, typed *ExecutionError. Validation failures short-circuit before
// any process is spawned.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/awsgate/awsgate/internal/log"
	"github.com/awsgate/awsgate/internal/security"
	"github.com/awsgate/awsgate/internal/shellsplit"
)

// truncationMarker is appended to output cut at MaxOutputSize.
const truncationMarker = "\n... (output truncated)"

// killGracePeriod bounds how long Wait may linger after the context kills
// the child, in case grandchildren hold the output pipes open.
const killGracePeriod = 5 * time.Second

// Config holds the execution bounds, normally sourced from the application
// configuration.
type Config struct {
	// DefaultTimeout applies when a call passes no explicit timeout.
	DefaultTimeout time.Duration
	// MaxOutputSize is the stdout bound in bytes; longer output is
	// truncated with a visible marker.
	MaxOutputSize int
	// MaxCallsPerSecond gates invocation frequency. <= 0 disables the
	// gate.
	MaxCallsPerSecond int
}

// Executor validates and runs AWS CLI commands. Safe for concurrent use;
// the rate limiter is the only shared mutable state.
type Executor struct {
	validator *security.Validator
	limiter   *rateLimiter
	cfg       Config
	logger    log.Logger
}

// New creates an Executor.
func New(validator *security.Validator, cfg Config, logger log.Logger) (*Executor, error) {
	if validator == nil {
		return nil, fmt.Errorf("validator is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.DefaultTimeout <= 0 {
		return nil, fmt.Errorf("default timeout must be positive")
	}
	if cfg.MaxOutputSize <= 0 {
		return nil, fmt.Errorf("max output size must be positive")
	}
	return &Executor{
		validator: validator,
		limiter:   newRateLimiter(cfg.MaxCallsPerSecond),
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Execute validates command and runs it, following the pipeline path when it
// contains unquoted pipes. timeout <= 0 selects the configured default.
//
// The error return is either a *security.ValidationError (command rejected,
// nothing spawned) or a *ExecutionError (engine fault); every child-process
// outcome is reported in the Result.
func (e *Executor) Execute(ctx context.Context, command string, timeout time.Duration) (Result, error) {
	logger := e.logger.With("invocation", uuid.NewString())

	if err := e.validator.ValidatePipeline(command); err != nil {
		logger.Warn("command rejected", "command", command, "error", err)
		return Result{}, err
	}

	if timeout <= 0 {
		timeout = e.cfg.DefaultTimeout
	}

	if err := e.limiter.wait(ctx); err != nil {
		return Result{}, &ExecutionError{Message: "canceled while rate limited", Err: err}
	}

	logger.Debug("executing command", "command", command, "timeout", timeout)

	if shellsplit.IsPipeline(command) {
		return e.runPipeline(ctx, logger, command, timeout)
	}
	return e.runSingle(ctx, logger, command, timeout)
}

// runSingle spawns one process and collects its output under the timeout.
func (e *Executor) runSingle(ctx context.Context, logger log.Logger, command string, timeout time.Duration) (Result, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	argv := shellsplit.Split(command)
	if len(argv) == 0 {
		// Unreachable after validation; kept as a guard.
		return Result{}, &ExecutionError{Message: "empty command"}
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(cctx, argv[0], argv[1:]...) // #nosec G204 -- argv came through the validator
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = killGracePeriod

	if err := cmd.Start(); err != nil {
		return Result{}, &ExecutionError{Message: fmt.Sprintf("failed to start command %q", argv[0]), Err: err}
	}

	err := cmd.Wait()
	return e.finish(ctx, cctx, logger, command, timeout, stdout.Bytes(), stderr.Bytes(), err)
}

// finish converts a completed (or killed) process wait into a Result,
// applying the shared timeout, cancellation, exit-code, auth, and truncation
// handling for both single commands and final pipeline stages.
func (e *Executor) finish(ctx, cctx context.Context, logger log.Logger, command string, timeout time.Duration, stdout, stderr []byte, waitErr error) (Result, error) {
	if cctx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		// The kill was already sent by CommandContext; a kill failure is
		// logged by the runtime, not surfaced — the outcome is the
		// timeout either way.
		logger.Warn("command timed out", "command", command, "timeout", timeout)
		return Result{
			Status: StatusError,
			Output: fmt.Sprintf("Command timed out after %d seconds", int(timeout.Seconds())),
		}, nil
	}
	if ctx.Err() != nil {
		// Caller disconnected. The child has been killed via the derived
		// context; propagate the cancellation instead of fabricating a
		// Result nobody will read.
		return Result{}, &ExecutionError{Message: "execution canceled", Err: ctx.Err()}
	}

	stderrStr := decode(stderr)

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return Result{}, &ExecutionError{Message: "waiting for command", Err: waitErr}
		}
		logger.Warn("command failed",
			"command", command,
			"exit_code", exitErr.ExitCode(),
			"auth_error", isAuthError(stderrStr))
		return Result{Status: StatusError, Output: classifyError(stderrStr)}, nil
	}

	out := decode(stdout)
	if len(out) > e.cfg.MaxOutputSize {
		logger.Info("output truncated", "command", command, "size", len(out), "limit", e.cfg.MaxOutputSize)
		out = truncate(out, e.cfg.MaxOutputSize)
	}
	return Result{Status: StatusSuccess, Output: out}, nil
}

// GetCommandHelp retrieves AWS CLI help for a service or a command within a
// service by running "aws <service> [command] help" through Execute. All
// failures are folded into the returned help text.
func (e *Executor) GetCommandHelp(ctx context.Context, service, command string) HelpResult {
	parts := []string{security.CLIName, service}
	if command != "" {
		parts = append(parts, command)
	}
	parts = append(parts, "help")
	helpCmd := strings.Join(parts, " ")

	result, err := e.Execute(ctx, helpCmd, 0)
	if err != nil {
		var verr *security.ValidationError
		if errors.As(err, &verr) {
			return HelpResult{HelpText: "Command validation error: " + verr.Message}
		}
		return HelpResult{HelpText: "Error retrieving help: " + err.Error()}
	}
	if result.Status != StatusSuccess {
		return HelpResult{HelpText: "Error: " + result.Output}
	}
	return HelpResult{HelpText: result.Output}
}

// IsInstalled probes whether the AWS CLI can be started at all by running
// "aws --version". This is a liveness check at startup, not a security
// control.
func (e *Executor) IsInstalled(ctx context.Context) bool {
	cctx, cancel := context.WithTimeout(ctx, e.cfg.DefaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, security.CLIName, "--version")
	if err := cmd.Run(); err != nil {
		e.logger.Debug("AWS CLI probe failed", "error", err)
		return false
	}
	return true
}

// decode converts raw process output to text, replacing undecodable bytes
// rather than failing.
func decode(b []byte) string {
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}

// truncate cuts s to at most limit bytes on a rune boundary and appends the
// truncation marker.
func truncate(s string, limit int) string {
	cut := s[:limit]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut + truncationMarker
}
