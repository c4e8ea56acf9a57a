package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	mcpSdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/awsgate/awsgate/internal/awsenv"
	"github.com/awsgate/awsgate/internal/config"
	"github.com/awsgate/awsgate/internal/executor"
	"github.com/awsgate/awsgate/internal/log"
	"github.com/awsgate/awsgate/internal/mcp"
	"github.com/awsgate/awsgate/internal/security"
)

// setup builds the component graph shared by serve and doctor.
func setup(logger log.Logger) (*config.Config, *executor.Executor, *awsenv.Env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	loader := security.NewLoader(cfg.SecurityPolicyFile, logger.With("component", "security"))
	validator := security.NewValidator(loader, security.Mode(cfg.SecurityMode), logger.With("component", "security"))

	exec, err := executor.New(validator, executor.Config{
		DefaultTimeout:    cfg.Timeout(),
		MaxOutputSize:     cfg.MaxOutputSize,
		MaxCallsPerSecond: cfg.MaxCallsPerSecond,
	}, logger.With("component", "executor"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating executor: %w", err)
	}

	env := awsenv.New(exec, logger.With("component", "awsenv"))
	return cfg, exec, env, nil
}

func newLogger() log.Logger {
	level := slog.LevelInfo
	if debugLog {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level})
}

func runServe(ctx context.Context) error {
	logger := newLogger()

	cfg, exec, env, err := setup(logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Liveness probe only: the gateway still serves (and reports errors
	// per request) when the CLI is missing, so operators see the problem
	// through the protocol as well as the log.
	if !exec.IsInstalled(ctx) {
		logger.Warn("AWS CLI not found in PATH; commands will fail until it is installed")
	}

	server, err := mcp.NewServer(mcp.Config{
		Name:     "awsgate",
		Version:  Version,
		Executor: exec,
		Env:      env,
		Logger:   logger.With("component", "mcp"),
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	logger.Info("starting MCP server",
		"version", Version,
		"security_mode", cfg.SecurityMode,
		"timeout", cfg.Timeout(),
		"rate_limit", cfg.MaxCallsPerSecond)

	if httpAddr != "" {
		logger.Info("serving MCP over HTTP", "addr", httpAddr)
		return server.ServeHTTP(ctx, httpAddr)
	}

	logger.Info("serving MCP over stdio")
	if err := server.Run(ctx, &mcpSdk.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
