// Package mcp exposes the gateway over the Model Context Protocol using the
// official Go SDK. Two tools mirror the upstream server: aws_cli_help for
// documentation and aws_cli_pipeline for validated execution. Environment
// metadata is published as aws://config/* resources.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/awsgate/awsgate/internal/awsenv"
	"github.com/awsgate/awsgate/internal/executor"
	"github.com/awsgate/awsgate/internal/format"
	"github.com/awsgate/awsgate/internal/log"
	"github.com/awsgate/awsgate/internal/security"
)

// serverInstructions is shown to clients during initialization.
const serverInstructions = "Use this server to retrieve AWS CLI documentation and execute AWS CLI commands."

// Config holds the wiring for a gateway server.
type Config struct {
	Name     string
	Version  string
	Executor *executor.Executor
	Env      *awsenv.Env
	Logger   log.Logger
}

// Server wraps the SDK server and the gateway components.
type Server struct {
	mcpServer *mcp.Server
	exec      *executor.Executor
	env       *awsenv.Env
	logger    log.Logger
}

// NewServer creates the MCP server and registers all tools and resources.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, &mcp.ServerOptions{
			Instructions: serverInstructions,
		}),
		exec:   cfg.Executor,
		env:    cfg.Env,
		logger: cfg.Logger,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}
	s.registerResources()

	return s, nil
}

// Run serves MCP on the given transport until ctx is done. Blocking.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

// HelpInput is the aws_cli_help tool input.
type HelpInput struct {
	Service string `json:"service" jsonschema:"AWS service name (e.g. s3, ec2, iam)"`
	Command string `json:"command,omitempty" jsonschema:"Command within the service (optional)"`
}

// ExecuteInput is the aws_cli_pipeline tool input.
type ExecuteInput struct {
	Command string `json:"command" jsonschema:"Complete AWS CLI command, optionally piped into Unix utilities"`
	Timeout int    `json:"timeout,omitempty" jsonschema:"Timeout in seconds (optional, defaults to server configuration)"`
}

func (s *Server) registerTools() error {
	helpSchema, err := jsonschema.For[HelpInput](nil)
	if err != nil {
		return fmt.Errorf("schema for aws_cli_help: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "aws_cli_help",
		Description: "Get AWS CLI documentation for a service or a command within a service. " +
			"Runs 'aws <service> [command] help' and returns the help text.",
		InputSchema: helpSchema,
	}, s.Help)

	executeSchema, err := jsonschema.For[ExecuteInput](nil)
	if err != nil {
		return fmt.Errorf("schema for aws_cli_pipeline: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "aws_cli_pipeline",
		Description: "Execute an AWS CLI command, optionally piped into basic Unix utilities " +
			"(grep, jq, sort, ...). Commands are security-validated before execution; " +
			"destructive operations are blocked. Output is formatted for readability.",
		InputSchema: executeSchema,
	}, s.Execute)

	return nil
}

// Help handles the aws_cli_help tool call. Help retrieval is best-effort:
// every failure mode is folded into the help text.
func (s *Server) Help(ctx context.Context, req *mcp.CallToolRequest, input HelpInput) (*mcp.CallToolResult, any, error) {
	s.logger.Info("help requested", "service", input.Service, "command", input.Command)

	result := s.exec.GetCommandHelp(ctx, input.Service, input.Command)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: result.HelpText}},
	}, nil, nil
}

// Execute handles the aws_cli_pipeline tool call. Validation failures and
// child-process failures become IsError results with the taxonomy's message
// text; only engine faults propagate as SDK errors.
func (s *Server) Execute(ctx context.Context, req *mcp.CallToolRequest, input ExecuteInput) (*mcp.CallToolResult, any, error) {
	s.logger.Info("execution requested", "command", input.Command)

	timeout := time.Duration(input.Timeout) * time.Second
	result, err := s.exec.Execute(ctx, input.Command, timeout)
	if err != nil {
		var verr *security.ValidationError
		if errors.As(err, &verr) {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "Command validation error: " + verr.Message}},
				IsError: true,
			}, nil, nil
		}
		return nil, nil, fmt.Errorf("execution engine error: %w", err)
	}

	if result.Status != executor.StatusSuccess {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: result.Output}},
			IsError: true,
		}, nil, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: format.Format(result.Output, format.HintNone)}},
	}, nil, nil
}
