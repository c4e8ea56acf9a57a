// Package cmd wires the awsgate CLI. The root command serves MCP over stdio
// (or HTTP with --http); subcommands cover version info and a local
// environment check.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	httpAddr string
	debugLog bool
)

var rootCmd = &cobra.Command{
	Use:   "awsgate",
	Short: "MCP gateway for validated AWS CLI execution",
	Long: `awsgate is a Model Context Protocol server that lets an AI assistant
retrieve AWS CLI documentation and execute AWS CLI commands. Every command
is validated against a security policy before it runs, executed without a
shell under timeout and rate limits, and its output is bounded and
formatted.

Without flags the server speaks MCP over stdio.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "enable debug logging")
	rootCmd.Flags().StringVar(&httpAddr, "http", "", "serve MCP over HTTP on this address instead of stdio (e.g. 127.0.0.1:8000)")
}
