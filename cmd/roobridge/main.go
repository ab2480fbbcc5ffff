// roobridge: an MCP server that manages Roo coding rules.
//
// It keeps rules in the .roo rule tree and a rule database, and relays
// gateway actions between the host and an OpenAI-compatible rule management
// model.
//
// Usage:
//
//	roobridge serve      # Start MCP server (stdio transport)
//	roobridge version    # Print the version
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/HendryAvila/roobridge/internal/config"
	"github.com/HendryAvila/roobridge/internal/logging"
	rbserver "github.com/HendryAvila/roobridge/internal/server"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		workspace  string
	)

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, workspace)
		},
	}

	cmd := &cobra.Command{
		Use:   "roobridge",
		Short: "MCP server for Roo coding rules",
		Long: `roobridge manages Roo coding rules for MCP hosts.

It provides:
- Rule tools over the .roo rule tree (global, workspace and mode scopes)
- A rule database with level-based listing
- A gateway that runs actions requested by a rule management model`,
		SilenceUsage: true,
		RunE:         serve.RunE,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace root (default: current directory)")

	cmd.AddCommand(serve)
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("roobridge v%s\n", rbserver.Version)
		},
	})

	return cmd
}

func run(configPath, workspace string) error {
	if workspace != "" {
		abs, err := filepath.Abs(workspace)
		if err != nil {
			return fmt.Errorf("resolving workspace: %w", err)
		}
		if err := os.Setenv("ROOBRIDGE_WORKSPACE", abs); err != nil {
			return fmt.Errorf("setting workspace: %w", err)
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	s, cleanup, err := rbserver.New(cfg, afero.NewOsFs(), logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	logger.Info("serving on stdio", zap.String("version", rbserver.Version))
	return server.ServeStdio(s)
}
