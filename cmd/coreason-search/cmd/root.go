// Package cmd provides the CLI commands for coreason-search.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	cserrors "github.com/CoReason-AI/coreason-search/internal/errors"
	"github.com/CoReason-AI/coreason-search/internal/logging"
	"github.com/CoReason-AI/coreason-search/pkg/version"
)

var (
	debugMode      bool
	configPath     string
	loggingCleanup func()
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coreason-search",
		Short: "Hybrid retrieval engine for biomedical literature",
		Long: `coreason-search answers queries by running dense vector, sparse
full-text, and knowledge-graph retrieval in parallel, fusing the results
with reciprocal rank fusion, reranking them, and distilling each hit into
a query-focused extract.

Two execution modes are exposed: a bounded top-k search for RAG callers
and an audited, exhaustive stream for systematic reviews.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("coreason-search version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to search_config.yaml")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(*cobra.Command, []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newCorpusCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func setupLogging(*cobra.Command, []string) error {
	cfg := logging.Config{Level: "info", WriteToStderr: true}
	if debugMode {
		cfg.Level = "debug"
	}

	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

// Execute runs the CLI, printing failures in the user-facing format
// with extra detail under --debug.
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cserrors.FormatForUser(err, debugMode))
		return err
	}
	return nil
}
