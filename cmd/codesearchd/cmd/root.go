// Package cmd wires codesearchd's cobra command tree.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/codesearch/internal/logging"
)

var debug bool

// NewRootCmd builds the codesearchd root command.
func NewRootCmd() *cobra.Command {
	var cleanup func()

	root := &cobra.Command{
		Use:   "codesearchd",
		Short: "Multi-tenant hybrid code search server",
		Long: `codesearchd indexes source trees into per-store sparse and dense
collections and serves hybrid search over a persistent streaming session
protocol.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logCfg := logging.DefaultConfig()
			if debug {
				logCfg = logging.DebugConfig()
			}
			logger, stop, err := logging.Setup(logCfg)
			if err != nil {
				return fmt.Errorf("setup logging: %w", err)
			}
			slog.SetDefault(logger)
			cleanup = stop
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if cleanup != nil {
				cleanup()
			}
			return nil
		},
	}

	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the codesearchd command tree.
func Execute() error {
	return NewRootCmd().Execute()
}
