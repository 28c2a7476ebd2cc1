package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/mermaidflow/internal/config"
	"github.com/dshills/mermaidflow/internal/logging"
)

var (
	configPath string
	logLevel   string
	logFile    string

	cfg    *config.Config
	logger *zap.Logger
	level  zap.AtomicLevel
)

var rootCmd = &cobra.Command{
	Use:   "mermaidflow",
	Short: "Edit Mermaid diagrams with live preview and AI repair",
	Long: `mermaidflow edits Mermaid diagrams with a debounced live preview,
an undo/redo history and AI-assisted syntax repair. It runs as a terminal
editor or as an HTTP API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		lc := logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
		if logFile != "" {
			lc.OutputPaths = []string{logFile}
		}
		logger, level, err = logging.Build(lc)
		return err
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (toml, yaml or json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")
}
