package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/mermaidflow/internal/app"
	"github.com/dshills/mermaidflow/internal/tui"
)

var editNoSave bool

var editCmd = &cobra.Command{
	Use:   "edit [file]",
	Short: "Edit a diagram in the terminal",
	Long: `Opens the terminal editor. With a file argument the diagram is
loaded from the file and written back on exit unless --no-save is set.
Without one the configured seed diagram is used.

Logs go to --log-file, or are discarded, while the editor is open.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var path, seed string
		if len(args) == 1 {
			path = args[0]
			data, err := os.ReadFile(path)
			switch {
			case err == nil:
				seed = string(data)
			case errors.Is(err, os.ErrNotExist):
				// New file.
			default:
				return err
			}
		}

		log := logger
		if logFile == "" {
			log = zap.NewNop()
		}

		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg, app.Options{Logger: log, Level: level})
		if err != nil {
			return err
		}
		defer func() { _ = a.Shutdown() }()

		c, err := a.NewSession(seed)
		if err != nil {
			return err
		}
		if err := tui.Run(ctx, c, a.Bus()); err != nil {
			return err
		}

		if path == "" || editNoSave {
			return nil
		}
		if err := os.WriteFile(path, []byte(c.Text()), 0o644); err != nil {
			return fmt.Errorf("saving %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", path)
		return nil
	},
}

func init() {
	editCmd.Flags().BoolVar(&editNoSave, "no-save", false, "Do not write the diagram back to the file on exit")
	rootCmd.AddCommand(editCmd)
}
