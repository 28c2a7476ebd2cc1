package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/mermaidflow/internal/app"
	"github.com/dshills/mermaidflow/internal/render"
	"github.com/dshills/mermaidflow/internal/store"
)

var checkCmd = &cobra.Command{
	Use:   "check <file|->",
	Short: "Check a diagram for syntax errors",
	Long: `Renders the diagram and reports whether it is valid. Exits non-zero
with the renderer's message when the diagram has a syntax error.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		markup, err := readMarkup(cmd, args[0])
		if err != nil {
			return err
		}

		r := app.NewRenderer(cfg.Render, logger)
		if _, err := r.Render(commandContext(cmd), markup); err != nil {
			if rerr, ok := render.AsError(err); ok {
				return fmt.Errorf("syntax error: %s", rerr.Message)
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%s)\n", args[0], store.DetectType(markup))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
