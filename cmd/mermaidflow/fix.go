package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/mermaidflow/internal/app"
	"github.com/dshills/mermaidflow/internal/render"
	"github.com/dshills/mermaidflow/internal/repair"
)

var (
	fixWrite       bool
	fixValidateKey bool
)

var fixCmd = &cobra.Command{
	Use:   "fix <file|->",
	Short: "Repair diagram syntax with AI",
	Long: `Renders the diagram and, if it has a syntax error, asks Gemini to fix
it. The fixed markup is printed to stdout, or written back to the file with
--write. The explanation is printed to stderr. Requires ai.apiKey or
MERMAIDFLOW_GEMINI_API_KEY.

With --validate-key no file is read; the configured key is checked against
the API and the command exits non-zero if it is rejected.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if fixValidateKey {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if fixValidateKey {
			return validateKey(cmd)
		}
		markup, err := readMarkup(cmd, args[0])
		if err != nil {
			return err
		}
		if fixWrite && args[0] == "-" {
			return fmt.Errorf("--write needs a file argument")
		}
		ctx := commandContext(cmd)

		var priorError string
		r := app.NewRenderer(cfg.Render, logger)
		if _, err := r.Render(ctx, markup); err != nil {
			rerr, ok := render.AsError(err)
			if !ok {
				logger.Warn("render check failed, repairing without an error hint", zap.Error(err))
			} else {
				priorError = rerr.Message
			}
		}

		fixer, err := app.NewRepairer(ctx, cfg.AI, logger)
		if err != nil {
			return repair.Classify(err)
		}
		res, err := fixer.Repair(ctx, markup, priorError)
		if err != nil {
			return repair.Classify(err)
		}

		if res.Explanation != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), res.Explanation)
		}
		if !fixWrite {
			fmt.Fprintln(cmd.OutOrStdout(), res.FixedText)
			return nil
		}
		if err := os.WriteFile(args[0], []byte(res.FixedText), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "fixed %s\n", args[0])
		return nil
	},
}

func validateKey(cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	fixer, err := app.NewRepairer(ctx, cfg.AI, logger)
	if err != nil {
		return repair.Classify(err)
	}
	return checkKey(ctx, cmd, fixer)
}

func checkKey(ctx context.Context, cmd *cobra.Command, v repair.KeyValidator) error {
	if err := v.ValidateKey(ctx); err != nil {
		return repair.Classify(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "api key ok")
	return nil
}

func init() {
	fixCmd.Flags().BoolVar(&fixValidateKey, "validate-key", false, "Check the configured API key and exit")
	fixCmd.Flags().BoolVarP(&fixWrite, "write", "w", false, "Write the fixed diagram back to the file")
	rootCmd.AddCommand(fixCmd)
}
