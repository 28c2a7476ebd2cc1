package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/mermaidflow/internal/app"
	"github.com/dshills/mermaidflow/internal/export"
)

var (
	exportFormat     string
	exportDir        string
	exportName       string
	exportBackground string
)

var exportCmd = &cobra.Command{
	Use:   "export <file|->",
	Short: "Export a diagram to svg, png, pdf, mmd or md",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		markup, err := readMarkup(cmd, args[0])
		if err != nil {
			return err
		}
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}

		bg := cfg.Export.Background
		if cmd.Flags().Changed("background") {
			bg = exportBackground
		}
		name := exportName
		if name == "" {
			name = baseName(args[0])
		}
		dir := exportDir
		if dir == "" {
			dir = cfg.Export.Dir
		}

		ex := export.New(app.NewRenderer(cfg.Render, logger), logger.Named("export"))
		f, err := ex.Export(commandContext(cmd), markup, export.Options{
			Format:     format,
			Name:       name,
			Background: bg,
		})
		if err != nil {
			return err
		}

		path, err := export.WriteFile(dir, f)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "svg", "Output format: svg, png, pdf, mmd or md")
	exportCmd.Flags().StringVarP(&exportDir, "out", "o", "", "Output directory (overrides export.dir)")
	exportCmd.Flags().StringVarP(&exportName, "name", "n", "", "Base file name (defaults to the input name)")
	exportCmd.Flags().StringVar(&exportBackground, "background", "", "SVG background color; empty for transparent")
	rootCmd.AddCommand(exportCmd)
}
