// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/readme-export/internal/export"
	"github.com/pdiddy/readme-export/internal/ledger"
)

var docxCmd = &cobra.Command{
	Use:   "docx",
	Short: "Export the README to DOCX",
	Long: `Docx writes the source to a working file <output>.md, converts it to
<output>.docx and removes the working file. The native backend needs nothing
installed; the pandoc backend runs pandoc in a docker or podman container.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.Context(), func(ctx context.Context, e *export.Exporter) error {
			_, err := e.ExportDOCX(ctx)
			return err
		})
	},
}

var pdfCmd = &cobra.Command{
	Use:   "pdf",
	Short: "Export the README to PDF",
	Long: `Pdf renders the source into <output>.pdf with an outline built from
headings down to --toc-level (default 2).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.Context(), func(ctx context.Context, e *export.Exporter) error {
			_, err := e.ExportPDF(ctx)
			return err
		})
	},
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Export the README to DOCX, then PDF",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.Context(), func(ctx context.Context, e *export.Exporter) error {
			if _, err := e.ExportDOCX(ctx); err != nil {
				return err
			}
			_, err := e.ExportPDF(ctx)
			return err
		})
	},
}

// runExport builds an Exporter from the current configuration, opening the
// ledger when one is configured, and passes it to run.
func runExport(ctx context.Context, run func(context.Context, *export.Exporter) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := exportConfig(viper.GetViper(), loadedSecrets)
	e := &export.Exporter{Config: cfg, Stdout: os.Stdout, Stderr: os.Stderr}

	if cfg.LedgerPath != "" {
		l, err := ledger.Open(cfg.LedgerPath)
		if err != nil {
			return err
		}
		defer l.Close()
		e.Ledger = l
	}
	return run(ctx, e)
}

func init() {
	rootCmd.AddCommand(docxCmd, pdfCmd, allCmd)
}
