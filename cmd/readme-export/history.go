// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/readme-export/internal/ledger"
	"github.com/pdiddy/readme-export/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List artifacts recorded in the export ledger",
	Long: `History reads the ledger configured with --ledger (or ledger.path) and
lists produced artifacts, newest first. Use --yaml or --json for machine
readable output.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := viper.GetString("ledger.path")
	if path == "" {
		return fmt.Errorf("no ledger configured: set --ledger or ledger.path")
	}
	format, _ := cmd.Flags().GetString("format")
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")
	asYAML, _ := cmd.Flags().GetBool("yaml")

	opts := ledger.HistoryOptions{Limit: limit}
	switch f := types.Format(strings.ToLower(format)); f {
	case "":
	case types.FormatDOCX, types.FormatPDF:
		opts.Format = f
	default:
		return fmt.Errorf("unsupported format %q: use docx or pdf", format)
	}

	l, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer l.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	switch {
	case asJSON:
		return l.ExportJSON(ctx, os.Stdout, opts)
	case asYAML:
		return l.ExportYAML(ctx, os.Stdout, opts)
	}

	recs, err := l.History(ctx, opts)
	if err != nil {
		return err
	}
	printHistory(os.Stdout, recs)
	return nil
}

func printHistory(w io.Writer, recs []types.ExportRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No exports recorded.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-20s  %-4s  %-30s  %10s  %6s  %5s  %s\n",
		"ID", "Created", "Fmt", "Artifact", "Size", "Images", "Pages", "SHA256")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, r := range recs {
		artifact := r.Path
		if len(artifact) > 30 {
			artifact = "..." + artifact[len(artifact)-27:]
		}
		fmt.Fprintf(w, "%-4d  %-20s  %-4s  %-30s  %10d  %6d  %5d  %s\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Format, artifact,
			r.Size, r.Images, r.Pages, r.SHA256[:min(12, len(r.SHA256))])
	}
	fmt.Fprintf(w, "\n%d exports\n", len(recs))
}

func init() {
	historyCmd.Flags().String("format", "", "filter by format: docx or pdf")
	historyCmd.Flags().Int("limit", 0, "maximum records (0 = 20, negative = all)")
	historyCmd.Flags().Bool("json", false, "output records as JSON")
	historyCmd.Flags().Bool("yaml", false, "output records as YAML")
	historyCmd.MarkFlagsMutuallyExclusive("json", "yaml")

	rootCmd.AddCommand(historyCmd)
}
