// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the readme-export CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/readme-export/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds tokens loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// rootCmd is the base command for the readme-export CLI.
var rootCmd = &cobra.Command{
	Use:   "readme-export",
	Short: "Export a README to DOCX and PDF",
	Long: `readme-export converts a Markdown README into a Word document and a PDF,
embedding the images it references from the assets/ folder.

With no configuration it reads README.md from the working directory and
writes wing-public-api.docx and wing-public-api.pdf next to it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(secrets.DefaultDir, os.Stderr)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./readme-export.yaml or ~/.config/readme-export/readme-export.yaml)")
	pf.String("source", "", "Markdown file to export (default README.md)")
	pf.StringP("output", "o", "", "output base name without extension (default wing-public-api)")
	pf.String("assets-dir", "", "image folder named in the summary (default assets)")
	pf.Bool("remote-images", false, "fetch http(s) image references")
	pf.Duration("timeout", 0, "HTTP timeout for remote images (default 30s)")
	pf.String("page-size", "", "page size: A4, Letter, Legal, A3 or A5 (default A4)")
	pf.String("backend", "", "DOCX backend: native or pandoc (default native)")
	pf.String("pandoc-image", "", "container image for the pandoc backend (default pandoc/core:latest)")
	pf.Int("toc-level", 0, "deepest heading level in the PDF outline (default 2)")
	pf.String("ledger", "", "SQLite file recording produced artifacts (disabled when empty)")

	for key, flag := range map[string]string{
		"source":            "source",
		"output":            "output",
		"assets_dir":        "assets-dir",
		"remote_images":     "remote-images",
		"http.timeout":      "timeout",
		"docx.page_size":    "page-size",
		"pdf.page_size":     "page-size",
		"docx.backend":      "backend",
		"docx.pandoc_image": "pandoc-image",
		"pdf.toc_level":     "toc-level",
		"ledger.path":       "ledger",
	} {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}
	setDefaults(viper.GetViper())
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("readme-export")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "readme-export"))
		}
	}

	viper.SetEnvPrefix("README_EXPORT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
