// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/viper"

	"github.com/pdiddy/readme-export/internal/secrets"
	"github.com/pdiddy/readme-export/pkg/types"
)

// setDefaults registers the default value of every configuration key so
// that environment variables are honoured for keys without flags.
func setDefaults(v *viper.Viper) {
	d := types.DefaultExportConfig()
	v.SetDefault("source", d.Source)
	v.SetDefault("output", d.Output)
	v.SetDefault("assets_dir", d.AssetsDir)
	v.SetDefault("remote_images", d.RemoteImages)
	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.user_agent", "readme-export/"+version)
	v.SetDefault("docx.backend", string(d.Docx.Backend))
	v.SetDefault("docx.pandoc_image", d.Docx.PandocImage)
	v.SetDefault("docx.page_size", d.Docx.PageSize)
	v.SetDefault("pdf.toc_level", d.PDF.TOCLevel)
	v.SetDefault("pdf.page_size", d.PDF.PageSize)
	v.SetDefault("pdf.font_size", d.PDF.FontSize)
	v.SetDefault("pdf.page_numbers", d.PDF.PageNumbers)
	v.SetDefault("pdf.fonts.regular", "")
	v.SetDefault("pdf.fonts.bold", "")
	v.SetDefault("pdf.fonts.italic", "")
	v.SetDefault("pdf.fonts.mono", "")
	v.SetDefault("ledger.path", d.LedgerPath)
}

// exportConfig reads the export configuration from v. Zero or empty values
// fall back to the defaults.
func exportConfig(v *viper.Viper, s secrets.Secrets) types.ExportConfig {
	cfg := types.DefaultExportConfig()
	if x := v.GetString("source"); x != "" {
		cfg.Source = x
	}
	if x := v.GetString("output"); x != "" {
		cfg.Output = x
	}
	if x := v.GetString("assets_dir"); x != "" {
		cfg.AssetsDir = x
	}
	cfg.RemoteImages = v.GetBool("remote_images")
	if x := v.GetDuration("http.timeout"); x > 0 {
		cfg.HTTP.Timeout = x
	}
	cfg.HTTP.UserAgent = v.GetString("http.user_agent")
	cfg.HTTP.Token = s.Get(secrets.GitHubToken)

	if x := v.GetString("docx.backend"); x != "" {
		cfg.Docx.Backend = types.DocxBackend(x)
	}
	if x := v.GetString("docx.pandoc_image"); x != "" {
		cfg.Docx.PandocImage = x
	}
	if x := v.GetString("docx.page_size"); x != "" {
		cfg.Docx.PageSize = x
	}

	if v.IsSet("pdf.toc_level") {
		cfg.PDF.TOCLevel = v.GetInt("pdf.toc_level")
	}
	if x := v.GetString("pdf.page_size"); x != "" {
		cfg.PDF.PageSize = x
	}
	if x := v.GetFloat64("pdf.font_size"); x > 0 {
		cfg.PDF.FontSize = x
	}
	if v.IsSet("pdf.page_numbers") {
		cfg.PDF.PageNumbers = v.GetBool("pdf.page_numbers")
	}
	cfg.PDF.Fonts = types.FontConfig{
		Regular: v.GetString("pdf.fonts.regular"),
		Bold:    v.GetString("pdf.fonts.bold"),
		Italic:  v.GetString("pdf.fonts.italic"),
		Mono:    v.GetString("pdf.fonts.mono"),
	}

	cfg.LedgerPath = v.GetString("ledger.path")
	return cfg
}
