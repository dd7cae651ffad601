// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Defaults used when nothing is configured.
const (
	DefaultSource      = "README.md"
	DefaultOutput      = "wing-public-api"
	DefaultAssetsDir   = "assets"
	DefaultTOCLevel    = 2
	DefaultPageSize    = "A4"
	DefaultFontSize    = 11
	DefaultPandocImage = "pandoc/core:latest"
	DefaultHTTPTimeout = 30 * time.Second
)

// HTTPConfig holds settings for fetching remote images.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "readme-export/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// Token is sent as a bearer token to GitHub hosts. Loaded from the
	// github-token secret, never from the config file.
	Token string `json:"-" yaml:"-"`
}

// DocxBackend identifies the Markdown-to-DOCX converter.
type DocxBackend string

const (
	BackendNative DocxBackend = "native"
	BackendPandoc DocxBackend = "pandoc"
)

// DocxConfig holds settings for the DOCX pipeline.
type DocxConfig struct {
	// Backend selects the converter: native or pandoc.
	Backend DocxBackend `json:"backend" yaml:"backend"`

	// PandocImage is the container image used by the pandoc backend.
	PandocImage string `json:"pandoc_image" yaml:"pandoc_image"`

	// PageSize is the native backend page size (A4, Letter, Legal, A3, A5).
	PageSize string `json:"page_size" yaml:"page_size"`
}

// FontConfig names TrueType fonts for PDF output. Empty fields keep the
// embedded Go fonts.
type FontConfig struct {
	Regular string `json:"regular" yaml:"regular"`
	Bold    string `json:"bold" yaml:"bold"`
	Italic  string `json:"italic" yaml:"italic"`
	Mono    string `json:"mono" yaml:"mono"`
}

// PDFConfig holds settings for the PDF pipeline.
type PDFConfig struct {
	// TOCLevel is the deepest heading level added to the PDF outline.
	TOCLevel int `json:"toc_level" yaml:"toc_level"`

	// PageSize is a gofpdf page size name (A4, Letter, Legal, A3, A5).
	PageSize string `json:"page_size" yaml:"page_size"`

	// FontSize is the body font size in points.
	FontSize float64 `json:"font_size" yaml:"font_size"`

	// PageNumbers adds a centered page number footer.
	PageNumbers bool `json:"page_numbers" yaml:"page_numbers"`

	Fonts FontConfig `json:"fonts" yaml:"fonts"`
}

// ExportConfig groups the settings shared by both pipelines.
type ExportConfig struct {
	// Source is the Markdown document to convert.
	Source string `json:"source" yaml:"source"`

	// Output is the artifact base name; extensions are appended per format.
	Output string `json:"output" yaml:"output"`

	// AssetsDir names the image folder in console messages.
	AssetsDir string `json:"assets_dir" yaml:"assets_dir"`

	// RemoteImages enables fetching http(s) image references.
	RemoteImages bool `json:"remote_images" yaml:"remote_images"`

	HTTP HTTPConfig `json:"http" yaml:"http"`
	Docx DocxConfig `json:"docx" yaml:"docx"`
	PDF  PDFConfig  `json:"pdf" yaml:"pdf"`

	// LedgerPath is the SQLite file recording produced artifacts. Empty
	// disables the ledger.
	LedgerPath string `json:"ledger_path" yaml:"ledger_path"`
}

// DefaultExportConfig returns the configuration used when nothing is set.
func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		Source:    DefaultSource,
		Output:    DefaultOutput,
		AssetsDir: DefaultAssetsDir,
		HTTP: HTTPConfig{
			Timeout: DefaultHTTPTimeout,
		},
		Docx: DocxConfig{
			Backend:     BackendNative,
			PandocImage: DefaultPandocImage,
			PageSize:    DefaultPageSize,
		},
		PDF: PDFConfig{
			TOCLevel:    DefaultTOCLevel,
			PageSize:    DefaultPageSize,
			FontSize:    DefaultFontSize,
			PageNumbers: true,
		},
	}
}
