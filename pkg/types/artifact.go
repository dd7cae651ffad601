// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Format identifies an output artifact format.
type Format string

const (
	FormatDOCX Format = "docx"
	FormatPDF  Format = "pdf"
)

// Ext returns the file extension for the format, including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// Artifact describes a file produced by one pipeline run.
type Artifact struct {
	// Format is docx or pdf.
	Format Format `json:"format" yaml:"format"`

	// Path is the artifact path as written (relative to the working directory
	// unless configured otherwise).
	Path string `json:"path" yaml:"path"`

	// Size is the artifact size in bytes.
	Size int64 `json:"size" yaml:"size"`

	// SHA256 is the hex digest of the artifact bytes.
	SHA256 string `json:"sha256" yaml:"sha256"`

	// Images is the number of images embedded in the artifact.
	Images int `json:"images" yaml:"images"`

	// Pages is the PDF page count. Zero for DOCX.
	Pages int `json:"pages,omitempty" yaml:"pages,omitempty"`
}

// ExportRecord is an Artifact together with the source it was produced from,
// as stored in the export ledger.
type ExportRecord struct {
	Artifact `yaml:",inline"`

	// ID is the ledger row identifier.
	ID int64 `json:"id" yaml:"id"`

	// Source is the Markdown path the artifact was built from.
	Source string `json:"source" yaml:"source"`

	// SourceSHA256 is the hex digest of the source bytes.
	SourceSHA256 string `json:"source_sha256" yaml:"source_sha256"`

	// CreatedAt is when the artifact was written.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}
