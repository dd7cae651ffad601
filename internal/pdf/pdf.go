// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdf renders Markdown sections into a PDF document with an outline
// built from the section headings.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/pdiddy/readme-export/internal/assets"
	"github.com/pdiddy/readme-export/internal/markdown"
	"github.com/pdiddy/readme-export/pkg/types"
)

// Defaults applied by New for zero option values.
const (
	DefaultMargin   = 20.0
	DefaultFontSize = 11.0
)

var pageSizes = map[string]string{
	"a3":     "A3",
	"a4":     "A4",
	"a5":     "A5",
	"letter": "Letter",
	"legal":  "Legal",
}

// Meta is written to the PDF information dictionary.
type Meta struct {
	Title    string
	Author   string
	Subject  string
	Keywords []string

	// Created pins the creation date. Repeat renders with the same value
	// produce identical bytes.
	Created time.Time
}

// Options configures a Document.
type Options struct {
	// TOCLevel is the deepest heading level added to the outline. Zero
	// disables the outline.
	TOCLevel int

	// PageSize is A3, A4, A5, Letter or Legal.
	PageSize string

	// Margin is the page margin in millimetres.
	Margin float64

	// FontSize is the body font size in points.
	FontSize float64

	Fonts types.FontConfig

	// PageNumbers adds a "n / total" footer to every page.
	PageNumbers bool

	Meta Meta

	// Assets configures image resolution. Root is replaced per section.
	Assets assets.Options

	// Log receives warnings about images replaced by their alt text.
	Log io.Writer
}

// Section is one Markdown text added to the document.
type Section struct {
	// Text is the Markdown body.
	Text []byte

	// Root is the directory relative image references resolve against.
	Root string

	// TOC adds the section's headings to the outline.
	TOC bool
}

// Stats summarizes a rendered document.
type Stats struct {
	Pages  int
	Images int

	// Outline lists the headings that received bookmarks.
	Outline []markdown.Heading
}

// Document is an in-memory PDF model built from sections.
type Document struct {
	opts     Options
	sections []Section
}

// New returns an empty document. Unknown page sizes fall back to A4.
func New(opts Options) *Document {
	if opts.Margin <= 0 {
		opts.Margin = DefaultMargin
	}
	if opts.FontSize <= 0 {
		opts.FontSize = DefaultFontSize
	}
	size, ok := pageSizes[strings.ToLower(opts.PageSize)]
	if !ok {
		size = "A4"
	}
	opts.PageSize = size
	if opts.Log == nil {
		opts.Log = io.Discard
	}
	return &Document{opts: opts}
}

// AddSection appends a section. Sections start on a new page.
func (d *Document) AddSection(s Section) {
	d.sections = append(d.sections, s)
}

// Write renders the document to w.
func (d *Document) Write(ctx context.Context, w io.Writer) (Stats, error) {
	pdf := gofpdf.New("P", "mm", d.opts.PageSize, "")
	pdf.SetCatalogSort(true)
	pdf.SetMargins(d.opts.Margin, d.opts.Margin, d.opts.Margin)
	pdf.SetAutoPageBreak(true, d.opts.Margin)
	pdf.SetCreator("readme-export", true)
	m := d.opts.Meta
	if m.Title != "" {
		pdf.SetTitle(m.Title, true)
	}
	if m.Author != "" {
		pdf.SetAuthor(m.Author, true)
	}
	if m.Subject != "" {
		pdf.SetSubject(m.Subject, true)
	}
	if len(m.Keywords) > 0 {
		pdf.SetKeywords(strings.Join(m.Keywords, ", "), true)
	}
	if !m.Created.IsZero() {
		pdf.SetCreationDate(m.Created)
	}

	fonts, err := setupFonts(pdf, d.opts.Fonts)
	if err != nil {
		return Stats{}, fmt.Errorf("pdf render: %w", err)
	}
	if d.opts.PageNumbers {
		pdf.AliasNbPages("")
		pdf.SetFooterFunc(func() {
			pdf.SetY(-d.opts.Margin / 1.5)
			pdf.SetFont(fonts.body.family, "I", d.opts.FontSize-2)
			pdf.SetTextColor(120, 120, 120)
			pdf.CellFormat(0, 8, fmt.Sprintf("%d / {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
			pdf.SetTextColor(0, 0, 0)
		})
	}

	r := newRenderer(ctx, pdf, d.opts, fonts)
	for _, sec := range d.sections {
		if err := r.section(sec); err != nil {
			return Stats{}, fmt.Errorf("pdf render: %w", err)
		}
	}
	if pdf.PageNo() == 0 {
		pdf.AddPage()
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Stats{}, fmt.Errorf("pdf render: output: %w", err)
	}
	out, err := fixToUnicode(buf.Bytes())
	if err != nil {
		return Stats{}, fmt.Errorf("pdf render: text mapping: %w", err)
	}
	if _, err := w.Write(out); err != nil {
		return Stats{}, fmt.Errorf("pdf render: output: %w", err)
	}
	r.stats.Pages = pdf.PageNo()
	return r.stats, nil
}

// Save renders the document and writes it to path. Nothing is written when
// rendering fails.
func (d *Document) Save(ctx context.Context, path string) (Stats, error) {
	var buf bytes.Buffer
	stats, err := d.Write(ctx, &buf)
	if err != nil {
		return Stats{}, err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return Stats{}, fmt.Errorf("writing %s: %w", path, err)
	}
	return stats, nil
}
