// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package docx writes Markdown as a WordprocessingML (.docx) package with
// images embedded as media parts. Documents are built with godocx on top of
// its bundled template.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gomutex/godocx"
	ooxml "github.com/gomutex/godocx/docx"

	"github.com/pdiddy/readme-export/internal/assets"
	"github.com/pdiddy/readme-export/internal/markdown"
	"github.com/pdiddy/readme-export/internal/source"
)

// Options configures Render.
type Options struct {
	// Resolver loads image references. When nil a local-only resolver rooted
	// at Root is used.
	Resolver *assets.Resolver

	// Root is the directory relative image paths resolve against.
	Root string

	// PageSize is A3, A4, A5, Letter or Legal. Defaults to A4.
	PageSize string

	// Properties is written to docProps/core.xml.
	Properties Properties

	// Log receives warnings about images replaced by their alt text.
	Log io.Writer
}

func (o Options) resolver() *assets.Resolver {
	if o.Resolver != nil {
		return o.Resolver
	}
	return assets.NewResolver(assets.Options{Root: o.Root})
}

// Properties is the document metadata written to docProps/core.xml.
type Properties struct {
	Title       string
	Creator     string
	Description string
	Keywords    []string
	// Created is written as both created and modified time when non-zero.
	Created time.Time
}

const (
	partCore = "docProps/core.xml"
	mediaDir = "word/media/"
)

type w3cdtf struct {
	Type  string `xml:"xsi:type,attr"`
	Value string `xml:",chardata"`
}

type coreProperties struct {
	XMLName     xml.Name `xml:"cp:coreProperties"`
	NSCp        string   `xml:"xmlns:cp,attr"`
	NSDc        string   `xml:"xmlns:dc,attr"`
	NSDcterms   string   `xml:"xmlns:dcterms,attr"`
	NSXsi       string   `xml:"xmlns:xsi,attr"`
	Title       string   `xml:"dc:title,omitempty"`
	Creator     string   `xml:"dc:creator,omitempty"`
	Keywords    string   `xml:"cp:keywords,omitempty"`
	Description string   `xml:"dc:description,omitempty"`
	Created     *w3cdtf  `xml:"dcterms:created,omitempty"`
	Modified    *w3cdtf  `xml:"dcterms:modified,omitempty"`
}

// coreXML replaces the template's core properties so the package carries the
// README metadata instead of the library defaults.
func coreXML(p Properties) ([]byte, error) {
	cp := coreProperties{
		NSCp:        "http://schemas.openxmlformats.org/package/2006/metadata/core-properties",
		NSDc:        "http://purl.org/dc/elements/1.1/",
		NSDcterms:   "http://purl.org/dc/terms/",
		NSXsi:       "http://www.w3.org/2001/XMLSchema-instance",
		Title:       p.Title,
		Creator:     p.Creator,
		Keywords:    strings.Join(p.Keywords, ", "),
		Description: p.Description,
	}
	if !p.Created.IsZero() {
		ts := p.Created.UTC().Format(time.RFC3339)
		cp.Created = &w3cdtf{Type: "dcterms:W3CDTF", Value: ts}
		cp.Modified = &w3cdtf{Type: "dcterms:W3CDTF", Value: ts}
	}
	out, err := xml.Marshal(cp)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

// Render converts the Markdown body to a .docx package written to w.
// Identical input produces identical bytes.
func Render(ctx context.Context, body []byte, opts Options, w io.Writer) (Stats, error) {
	doc, err := godocx.NewDocument()
	if err != nil {
		return Stats{}, fmt.Errorf("loading template: %w", err)
	}
	staging, err := os.MkdirTemp("", "readme-export-media-")
	if err != nil {
		return Stats{}, fmt.Errorf("staging media: %w", err)
	}
	defer os.RemoveAll(staging)

	root := markdown.Parse(body)
	r := newRenderer(ctx, doc, opts, staging)
	r.blocks(root, blockCtx{})
	if r.err != nil {
		return Stats{}, r.err
	}
	r.pageSetup()

	props := opts.Properties
	if props.Title == "" {
		props.Title = markdown.Title(root)
	}
	core, err := coreXML(props)
	if err != nil {
		return Stats{}, fmt.Errorf("core properties: %w", err)
	}
	doc.FileMap.Store(partCore, core)
	dedupeDefaults(&doc.ContentType)

	if err := doc.Write(w); err != nil {
		return Stats{}, fmt.Errorf("writing package: %w", err)
	}
	stats := r.stats
	stats.Media = int(doc.ImageCount)
	return stats, nil
}

// dedupeDefaults drops repeated extension entries; godocx adds one per
// picture and Word rejects a package that declares an extension twice.
func dedupeDefaults(ct *ooxml.ContentTypes) {
	seen := make(map[string]bool)
	kept := ct.Default[:0]
	for _, d := range ct.Default {
		ext := strings.ToLower(d.Extension)
		if seen[ext] {
			continue
		}
		seen[ext] = true
		kept = append(kept, d)
	}
	ct.Default = kept
}

// Converter converts a Markdown file on disk to a .docx file.
type Converter struct {
	// Resolver is shared across conversions so remote images are fetched once.
	Resolver *assets.Resolver
	PageSize string
	Log      io.Writer
}

// Convert reads mdPath and writes the package to docxPath. Relative images
// resolve against the directory of mdPath unless the Resolver says otherwise.
func (c *Converter) Convert(ctx context.Context, mdPath, docxPath string) error {
	doc, err := source.Load(mdPath)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	_, err = Render(ctx, doc.Body, Options{
		Resolver: c.Resolver,
		Root:     doc.Dir(),
		PageSize: c.PageSize,
		Log:      c.Log,
		Properties: Properties{
			Title:       doc.Meta.Title,
			Creator:     doc.Meta.Creator(),
			Description: doc.Meta.Description,
			Keywords:    doc.Meta.Keywords,
			Created:     doc.ModTime,
		},
	}, &buf)
	if err != nil {
		return fmt.Errorf("docx render: %w", err)
	}

	if err := os.WriteFile(docxPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", docxPath, err)
	}
	return nil
}

// CountMedia returns the number of media parts in the package at path. It
// works for packages from any producer.
func CountMedia(path string) (int, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer zr.Close()

	n := 0
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, mediaDir) && !strings.HasSuffix(f.Name, "/") {
			n++
		}
	}
	return n, nil
}
