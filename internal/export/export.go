// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export runs the DOCX and PDF pipelines: load the source, convert,
// write the artifact, report.
package export

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pdiddy/readme-export/internal/assets"
	"github.com/pdiddy/readme-export/internal/docx"
	"github.com/pdiddy/readme-export/internal/ledger"
	"github.com/pdiddy/readme-export/internal/pdf"
	"github.com/pdiddy/readme-export/internal/source"
	"github.com/pdiddy/readme-export/pkg/types"
)

// ErrUnknownBackend is returned for a docx.backend value other than native
// or pandoc.
var ErrUnknownBackend = errors.New("unknown docx backend")

// DocxConverter turns a Markdown file on disk into a .docx file.
type DocxConverter interface {
	Convert(ctx context.Context, mdPath, docxPath string) error
}

// Exporter runs the pipelines for one configuration.
type Exporter struct {
	Config types.ExportConfig

	// Stdout receives the success lines; Stderr receives warnings.
	Stdout io.Writer
	Stderr io.Writer

	// Docx overrides the converter selected by Config.Docx.Backend.
	Docx DocxConverter

	// Ledger records produced artifacts when set.
	Ledger *ledger.Ledger
}

func (e *Exporter) stdout() io.Writer {
	if e.Stdout == nil {
		return io.Discard
	}
	return e.Stdout
}

func (e *Exporter) stderr() io.Writer {
	if e.Stderr == nil {
		return io.Discard
	}
	return e.Stderr
}

// assetOptions builds image resolution settings rooted at root.
func (e *Exporter) assetOptions(root string) assets.Options {
	cfg := e.Config
	return assets.Options{
		Root:      root,
		Remote:    cfg.RemoteImages,
		Client:    &http.Client{Timeout: cfg.HTTP.Timeout},
		UserAgent: cfg.HTTP.UserAgent,
		Token:     cfg.HTTP.Token,
	}
}

// docxConverter returns the configured converter. Relative images resolve
// against root, the directory of the source document.
func (e *Exporter) docxConverter(root string) (DocxConverter, error) {
	if e.Docx != nil {
		return e.Docx, nil
	}
	switch backend := e.Config.Docx.Backend; backend {
	case "", types.BackendNative:
		return &docx.Converter{
			Resolver: assets.NewResolver(e.assetOptions(root)),
			PageSize: e.Config.Docx.PageSize,
			Log:      e.stderr(),
		}, nil
	case types.BackendPandoc:
		return &PandocConverter{
			Image:    e.Config.Docx.PandocImage,
			Progress: e.stderr(),
		}, nil
	default:
		return nil, fmt.Errorf("%w %q (want %s or %s)", ErrUnknownBackend, backend, types.BackendNative, types.BackendPandoc)
	}
}

// ExportDOCX writes <output>.docx. The source is copied to the working file
// <output>.md, converted, and the working file is removed afterwards unless
// it is the source itself.
func (e *Exporter) ExportDOCX(ctx context.Context) (art types.Artifact, err error) {
	cfg := e.Config
	doc, err := source.Load(cfg.Source)
	if err != nil {
		return art, err
	}
	conv, err := e.docxConverter(doc.Dir())
	if err != nil {
		return art, err
	}

	working := cfg.Output + ".md"
	out := cfg.Output + types.FormatDOCX.Ext()

	keep, err := samePath(working, doc.Path)
	if err != nil {
		return art, err
	}
	if !keep {
		if err := os.WriteFile(working, doc.Raw, 0o644); err != nil {
			return art, fmt.Errorf("writing %s: %w", working, err)
		}
		// Converters stamp the file time into the package.
		if err := os.Chtimes(working, doc.ModTime, doc.ModTime); err != nil {
			return art, fmt.Errorf("writing %s: %w", working, err)
		}
	}
	defer func() {
		if rmErr := removeWorking(working, keep); rmErr != nil {
			err = errors.Join(err, rmErr)
		}
	}()

	if err := conv.Convert(ctx, working, out); err != nil {
		return art, err
	}

	art, err = describe(types.FormatDOCX, out)
	if err != nil {
		return art, err
	}
	if art.Images, err = docx.CountMedia(out); err != nil {
		return art, err
	}

	fmt.Fprintf(e.stdout(), "✓ DOCX generated successfully: %s\n", out)
	fmt.Fprintf(e.stdout(), "✓ All images from %s/ folder have been embedded\n", cfg.AssetsDir)

	return art, e.record(ctx, doc, art)
}

// ExportPDF writes <output>.pdf with an outline of headings down to
// Config.PDF.TOCLevel.
func (e *Exporter) ExportPDF(ctx context.Context) (types.Artifact, error) {
	cfg := e.Config
	doc, err := source.Load(cfg.Source)
	if err != nil {
		return types.Artifact{}, err
	}
	out := cfg.Output + types.FormatPDF.Ext()

	d := pdf.New(pdf.Options{
		TOCLevel:    cfg.PDF.TOCLevel,
		PageSize:    cfg.PDF.PageSize,
		FontSize:    cfg.PDF.FontSize,
		Fonts:       cfg.PDF.Fonts,
		PageNumbers: cfg.PDF.PageNumbers,
		Meta: pdf.Meta{
			Title:    doc.Meta.Title,
			Author:   doc.Meta.Creator(),
			Subject:  doc.Meta.Description,
			Keywords: doc.Meta.Keywords,
			Created:  doc.ModTime,
		},
		Assets: e.assetOptions(doc.Dir()),
		Log:    e.stderr(),
	})
	d.AddSection(pdf.Section{Text: doc.Body, Root: doc.Dir(), TOC: true})

	stats, err := d.Save(ctx, out)
	if err != nil {
		return types.Artifact{}, err
	}

	art, err := describe(types.FormatPDF, out)
	if err != nil {
		return art, err
	}
	art.Images = stats.Images
	art.Pages = stats.Pages

	fmt.Fprintf(e.stdout(), "✓ PDF generated successfully: %s\n", out)
	fmt.Fprintf(e.stdout(), "✓ All images from %s/ folder have been embedded\n", cfg.AssetsDir)

	return art, e.record(ctx, doc, art)
}

func (e *Exporter) record(ctx context.Context, doc *source.Document, art types.Artifact) error {
	if e.Ledger == nil {
		return nil
	}
	_, unchanged, err := e.Ledger.Record(ctx, types.ExportRecord{
		Artifact:     art,
		Source:       doc.Path,
		SourceSHA256: doc.SHA256(),
	})
	if err != nil {
		return err
	}
	if unchanged {
		fmt.Fprintf(e.stderr(), "ledger: %s unchanged since last export\n", art.Path)
	}
	return nil
}

// describe fills the size and digest of the artifact at path.
func describe(format types.Format, path string) (types.Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Artifact{}, fmt.Errorf("reading %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return types.Artifact{
		Format: format,
		Path:   path,
		Size:   int64(len(data)),
		SHA256: hex.EncodeToString(sum[:]),
	}, nil
}

// samePath reports whether a and b name the same file after cleaning both
// to absolute paths.
func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, fmt.Errorf("resolving %s: %w", a, err)
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, fmt.Errorf("resolving %s: %w", b, err)
	}
	return absA == absB, nil
}

// removeWorking deletes the working file if it exists. The source is never
// removed.
func removeWorking(path string, isSource bool) error {
	if isSource {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing working file %s: %w", path, err)
	}
	return nil
}
