// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdf

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	ledpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/readme-export/pkg/types"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: 30, G: 120, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func render(t *testing.T, opts Options, sec Section) ([]byte, Stats) {
	t.Helper()
	doc := New(opts)
	doc.AddSection(sec)
	var buf bytes.Buffer
	stats, err := doc.Write(context.Background(), &buf)
	require.NoError(t, err)
	return buf.Bytes(), stats
}

const sample = `# Wing Public API

Intro with **bold**, *italic* and ` + "`code`" + `.

## Getting Started

1. Install
2. Configure
   - nested bullet

### Details

> A quoted note.

| Name | Value |
|:-----|------:|
| a    | 1     |

` + "```sh\ncurl https://example.com\n```" + `

---

See [start](#getting-started) or [docs](https://example.com/docs).
`

func TestDocument_OutlineDepth(t *testing.T) {
	tests := []struct {
		name     string
		tocLevel int
		want     []string
	}{
		{name: "depth 2", tocLevel: 2, want: []string{"Wing Public API", "Getting Started"}},
		{name: "depth 3", tocLevel: 3, want: []string{"Wing Public API", "Getting Started", "Details"}},
		{name: "disabled", tocLevel: 0, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, stats := render(t, Options{TOCLevel: tt.tocLevel}, Section{Text: []byte(sample), TOC: true})

			var got []string
			for _, h := range stats.Outline {
				got = append(got, h.Text)
			}
			assert.Equal(t, tt.want, got)
			if len(tt.want) > 0 {
				assert.Contains(t, string(data), "/Outlines")
			} else {
				assert.NotContains(t, string(data), "/Outlines")
			}
		})
	}
}

func TestDocument_Links(t *testing.T) {
	data, _ := render(t, Options{TOCLevel: 2}, Section{Text: []byte(sample), TOC: true})
	assert.Contains(t, string(data), "/URI")
	assert.Contains(t, string(data), "/Dest")
}

func TestDocument_EmbedsImage(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "assets", "pic.png"), 64, 32)

	md := "# Pictures\n\n![diagram](assets/pic.png)\n\nShared: ![again](assets/pic.png)\n"
	data, stats := render(t, Options{TOCLevel: 2}, Section{Text: []byte(md), Root: root, TOC: true})

	assert.Equal(t, 2, stats.Images)
	assert.Equal(t, 1, strings.Count(string(data), "/Subtype /Image"))
}

func TestDocument_Deterministic(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "assets", "pic.png"), 8, 8)
	opts := Options{
		TOCLevel:    2,
		PageNumbers: true,
		Meta:        Meta{Title: "Wing", Created: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	sec := Section{Text: []byte(sample + "\n![p](assets/pic.png)\n"), Root: root, TOC: true}

	first, _ := render(t, opts, sec)
	second, _ := render(t, opts, sec)
	assert.Equal(t, first, second)
}

func TestDocument_UnsupportedImageUsesAlt(t *testing.T) {
	root := t.TempDir()
	svg := `<svg xmlns="http://www.w3.org/2000/svg" width="4" height="4"></svg>`
	require.NoError(t, os.WriteFile(filepath.Join(root, "logo.svg"), []byte(svg), 0o644))

	var log bytes.Buffer
	data, stats := render(t, Options{Log: &log}, Section{Text: []byte("![Logo](logo.svg)\n"), Root: root})
	assert.Equal(t, 0, stats.Images)
	assert.NotContains(t, string(data), "/Subtype /Image")
	assert.Contains(t, log.String(), "unsupported image format")
}

func TestDocument_SaveMissingImage(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.pdf")

	doc := New(Options{})
	doc.AddSection(Section{Text: []byte("![gone](assets/gone.png)\n"), Root: dir})
	_, err := doc.Save(context.Background(), out)
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "pdf render:")

	_, statErr := os.Stat(out)
	assert.ErrorIs(t, statErr, fs.ErrNotExist)
}

func TestDocument_SaveAndRead(t *testing.T) {
	var md strings.Builder
	md.WriteString("# Long Document\n\n")
	for i := 0; i < 120; i++ {
		md.WriteString("This paragraph is long enough to take a full line of text on an A4 page when rendered.\n\n")
	}

	out := filepath.Join(t.TempDir(), "long.pdf")
	doc := New(Options{TOCLevel: 2, PageNumbers: true})
	doc.AddSection(Section{Text: []byte(md.String()), TOC: true})
	stats, err := doc.Save(context.Background(), out)
	require.NoError(t, err)
	assert.Greater(t, stats.Pages, 1)

	pages, err := api.PageCountFile(out)
	require.NoError(t, err)
	assert.Equal(t, stats.Pages, pages)

	f, reader, err := ledpdf.Open(out)
	require.NoError(t, err)
	defer f.Close()
	text, err := reader.GetPlainText()
	require.NoError(t, err)
	content, err := io.ReadAll(text)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Long Document")
}

func TestDocument_EmptyHasOnePage(t *testing.T) {
	_, stats := render(t, Options{}, Section{})
	assert.Equal(t, 1, stats.Pages)
}

func TestDocument_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc := New(Options{})
	doc.AddSection(Section{Text: []byte("# Title\n\nBody.\n")})
	_, err := doc.Write(ctx, io.Discard)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDocument_MissingFont(t *testing.T) {
	doc := New(Options{Fonts: types.FontConfig{Regular: filepath.Join(t.TempDir(), "none.ttf")}})
	_, err := doc.Write(context.Background(), io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading font")
}

func TestNew_Defaults(t *testing.T) {
	doc := New(Options{PageSize: "letter"})
	assert.Equal(t, "Letter", doc.opts.PageSize)
	assert.Equal(t, DefaultMargin, doc.opts.Margin)
	assert.Equal(t, DefaultFontSize, doc.opts.FontSize)

	doc = New(Options{PageSize: "B7"})
	assert.Equal(t, "A4", doc.opts.PageSize)
}

func TestBookmarkLevelsDoNotSkip(t *testing.T) {
	doc := New(Options{TOCLevel: 3})
	doc.AddSection(Section{Text: []byte("### Deep first\n\n# Top\n\n### Deep again\n"), TOC: true})
	_, err := doc.Write(context.Background(), io.Discard)
	require.NoError(t, err)
}

func plainText(t *testing.T, path string) string {
	t.Helper()
	f, reader, err := ledpdf.Open(path)
	require.NoError(t, err)
	defer f.Close()
	text, err := reader.GetPlainText()
	require.NoError(t, err)
	content, err := io.ReadAll(text)
	require.NoError(t, err)
	return string(content)
}

func TestDocument_UTF8Text(t *testing.T) {
	out := filepath.Join(t.TempDir(), "utf8.pdf")
	doc := New(Options{TOCLevel: 2})
	doc.AddSection(Section{Text: []byte("# API → v2 ✓\n\nStatus: ✓ ready → 日本語 α≤β\n"), TOC: true})
	stats, err := doc.Save(context.Background(), out)
	require.NoError(t, err)
	require.Len(t, stats.Outline, 1)
	assert.Equal(t, "API → v2 ✓", stats.Outline[0].Text)

	text := plainText(t, out)
	for _, want := range []string{"API → v2 ✓", "→", "✓", "日本語", "α≤β"} {
		assert.Contains(t, text, want)
	}
	assert.NotContains(t, text, "API . v2 .")
}

func TestDocument_CodeAndTableUTF8(t *testing.T) {
	out := filepath.Join(t.TempDir(), "cells.pdf")
	md := "| Größe | Wert |\n|---|---|\n| µm | ≈ 3 |\n\n```\nλx → x\n```\n"
	doc := New(Options{})
	doc.AddSection(Section{Text: []byte(md)})
	_, err := doc.Save(context.Background(), out)
	require.NoError(t, err)

	text := plainText(t, out)
	for _, want := range []string{"Größe", "µm", "≈ 3", "λx → x"} {
		assert.Contains(t, text, want)
	}
}

var xrefEntry = regexp.MustCompile(`^(\d{10}) 00000 n $`)

func TestFixToUnicode_Offsets(t *testing.T) {
	data, _ := render(t, Options{TOCLevel: 2}, Section{Text: []byte(sample), TOC: true})
	s := string(data)

	assert.NotContains(t, s, "<0000> <FFFF> <0000>")
	assert.Contains(t, s, "<0000> <00FF> <0000>")
	assert.Contains(t, s, "<FF00> <FFFF> <FF00>")
	assert.Contains(t, s, "100 beginbfrange")
	assert.Contains(t, s, "56 beginbfrange")

	sx := strings.LastIndex(s, "startxref\n")
	require.GreaterOrEqual(t, sx, 0)
	num := strings.SplitN(s[sx+len("startxref\n"):], "\n", 2)[0]
	xref, err := strconv.Atoi(num)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(s[xref:], "xref\n0 "))

	lines := strings.Split(s[xref:], "\n")
	obj := 0
	for _, line := range lines[3:] {
		m := xrefEntry.FindStringSubmatch(line)
		if m == nil {
			break
		}
		obj++
		off, err := strconv.Atoi(m[1])
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(s[off:], strconv.Itoa(obj)+" 0 obj"), "object %d at %d", obj, off)
	}
	assert.Greater(t, obj, 0)
}

func TestFixToUnicode_NoUTF8Font(t *testing.T) {
	in := []byte("%PDF-1.3\n1 0 obj\n<<>>\nendobj\n")
	out, err := fixToUnicode(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFixToUnicode_MissingXref(t *testing.T) {
	in := []byte("%PDF-1.3\n" + string(cmapStream(identityCMap)) + "\n")
	_, err := fixToUnicode(in)
	assert.ErrorContains(t, err, "cross-reference table not found")
}
