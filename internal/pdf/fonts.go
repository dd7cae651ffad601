// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdf

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/pdiddy/readme-export/pkg/types"
)

// Font families registered with every document.
const (
	familyBody = "Body"
	familyMono = "Mono"
)

// face is a registered font family and the text filter it needs.
type face struct {
	family string
	tr     func(string) string
}

// fontSet holds the body and monospace faces for one document.
type fontSet struct {
	body face
	mono face
}

// styleSet is the TrueType data for the four styles of one family.
type styleSet struct {
	regular, bold, italic, boldItalic []byte
}

// bmp replaces runes outside the Basic Multilingual Plane. gofpdf keeps
// glyph widths in a 16-bit table and cannot place them.
func bmp(s string) string {
	if !strings.ContainsFunc(s, func(r rune) bool { return r > 0xFFFF }) {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r > 0xFFFF {
			return unicode.ReplacementChar
		}
		return r
	}, s)
}

// setupFonts registers UTF-8 TrueType fonts with pdf. The Go fonts are
// embedded by default; configured font files replace them.
func setupFonts(pdf *gofpdf.Fpdf, cfg types.FontConfig) (fontSet, error) {
	body := styleSet{
		regular:    goregular.TTF,
		bold:       gobold.TTF,
		italic:     goitalic.TTF,
		boldItalic: gobolditalic.TTF,
	}
	mono := styleSet{
		regular:    gomono.TTF,
		bold:       gomonobold.TTF,
		italic:     gomonoitalic.TTF,
		boldItalic: gomonobolditalic.TTF,
	}

	if cfg.Regular != "" {
		regular, err := readFont(cfg.Regular)
		if err != nil {
			return fontSet{}, err
		}
		body = styleSet{regular: regular, bold: regular, italic: regular, boldItalic: regular}
		if cfg.Bold != "" {
			if body.bold, err = readFont(cfg.Bold); err != nil {
				return fontSet{}, err
			}
			body.boldItalic = body.bold
		}
		if cfg.Italic != "" {
			if body.italic, err = readFont(cfg.Italic); err != nil {
				return fontSet{}, err
			}
		}
	}

	if cfg.Mono != "" {
		data, err := readFont(cfg.Mono)
		if err != nil {
			return fontSet{}, err
		}
		mono = styleSet{regular: data, bold: data, italic: data, boldItalic: data}
	}

	register(pdf, familyBody, body)
	register(pdf, familyMono, mono)
	if err := pdf.Error(); err != nil {
		return fontSet{}, fmt.Errorf("font setup failed: %w", err)
	}
	return fontSet{
		body: face{family: familyBody, tr: bmp},
		mono: face{family: familyMono, tr: bmp},
	}, nil
}

func register(pdf *gofpdf.Fpdf, family string, s styleSet) {
	pdf.AddUTF8FontFromBytes(family, "", s.regular)
	pdf.AddUTF8FontFromBytes(family, "B", s.bold)
	pdf.AddUTF8FontFromBytes(family, "I", s.italic)
	pdf.AddUTF8FontFromBytes(family, "BI", s.boldItalic)
}

func readFont(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading font %s: %w", path, err)
	}
	return data, nil
}
