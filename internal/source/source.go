// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source loads the Markdown document both exporters read. The file is
// never modified; an optional YAML front matter block is split off the body
// and parsed into document metadata.
package source

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
)

const frontMatterDelim = "---"

// Meta is document metadata taken from YAML front matter.
type Meta struct {
	Title       string   `yaml:"title"`
	Author      string   `yaml:"author"`
	Authors     []string `yaml:"authors"`
	Description string   `yaml:"description"`
	Keywords    []string `yaml:"keywords"`
}

// Creator returns the author names joined for document properties.
func (m Meta) Creator() string {
	names := make([]string, 0, len(m.Authors)+1)
	if m.Author != "" {
		names = append(names, m.Author)
	}
	names = append(names, m.Authors...)
	return strings.Join(names, ", ")
}

// Document is a loaded Markdown source.
type Document struct {
	// Path is the path the document was read from.
	Path string

	// Raw holds the file bytes exactly as read.
	Raw []byte

	// Body is Raw without the byte order mark and front matter block.
	Body []byte

	// Meta is parsed from front matter; zero when there is none.
	Meta Meta

	// ModTime is the source modification time.
	ModTime time.Time
}

// Dir returns the directory relative image references resolve against.
func (d *Document) Dir() string {
	return filepath.Dir(d.Path)
}

// SHA256 returns the hex digest of the raw bytes.
func (d *Document) SHA256() string {
	sum := sha256.Sum256(d.Raw)
	return hex.EncodeToString(sum[:])
}

// Load reads the whole file at path. A missing file yields an error that
// satisfies errors.Is(err, fs.ErrNotExist).
func Load(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading source %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("reading source %s: is a directory", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading source %s: %w", path, err)
	}

	doc := &Document{
		Path:    path,
		Raw:     raw,
		ModTime: info.ModTime().UTC(),
	}
	doc.Body, doc.Meta = splitFrontMatter(raw)
	return doc, nil
}

// metaKeys are the front matter keys Meta understands.
var metaKeys = []string{"title", "author", "authors", "description", "keywords"}

// splitFrontMatter separates a leading "---" YAML block from the body. The
// block counts as front matter only when it is a mapping that sets at least
// one Meta key; anything else, such as a heading between two rules, is left
// in the body untouched.
func splitFrontMatter(raw []byte) ([]byte, Meta) {
	src := bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	first, rest, ok := cutLine(src)
	if !ok || strings.TrimSpace(string(first)) != frontMatterDelim {
		return src, Meta{}
	}

	start := rest
	for {
		line, next, found := cutLine(rest)
		if strings.TrimSpace(string(line)) == frontMatterDelim {
			meta, ok := parseFrontMatter(start[:len(start)-len(rest)])
			if !ok {
				return src, Meta{}
			}
			return next, meta
		}
		if !found {
			return src, Meta{}
		}
		rest = next
	}
}

func parseFrontMatter(block []byte) (Meta, bool) {
	var fields map[string]any
	if err := yaml.Unmarshal(block, &fields); err != nil || len(fields) == 0 {
		return Meta{}, false
	}
	known := false
	for _, k := range metaKeys {
		if _, ok := fields[k]; ok {
			known = true
			break
		}
	}
	if !known {
		return Meta{}, false
	}
	var meta Meta
	if err := yaml.Unmarshal(block, &meta); err != nil {
		return Meta{}, false
	}
	return meta, true
}

// cutLine returns the first line of b without its line terminator and the
// remainder after it. found is false when b has no newline.
func cutLine(b []byte) (line, rest []byte, found bool) {
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		return bytes.TrimSuffix(b, []byte("\r")), nil, false
	}
	return bytes.TrimSuffix(b[:i], []byte("\r")), b[i+1:], true
}
