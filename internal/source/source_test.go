// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantBody string
		wantMeta Meta
	}{
		{
			name:     "plain markdown is kept as is",
			content:  "# Title\n\nBody.\n",
			wantBody: "# Title\n\nBody.\n",
		},
		{
			name:     "front matter is split off",
			content:  "---\ntitle: Wing API\nauthor: Ops\nkeywords: [api, wing]\n---\n# Title\n",
			wantBody: "# Title\n",
			wantMeta: Meta{Title: "Wing API", Author: "Ops", Keywords: []string{"api", "wing"}},
		},
		{
			name:     "CRLF front matter",
			content:  "---\r\ntitle: Wing\r\n---\r\nText\r\n",
			wantBody: "Text\r\n",
			wantMeta: Meta{Title: "Wing"},
		},
		{
			name:     "byte order mark is dropped from body",
			content:  "\xef\xbb\xbf# Title\n",
			wantBody: "# Title\n",
		},
		{
			name:     "unterminated front matter stays in body",
			content:  "---\ntitle: Wing\n# Title\n",
			wantBody: "---\ntitle: Wing\n# Title\n",
		},
		{
			name:     "thematic break with prose is not front matter",
			content:  "---\nJust some prose here.\n---\nMore\n",
			wantBody: "---\nJust some prose here.\n---\nMore\n",
		},
		{
			name:     "heading between rules stays in body",
			content:  "---\n# Wing Public API\n---\n\nIntro paragraph.\n",
			wantBody: "---\n# Wing Public API\n---\n\nIntro paragraph.\n",
		},
		{
			name:     "mapping without known keys stays in body",
			content:  "---\nNote: the API is in beta\n---\nText\n",
			wantBody: "---\nNote: the API is in beta\n---\nText\n",
		},
		{
			name:     "empty block stays in body",
			content:  "---\n---\nText\n",
			wantBody: "---\n---\nText\n",
		},
		{
			name:     "unknown keys alongside a known one",
			content:  "---\nlayout: page\ndescription: Public endpoints\n---\nText\n",
			wantBody: "Text\n",
			wantMeta: Meta{Description: "Public endpoints"},
		},
		{
			name:     "invalid yaml stays in body",
			content:  "---\ntitle: [unclosed\n---\nText\n",
			wantBody: "---\ntitle: [unclosed\n---\nText\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "README.md", tt.content)

			doc, err := Load(path)
			require.NoError(t, err)

			assert.Equal(t, []byte(tt.content), doc.Raw)
			assert.Equal(t, tt.wantBody, string(doc.Body))
			assert.Equal(t, tt.wantMeta, doc.Meta)
			assert.Equal(t, filepath.Dir(path), doc.Dir())
			assert.False(t, doc.ModTime.IsZero())
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "README.md"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Contains(t, err.Error(), "reading source")
}

func TestLoad_Directory(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestMetaCreator(t *testing.T) {
	assert.Equal(t, "", Meta{}.Creator())
	assert.Equal(t, "A, B, C", Meta{Author: "A", Authors: []string{"B", "C"}}.Creator())
}

func TestDocumentSHA256(t *testing.T) {
	doc := &Document{Raw: []byte("abc")}
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", doc.SHA256())
}
