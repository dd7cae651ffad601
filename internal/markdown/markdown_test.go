// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package markdown

import (
	"testing"

	"github.com/russross/blackfriday/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `# Wing Public API

Intro with **bold** and ` + "`code`" + `.

## Getting Started

![Logo](assets/logo.png "The logo")

### Details

<p align="center"><img src="assets/banner.png" alt="Banner" width="300px"></p>

## Usage

- one
- two
`

func TestOutline(t *testing.T) {
	root := Parse([]byte(sampleDoc))

	tests := []struct {
		name     string
		maxLevel int
		want     []Heading
	}{
		{
			name:     "depth two",
			maxLevel: 2,
			want: []Heading{
				{Level: 1, Text: "Wing Public API", ID: "wing-public-api"},
				{Level: 2, Text: "Getting Started", ID: "getting-started"},
				{Level: 2, Text: "Usage", ID: "usage"},
			},
		},
		{
			name:     "depth three includes details",
			maxLevel: 3,
			want: []Heading{
				{Level: 1, Text: "Wing Public API", ID: "wing-public-api"},
				{Level: 2, Text: "Getting Started", ID: "getting-started"},
				{Level: 3, Text: "Details", ID: "details"},
				{Level: 2, Text: "Usage", ID: "usage"},
			},
		},
		{
			name:     "zero disables",
			maxLevel: 0,
			want:     nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Outline(root, tt.maxLevel))
		})
	}
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Wing Public API", Title(Parse([]byte(sampleDoc))))
	assert.Equal(t, "", Title(Parse([]byte("no headings here\n"))))
}

func TestImages(t *testing.T) {
	refs := Images(Parse([]byte(sampleDoc)))
	require.Len(t, refs, 2)

	assert.Equal(t, ImageRef{Src: "assets/logo.png", Alt: "Logo", Title: "The logo"}, refs[0])
	assert.Equal(t, ImageRef{Src: "assets/banner.png", Alt: "Banner", Width: 300}, refs[1])
}

func TestPlainText(t *testing.T) {
	root := Parse([]byte("Some *emphasis* and `code`\nacross lines.\n"))
	para := root.FirstChild
	require.NotNil(t, para)
	require.Equal(t, blackfriday.Paragraph, para.Type)
	assert.Equal(t, "Some emphasis and code across lines.", PlainText(para))
}

func TestHTMLText(t *testing.T) {
	assert.Equal(t, "Hello world", HTMLText([]byte(`<p align="center">Hello <b>world</b><!-- hidden --></p>`)))
	assert.Equal(t, "", HTMLText([]byte(`<script>alert(1)</script>`)))
}

func TestAnchor(t *testing.T) {
	id, ok := Anchor("#usage")
	assert.True(t, ok)
	assert.Equal(t, "usage", id)

	_, ok = Anchor("https://example.com/#usage")
	assert.False(t, ok)
	_, ok = Anchor("#")
	assert.False(t, ok)
}

func TestListHelpers(t *testing.T) {
	root := Parse([]byte("- a\n  - nested\n- b\n"))

	var items []*blackfriday.Node
	root.Walk(func(n *blackfriday.Node, entering bool) blackfriday.WalkStatus {
		if entering && n.Type == blackfriday.Item {
			items = append(items, n)
		}
		return blackfriday.GoToNext
	})
	require.Len(t, items, 3)

	assert.Equal(t, 0, ListDepth(items[0]))
	assert.Equal(t, 1, ListDepth(items[1]))
	assert.Equal(t, 0, ListDepth(items[2]))
	assert.True(t, IsTight(items[0]))
}
