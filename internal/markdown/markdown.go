// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package markdown parses README Markdown with blackfriday and exposes the
// pieces both exporters need: the AST, the heading outline, and the image
// references (Markdown images and <img> tags inside raw HTML).
package markdown

import (
	"strings"

	"github.com/russross/blackfriday/v2"
)

// Extensions is the blackfriday extension set used for README documents.
const Extensions = blackfriday.NoIntraEmphasis |
	blackfriday.Tables |
	blackfriday.FencedCode |
	blackfriday.Autolink |
	blackfriday.Strikethrough |
	blackfriday.SpaceHeadings |
	blackfriday.Footnotes |
	blackfriday.AutoHeadingIDs |
	blackfriday.BackslashLineBreak

// Parse returns the document AST for body.
func Parse(body []byte) *blackfriday.Node {
	md := blackfriday.New(blackfriday.WithExtensions(Extensions))
	return md.Parse(normalizeNewlines(body))
}

// Heading is one entry of the document outline.
type Heading struct {
	Level int    `json:"level" yaml:"level"`
	Text  string `json:"text" yaml:"text"`
	ID    string `json:"id" yaml:"id"`
}

// Outline returns the headings with level 1..maxLevel in document order.
// A maxLevel below 1 yields no headings.
func Outline(root *blackfriday.Node, maxLevel int) []Heading {
	var out []Heading
	root.Walk(func(n *blackfriday.Node, entering bool) blackfriday.WalkStatus {
		if !entering || n.Type != blackfriday.Heading {
			return blackfriday.GoToNext
		}
		if n.HeadingData.Level <= maxLevel {
			out = append(out, Heading{
				Level: n.HeadingData.Level,
				Text:  PlainText(n),
				ID:    n.HeadingData.HeadingID,
			})
		}
		return blackfriday.SkipChildren
	})
	return out
}

// Title returns the text of the first level-1 heading, or "".
func Title(root *blackfriday.Node) string {
	for _, h := range Outline(root, 1) {
		return h.Text
	}
	return ""
}

// ImageRef is an image referenced by the document.
type ImageRef struct {
	Src   string
	Alt   string
	Title string
	// Width is the requested width in pixels from an <img width=...>
	// attribute. Zero means natural size.
	Width int
}

// Images returns every image reference in document order, including <img>
// tags found in HTML blocks and inline HTML.
func Images(root *blackfriday.Node) []ImageRef {
	var out []ImageRef
	root.Walk(func(n *blackfriday.Node, entering bool) blackfriday.WalkStatus {
		if !entering {
			return blackfriday.GoToNext
		}
		switch n.Type {
		case blackfriday.Image:
			out = append(out, ImageFromNode(n))
			return blackfriday.SkipChildren
		case blackfriday.HTMLBlock, blackfriday.HTMLSpan:
			out = append(out, HTMLImages(n.Literal)...)
		}
		return blackfriday.GoToNext
	})
	return out
}

// ImageFromNode builds an ImageRef from a blackfriday Image node.
func ImageFromNode(n *blackfriday.Node) ImageRef {
	return ImageRef{
		Src:   string(n.LinkData.Destination),
		Alt:   PlainText(n),
		Title: string(n.LinkData.Title),
	}
}

// PlainText flattens the inline content below n. Line breaks inside text
// become single spaces.
func PlainText(n *blackfriday.Node) string {
	var b strings.Builder
	n.Walk(func(c *blackfriday.Node, entering bool) blackfriday.WalkStatus {
		if !entering {
			return blackfriday.GoToNext
		}
		switch c.Type {
		case blackfriday.Text, blackfriday.Code:
			b.Write(c.Literal)
		case blackfriday.Softbreak, blackfriday.Hardbreak:
			b.WriteByte(' ')
		case blackfriday.HTMLSpan:
			b.WriteString(HTMLText(c.Literal))
		}
		return blackfriday.GoToNext
	})
	return CollapseSpace(b.String())
}

// CollapseSpace replaces runs of whitespace with a single space and trims
// both ends.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Anchor reports whether dest points inside the document ("#id") and returns
// the id without the hash.
func Anchor(dest string) (string, bool) {
	if !strings.HasPrefix(dest, "#") || len(dest) == 1 {
		return "", false
	}
	return dest[1:], true
}

// IsTight reports whether the list containing item n was written without
// blank lines between items.
func IsTight(n *blackfriday.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p.Type == blackfriday.List {
			return p.ListData.Tight
		}
	}
	return false
}

// ListDepth returns how many List nodes enclose n, counting from 0 for a
// top-level list item.
func ListDepth(n *blackfriday.Node) int {
	depth := -1
	for p := n; p != nil; p = p.Parent {
		if p.Type == blackfriday.List {
			depth++
		}
	}
	if depth < 0 {
		return 0
	}
	return depth
}

func normalizeNewlines(b []byte) []byte {
	s := strings.ReplaceAll(string(b), "\r\n", "\n")
	return []byte(s)
}
