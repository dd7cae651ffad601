// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package markdown

import (
	"bytes"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLImages returns the <img> tags found in a raw HTML fragment. READMEs
// commonly center logos with <p align="center"><img ...></p>.
func HTMLImages(raw []byte) []ImageRef {
	root, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil
	}
	var out []ImageRef
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Img {
			ref := ImageRef{
				Src:   attr(n, "src"),
				Alt:   attr(n, "alt"),
				Title: attr(n, "title"),
			}
			if w, err := strconv.Atoi(strings.TrimSuffix(attr(n, "width"), "px")); err == nil && w > 0 {
				ref.Width = w
			}
			if ref.Src != "" {
				out = append(out, ref)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

// HTMLText returns the visible text of a raw HTML fragment with whitespace
// collapsed. Comments, scripts and styles are dropped.
func HTMLText(raw []byte) string {
	root, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return CollapseSpace(b.String())
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
