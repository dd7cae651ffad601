// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/russross/blackfriday/v2"

	"github.com/pdiddy/readme-export/internal/assets"
	"github.com/pdiddy/readme-export/internal/markdown"
)

const (
	ptToMM      = 25.4 / 72
	pxToMM      = 25.4 / 96
	lineSpacing = 1.35
	listIndent  = 6.0
	quoteIndent = 6.0
)

// headingScale multiplies the body font size for heading levels 1..6.
var headingScale = [6]float64{1.9, 1.6, 1.3, 1.1, 1.0, 1.0}

var (
	bulletMarks = []string{"•", "-", "·"}
	brTag       = regexp.MustCompile(`(?i)^<br\s*/?>$`)
)

// style is the text formatting in effect for inline content.
type style struct {
	bold   bool
	italic bool
	code   bool
	// size overrides the body font size when non-zero.
	size   float64
	link   string
	linkID int
}

// renderer lays out blackfriday blocks on a gofpdf document. Every block
// leaves the cursor at the left margin below its own output.
type renderer struct {
	ctx      context.Context
	pdf      *gofpdf.Fpdf
	opts     Options
	fonts    fontSet
	resolver *assets.Resolver
	log      io.Writer

	left, right float64
	top, bottom float64
	lineH       float64
	h           float64
	indent      float64

	links      map[string]int
	registered map[string]bool
	toc        bool
	lastMark   int
	tight      bool
	listDepth  int
	quoteDepth int

	stats Stats
	err   error
}

func newRenderer(ctx context.Context, pdf *gofpdf.Fpdf, opts Options, fonts fontSet) *renderer {
	pageW, pageH := pdf.GetPageSize()
	lineH := lineHeight(opts.FontSize)
	return &renderer{
		ctx:        ctx,
		pdf:        pdf,
		opts:       opts,
		fonts:      fonts,
		log:        opts.Log,
		left:       opts.Margin,
		right:      pageW - opts.Margin,
		top:        opts.Margin,
		bottom:     pageH - opts.Margin,
		lineH:      lineH,
		h:          lineH,
		registered: make(map[string]bool),
		lastMark:   -1,
	}
}

func lineHeight(size float64) float64 {
	return size * ptToMM * lineSpacing
}

func (r *renderer) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *renderer) gap() float64 {
	return r.lineH * 0.5
}

func (r *renderer) margin() float64 {
	return r.left + r.indent
}

func (r *renderer) setIndent(indent float64) {
	r.indent = indent
	r.pdf.SetLeftMargin(r.margin())
	r.pdf.SetX(r.margin())
}

func (r *renderer) section(sec Section) error {
	a := r.opts.Assets
	if sec.Root != "" {
		a.Root = sec.Root
	}
	r.resolver = assets.NewResolver(a)
	r.toc = sec.TOC && r.opts.TOCLevel > 0

	root := markdown.Parse(sec.Text)
	r.collectLinks(root)
	if r.toc {
		r.stats.Outline = append(r.stats.Outline, markdown.Outline(root, r.opts.TOCLevel)...)
	}

	r.pdf.AddPage()
	r.setIndent(0)
	r.blocks(root)
	if r.err == nil {
		r.err = r.pdf.Error()
	}
	return r.err
}

// collectLinks creates an internal link target for every heading anchor so
// links may point forward.
func (r *renderer) collectLinks(root *blackfriday.Node) {
	r.links = make(map[string]int)
	root.Walk(func(n *blackfriday.Node, entering bool) blackfriday.WalkStatus {
		if !entering || n.Type != blackfriday.Heading {
			return blackfriday.GoToNext
		}
		if id := n.HeadingData.HeadingID; id != "" {
			if _, ok := r.links[id]; !ok {
				r.links[id] = r.pdf.AddLink()
			}
		}
		return blackfriday.SkipChildren
	})
}

func (r *renderer) blocks(parent *blackfriday.Node) {
	for n := parent.FirstChild; n != nil && r.err == nil; n = n.Next {
		r.block(n)
	}
}

func (r *renderer) block(n *blackfriday.Node) {
	if err := r.ctx.Err(); err != nil {
		r.fail(err)
		return
	}
	switch n.Type {
	case blackfriday.Heading:
		r.heading(n)
	case blackfriday.Paragraph:
		r.paragraph(n)
	case blackfriday.BlockQuote:
		r.quote(n)
	case blackfriday.List:
		r.list(n)
	case blackfriday.CodeBlock:
		r.code(n)
	case blackfriday.HorizontalRule:
		r.rule()
	case blackfriday.Table:
		r.table(n)
	case blackfriday.HTMLBlock:
		r.html(n)
	default:
		r.blocks(n)
	}
}

// apply selects the font and colour for st and returns the face in use.
func (r *renderer) apply(st style) face {
	f := r.fonts.body
	if st.code {
		f = r.fonts.mono
	}
	var s string
	if st.bold {
		s += "B"
	}
	if st.italic {
		s += "I"
	}
	linked := st.link != "" || st.linkID != 0
	if linked {
		s += "U"
	}
	size := st.size
	if size == 0 {
		size = r.opts.FontSize
		if st.code {
			size--
		}
	}
	r.pdf.SetFont(f.family, s, size)
	switch {
	case linked:
		r.pdf.SetTextColor(5, 99, 193)
	case r.quoteDepth > 0:
		r.pdf.SetTextColor(89, 89, 89)
	default:
		r.pdf.SetTextColor(0, 0, 0)
	}
	return f
}

func (r *renderer) text(s string, st style) {
	if s == "" {
		return
	}
	f := r.apply(st)
	s = f.tr(s)
	switch {
	case st.link != "":
		r.pdf.WriteLinkString(r.h, s, st.link)
	case st.linkID != 0:
		r.pdf.WriteLinkID(r.h, s, st.linkID)
	default:
		r.pdf.Write(r.h, s)
	}
}

func (r *renderer) endBlock() {
	r.pdf.Ln(r.h)
	if !r.tight {
		r.pdf.Ln(r.gap())
	}
}

func (r *renderer) heading(n *blackfriday.Node) {
	level := n.HeadingData.Level
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	size := r.opts.FontSize * headingScale[level-1]
	h := lineHeight(size)

	// Keep the heading on the same page as at least two body lines.
	if r.pdf.GetY()+h+2*r.lineH > r.bottom {
		r.pdf.AddPage()
	} else if r.pdf.GetY() > r.top+0.01 {
		r.pdf.Ln(r.gap())
	}

	st := style{bold: true, size: size}
	r.apply(st)
	if link, ok := r.links[n.HeadingData.HeadingID]; ok {
		r.pdf.SetLink(link, -1, -1)
	}
	if r.toc && level <= r.opts.TOCLevel {
		r.bookmark(markdown.PlainText(n), level)
	}

	prev := r.h
	r.h = h
	r.inlines(n, st)
	r.pdf.Ln(h)
	r.h = prev

	if level <= 2 {
		y := r.pdf.GetY()
		r.pdf.SetDrawColor(200, 200, 200)
		r.pdf.Line(r.margin(), y, r.right, y)
		r.pdf.SetDrawColor(0, 0, 0)
	}
	r.pdf.Ln(r.gap())
}

// bookmark adds an outline entry. Levels never skip a step below the
// previous entry so the outline tree stays well formed.
func (r *renderer) bookmark(text string, level int) {
	mark := level - 1
	if mark > r.lastMark+1 {
		mark = r.lastMark + 1
	}
	r.lastMark = mark
	r.pdf.Bookmark(r.fonts.body.tr(text), mark, -1)
}

func (r *renderer) paragraph(n *blackfriday.Node) {
	r.inlines(n, style{})
	r.endBlock()
}

func (r *renderer) quote(n *blackfriday.Node) {
	base := r.indent
	startPage, startY := r.pdf.PageNo(), r.pdf.GetY()

	r.quoteDepth++
	r.setIndent(base + quoteIndent)
	r.blocks(n)
	r.setIndent(base)
	r.quoteDepth--

	y0 := startY
	if r.pdf.PageNo() != startPage {
		y0 = r.top
	}
	y1 := r.pdf.GetY() - r.gap()
	if y1 <= y0 {
		return
	}
	x := r.left + base + 2
	r.pdf.SetDrawColor(191, 191, 191)
	r.pdf.SetLineWidth(0.8)
	r.pdf.Line(x, y0, x, y1)
	r.pdf.SetLineWidth(0.2)
	r.pdf.SetDrawColor(0, 0, 0)
}

func (r *renderer) list(n *blackfriday.Node) {
	ordered := n.ListData.ListFlags&blackfriday.ListTypeOrdered != 0
	base := r.indent
	prevTight := r.tight
	r.tight = n.ListData.Tight
	r.listDepth++

	num := 0
	for item := n.FirstChild; item != nil && r.err == nil; item = item.Next {
		num++
		marker := bulletMarks[(r.listDepth-1)%len(bulletMarks)]
		if ordered {
			marker = strconv.Itoa(num) + "."
		}
		r.setIndent(base)
		f := r.apply(style{})
		r.pdf.CellFormat(listIndent, r.h, f.tr(marker), "", 0, "L", false, 0, "")
		r.indent = base + listIndent
		r.pdf.SetLeftMargin(r.margin())
		if item.FirstChild == nil || item.FirstChild.Type != blackfriday.Paragraph {
			r.pdf.Ln(r.h)
		}
		r.blocks(item)
	}

	r.listDepth--
	r.setIndent(base)
	if r.tight && r.listDepth == 0 {
		r.pdf.Ln(r.gap())
	}
	r.tight = prevTight
}

func (r *renderer) code(n *blackfriday.Node) {
	size := r.opts.FontSize - 1.5
	h := size * ptToMM * 1.25
	f := r.fonts.mono
	r.pdf.SetFont(f.family, "", size)
	r.pdf.SetTextColor(0, 0, 0)
	r.pdf.SetFillColor(242, 242, 242)

	width := r.right - r.margin()
	text := strings.TrimRight(strings.ReplaceAll(string(n.Literal), "\t", "    "), "\n")
	for _, line := range strings.Split(text, "\n") {
		pieces := r.pdf.SplitText(f.tr(line), width)
		if len(pieces) == 0 {
			pieces = []string{""}
		}
		for _, p := range pieces {
			r.pdf.CellFormat(width, h, p, "", 1, "L", true, 0, "")
		}
	}
	r.pdf.Ln(r.gap())
}

func (r *renderer) rule() {
	y := r.pdf.GetY() + r.gap()/2
	r.pdf.SetDrawColor(166, 166, 166)
	r.pdf.Line(r.margin(), y, r.right, y)
	r.pdf.SetDrawColor(0, 0, 0)
	r.pdf.SetY(y + r.gap())
}

func (r *renderer) table(n *blackfriday.Node) {
	type row struct {
		cells  []*blackfriday.Node
		header bool
	}
	var rows []row
	cols := 0
	n.Walk(func(c *blackfriday.Node, entering bool) blackfriday.WalkStatus {
		if !entering || c.Type != blackfriday.TableRow {
			return blackfriday.GoToNext
		}
		var rw row
		for cell := c.FirstChild; cell != nil; cell = cell.Next {
			rw.cells = append(rw.cells, cell)
			rw.header = rw.header || cell.TableCellData.IsHeader
		}
		if len(rw.cells) > cols {
			cols = len(rw.cells)
		}
		rows = append(rows, rw)
		return blackfriday.SkipChildren
	})
	if cols == 0 {
		return
	}

	x := r.margin()
	colW := (r.right - x) / float64(cols)
	size := r.opts.FontSize - 1
	h := lineHeight(size)
	f := r.fonts.body
	r.pdf.SetTextColor(0, 0, 0)
	r.pdf.SetFillColor(242, 242, 242)
	r.pdf.SetDrawColor(166, 166, 166)

	for _, rw := range rows {
		weight := ""
		if rw.header {
			weight = "B"
		}
		r.pdf.SetFont(f.family, weight, size)

		lines := make([][]string, cols)
		maxLines := 1
		for i := range lines {
			var text string
			if i < len(rw.cells) {
				text = markdown.CollapseSpace(markdown.PlainText(rw.cells[i]))
			}
			lines[i] = r.pdf.SplitText(f.tr(text), colW)
			if len(lines[i]) > maxLines {
				maxLines = len(lines[i])
			}
		}
		rowH := float64(maxLines)*h + 1

		if r.pdf.GetY()+rowH > r.bottom {
			r.pdf.AddPage()
		}
		y := r.pdf.GetY()
		for i := 0; i < cols; i++ {
			cx := x + float64(i)*colW
			mode := "D"
			if rw.header {
				mode = "FD"
			}
			r.pdf.Rect(cx, y, colW, rowH, mode)
			align := "L"
			if i < len(rw.cells) {
				align = cellAlign(rw.cells[i].TableCellData.Align)
			}
			for j, l := range lines[i] {
				r.pdf.SetXY(cx, y+0.5+float64(j)*h)
				r.pdf.CellFormat(colW, h, l, "", 0, align, false, 0, "")
			}
		}
		r.pdf.SetXY(x, y+rowH)
	}
	r.pdf.SetDrawColor(0, 0, 0)
	r.pdf.Ln(r.gap())
}

func cellAlign(a blackfriday.CellAlignFlags) string {
	switch a {
	case blackfriday.TableAlignmentCenter:
		return "C"
	case blackfriday.TableAlignmentRight:
		return "R"
	}
	return "L"
}

func (r *renderer) html(n *blackfriday.Node) {
	center := strings.Contains(strings.ToLower(string(n.Literal)), `align="center"`)
	for _, ref := range markdown.HTMLImages(n.Literal) {
		r.image(ref, style{}, center)
	}
	if text := markdown.HTMLText(n.Literal); text != "" {
		r.text(text, style{})
		r.endBlock()
	}
}

func (r *renderer) inlines(parent *blackfriday.Node, st style) {
	for c := parent.FirstChild; c != nil && r.err == nil; c = c.Next {
		switch c.Type {
		case blackfriday.Text:
			r.text(strings.ReplaceAll(string(c.Literal), "\n", " "), st)
		case blackfriday.Emph:
			s := st
			s.italic = true
			r.inlines(c, s)
		case blackfriday.Strong:
			s := st
			s.bold = true
			r.inlines(c, s)
		case blackfriday.Code:
			s := st
			s.code = true
			r.text(string(c.Literal), s)
		case blackfriday.Softbreak:
			r.text(" ", st)
		case blackfriday.Hardbreak:
			r.pdf.Ln(r.h)
		case blackfriday.Link:
			r.link(c, st)
		case blackfriday.Image:
			r.image(markdown.ImageFromNode(c), st, false)
		case blackfriday.HTMLSpan:
			lit := strings.TrimSpace(string(c.Literal))
			if brTag.MatchString(lit) {
				r.pdf.Ln(r.h)
				continue
			}
			for _, ref := range markdown.HTMLImages(c.Literal) {
				r.image(ref, st, false)
			}
		default:
			r.inlines(c, st)
		}
	}
}

func (r *renderer) link(n *blackfriday.Node, st style) {
	if n.LinkData.NoteID > 0 {
		r.text("["+strconv.Itoa(n.LinkData.NoteID)+"]", st)
		return
	}
	if st.link != "" || st.linkID != 0 {
		r.inlines(n, st)
		return
	}
	s := st
	dest := string(n.LinkData.Destination)
	if id, ok := markdown.Anchor(dest); ok {
		s.linkID = r.links[id]
	} else {
		s.link = dest
	}
	r.inlines(n, s)
}

// image places ref on its own line, scaled to fit the text area. Images that
// were skipped or cannot be embedded are replaced by their alt text.
func (r *renderer) image(ref markdown.ImageRef, st style, center bool) {
	img, err := r.resolver.Resolve(r.ctx, ref.Src)
	if err != nil {
		if errors.Is(err, assets.ErrSkipped) || errors.Is(err, assets.ErrUnsupported) {
			fmt.Fprintf(r.log, "warning: %v; using alt text\n", err)
			alt := ref.Alt
			if alt == "" {
				alt = ref.Src
			}
			s := st
			s.italic = true
			r.text(alt, s)
			return
		}
		r.fail(err)
		return
	}

	name := img.Digest
	if !r.registered[name] {
		opts := gofpdf.ImageOptions{ImageType: imageType(img.MIME)}
		r.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Data))
		if err := r.pdf.Error(); err != nil {
			r.fail(fmt.Errorf("embedding image %s: %w", ref.Src, err))
			return
		}
		r.registered[name] = true
	}

	w, h := r.imageSize(img, ref.Width)
	if r.pdf.GetX() > r.margin()+0.01 {
		r.pdf.Ln(r.h)
	}
	if r.pdf.GetY()+h > r.bottom {
		r.pdf.AddPage()
	}
	x := r.margin()
	if center {
		x += (r.right - r.margin() - w) / 2
	}
	opts := gofpdf.ImageOptions{ImageType: imageType(img.MIME)}
	r.pdf.ImageOptions(name, x, -1, w, h, true, opts, st.linkID, st.link)
	r.pdf.SetY(r.pdf.GetY() + r.gap())
	r.stats.Images++
}

// imageSize converts pixels to millimetres at 96 dpi, honoring a requested
// width and scaling down to fit the text area.
func (r *renderer) imageSize(img *assets.Image, wantWidth int) (float64, float64) {
	pw, ph := float64(img.Width), float64(img.Height)
	if pw <= 0 || ph <= 0 {
		pw, ph = 1, 1
	}
	w, h := pw*pxToMM, ph*pxToMM
	if wantWidth > 0 {
		w = float64(wantWidth) * pxToMM
		h = w * ph / pw
	}
	maxW := r.right - r.margin()
	maxH := r.bottom - r.top
	if w > maxW {
		h = h * maxW / w
		w = maxW
	}
	if h > maxH {
		w = w * maxH / h
		h = maxH
	}
	return w, h
}

func imageType(mime string) string {
	switch mime {
	case "image/jpeg":
		return "JPG"
	case "image/gif":
		return "GIF"
	default:
		return "PNG"
	}
}
