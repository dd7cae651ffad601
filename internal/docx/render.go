// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/gomutex/godocx/common/units"
	ooxml "github.com/gomutex/godocx/docx"
	"github.com/gomutex/godocx/wml/ctypes"
	"github.com/gomutex/godocx/wml/stypes"
	"github.com/russross/blackfriday/v2"

	"github.com/pdiddy/readme-export/internal/assets"
	"github.com/pdiddy/readme-export/internal/markdown"
)

// Page geometry in twentieths of a point.
type pageSize struct{ w, h int }

var pageSizes = map[string]pageSize{
	"a3":     {16838, 23811},
	"a4":     {11906, 16838},
	"a5":     {8391, 11906},
	"letter": {12240, 15840},
	"legal":  {12240, 20160},
}

const (
	pageMargin    = 1440
	twipsPerInch  = 1440
	pixelsPerInch = 96
	indentStep    = 720
	maxListLvl    = 8
	monoFont      = "Courier New"

	// Abstract numbering definitions shipped with the godocx template.
	listDecimal = 1
	listBullet  = 2
)

var brTag = regexp.MustCompile(`(?i)^<br\s*/?>$`)

// Stats summarizes a rendered document.
type Stats struct {
	// Images is the number of drawings placed in the document.
	Images int
	// Media is the number of image parts in the package.
	Media int
	// Headings is the number of headings rendered.
	Headings int
}

// renderer walks a blackfriday AST and appends godocx paragraphs, tables
// and pictures to doc. The first error stops further output and is reported
// by Render.
type renderer struct {
	ctx      context.Context
	doc      *ooxml.RootDoc
	resolver *assets.Resolver
	log      io.Writer
	page     pageSize

	// staging holds image files handed to godocx, keyed by digest.
	staging string
	staged  map[string]string

	stats Stats
	err   error
}

func newRenderer(ctx context.Context, doc *ooxml.RootDoc, opts Options, staging string) *renderer {
	page, ok := pageSizes[strings.ToLower(opts.PageSize)]
	if !ok {
		page = pageSizes["a4"]
	}
	log := opts.Log
	if log == nil {
		log = io.Discard
	}
	return &renderer{
		ctx:      ctx,
		doc:      doc,
		resolver: opts.resolver(),
		log:      log,
		page:     page,
		staging:  staging,
		staged:   make(map[string]string),
	}
}

func (r *renderer) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *renderer) contentWidth() int {
	return r.page.w - 2*pageMargin
}

// pageSetup writes the page size and margins into the section properties.
func (r *renderer) pageSetup() {
	body := r.doc.Document.Body
	if body.SectPr == nil {
		body.SectPr = ctypes.NewSectionProper()
	}
	w, h := uint64(r.page.w), uint64(r.page.h)
	margin, edge := pageMargin, 708
	body.SectPr.PageSize = &ctypes.PageSize{Width: &w, Height: &h}
	body.SectPr.PageMargin = &ctypes.PageMargin{
		Top: &margin, Right: &margin, Bottom: &margin, Left: &margin,
		Header: &edge, Footer: &edge,
	}
}

// blockCtx carries the container state of the block being rendered.
type blockCtx struct {
	quote int
	numID int
	level int
}

func (c blockCtx) indent() int {
	ind := c.quote * indentStep / 2
	if c.numID != 0 {
		ind += indentStep * (c.level + 1)
	}
	return ind
}

// para appends a body paragraph styled for ctx. Numbered paragraphs carry
// the list marker; others inside containers are indented.
func (r *renderer) para(ctx blockCtx, numbered bool) *ooxml.Paragraph {
	p := r.doc.AddEmptyParagraph()
	switch {
	case ctx.numID != 0:
		p.Style("ListParagraph")
	case ctx.quote > 0:
		p.Style("Quote")
	}
	if numbered {
		p.Numbering(ctx.numID, ctx.level)
		return p
	}
	if ind := ctx.indent(); ind > 0 {
		p.Indent(&ctypes.Indent{Left: &ind})
	}
	return p
}

func (r *renderer) blocks(parent *blackfriday.Node, ctx blockCtx) {
	for n := parent.FirstChild; n != nil && r.err == nil; n = n.Next {
		r.block(n, ctx)
	}
}

func (r *renderer) block(n *blackfriday.Node, ctx blockCtx) {
	if err := r.ctx.Err(); err != nil {
		r.fail(err)
		return
	}
	switch n.Type {
	case blackfriday.Heading:
		r.heading(n)
	case blackfriday.Paragraph:
		r.inlines(n, runFmt{}, r.para(ctx, false))
	case blackfriday.BlockQuote:
		inner := ctx
		inner.quote++
		r.blocks(n, inner)
	case blackfriday.List:
		r.list(n, ctx)
	case blackfriday.CodeBlock:
		r.codeBlock(n, ctx)
	case blackfriday.HorizontalRule:
		r.rule()
	case blackfriday.Table:
		r.table(n)
	case blackfriday.HTMLBlock:
		r.htmlBlock(n, ctx)
	default:
		r.blocks(n, ctx)
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
	if _, err := r.doc.AddHeading(markdown.PlainText(n), uint(level)); err != nil {
		r.fail(fmt.Errorf("heading: %w", err))
		return
	}
	r.stats.Headings++
}

func (r *renderer) rule() {
	p := r.doc.AddEmptyParagraph()
	p.Spacing(0, 120)
	size, space, color := 6, "1", "A6A6A6"
	p.GetCT().Property.Border = &ctypes.ParaBorder{
		Bottom: &ctypes.Border{Val: stypes.BorderStyleSingle, Size: &size, Space: &space, Color: &color},
	}
}

func (r *renderer) list(n *blackfriday.Node, ctx blockCtx) {
	level := 0
	if ctx.numID != 0 {
		level = ctx.level + 1
	}
	if level > maxListLvl {
		level = maxListLvl
	}

	kind := listBullet
	if n.ListData.ListFlags&blackfriday.ListTypeOrdered != 0 {
		kind = listDecimal
	}
	inner := blockCtx{quote: ctx.quote, numID: r.doc.NewListInstance(kind), level: level}
	for item := n.FirstChild; item != nil && r.err == nil; item = item.Next {
		r.item(item, inner)
	}
}

func (r *renderer) item(n *blackfriday.Node, ctx blockCtx) {
	first := true
	for c := n.FirstChild; c != nil && r.err == nil; c = c.Next {
		switch {
		case first && c.Type == blackfriday.Paragraph:
			r.inlines(c, runFmt{}, r.para(ctx, true))
		case first:
			// Item starts with a non-paragraph block; emit the marker alone.
			r.para(ctx, true)
			fallthrough
		default:
			r.block(c, ctx)
		}
		first = false
	}
	if first {
		r.para(ctx, true)
	}
}

func (r *renderer) codeBlock(n *blackfriday.Node, ctx blockCtx) {
	text := strings.TrimRight(strings.ReplaceAll(string(n.Literal), "\t", "    "), "\n")
	p := r.para(blockCtx{quote: ctx.quote}, false)
	p.Style("MacroText")
	if ind := ctx.indent(); ind > 0 {
		p.Indent(&ctypes.Indent{Left: &ind})
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		run := p.AddText(line).Font(monoFont).Size(9)
		if i < len(lines)-1 {
			run.AddBreak(nil)
		}
	}
}

func (r *renderer) htmlBlock(n *blackfriday.Node, ctx blockCtx) {
	for _, ref := range markdown.HTMLImages(n.Literal) {
		p := r.para(ctx, false)
		p.Justification(stypes.JustificationCenter)
		r.image(ref, runFmt{}, p)
		if r.err != nil {
			return
		}
	}
	if text := markdown.HTMLText(n.Literal); text != "" {
		runFmt{}.apply(r.para(ctx, false).AddText(text))
	}
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

	colW := uint64(r.contentWidth() / cols)
	widths := make([]uint64, cols)
	for i := range widths {
		widths[i] = colW
	}

	t := r.doc.AddTable()
	t.Style("TableGrid")
	t.Grid(widths...)
	for _, rw := range rows {
		tr := t.AddRow()
		for i := 0; i < cols; i++ {
			cell := tr.AddCell()
			if rw.header {
				cell.BackgroundColor("F2F2F2")
			}
			p := cell.AddEmptyPara()
			p.Spacing(0, 0)
			if i >= len(rw.cells) {
				continue
			}
			src := rw.cells[i]
			if jc, ok := cellAlign(src.TableCellData.Align); ok {
				p.Justification(jc)
			}
			r.inlines(src, runFmt{bold: rw.header}, p)
		}
	}
	// A table directly followed by another table or the section end needs a
	// separating paragraph.
	r.doc.AddEmptyParagraph().Spacing(0, 0)
}

func cellAlign(a blackfriday.CellAlignFlags) (stypes.Justification, bool) {
	switch a {
	case blackfriday.TableAlignmentCenter:
		return stypes.JustificationCenter, true
	case blackfriday.TableAlignmentRight:
		return stypes.JustificationRight, true
	case blackfriday.TableAlignmentLeft:
		return stypes.JustificationLeft, true
	}
	return "", false
}

// runFmt is the character formatting in effect for inline content.
type runFmt struct {
	bold   bool
	italic bool
	strike bool
	code   bool
	link   bool
	sup    bool
}

func (f runFmt) apply(run *ooxml.Run) {
	switch {
	case f.code:
		run.Font(monoFont).Shading(stypes.ShdClear, "auto", "F2F2F2")
	case f.link:
		run.Style("Hyperlink")
	}
	if f.bold {
		run.Bold(true)
	}
	if f.italic {
		run.Italic(true)
	}
	if f.strike {
		run.Strike(true)
	}
	if f.sup {
		run.VerticalAlign(stypes.VerticalAlignRunSuperscript)
	}
}

func textRun(p *ooxml.Paragraph, text string, f runFmt) {
	if text == "" {
		return
	}
	f.apply(p.AddText(text))
}

func (r *renderer) inlines(parent *blackfriday.Node, f runFmt, p *ooxml.Paragraph) {
	for c := parent.FirstChild; c != nil && r.err == nil; c = c.Next {
		switch c.Type {
		case blackfriday.Text:
			textRun(p, strings.ReplaceAll(string(c.Literal), "\n", " "), f)
		case blackfriday.Emph:
			g := f
			g.italic = true
			r.inlines(c, g, p)
		case blackfriday.Strong:
			g := f
			g.bold = true
			r.inlines(c, g, p)
		case blackfriday.Del:
			g := f
			g.strike = true
			r.inlines(c, g, p)
		case blackfriday.Code:
			g := f
			g.code = true
			textRun(p, string(c.Literal), g)
		case blackfriday.Softbreak:
			textRun(p, " ", f)
		case blackfriday.Hardbreak:
			p.AddRun().AddBreak(nil)
		case blackfriday.Link:
			r.link(c, f, p)
		case blackfriday.Image:
			r.image(markdown.ImageFromNode(c), f, p)
		case blackfriday.HTMLSpan:
			r.htmlSpan(c, f, p)
		default:
			r.inlines(c, f, p)
		}
	}
}

// link renders external targets as hyperlinks. In-document anchors keep the
// hyperlink look without a jump target.
func (r *renderer) link(n *blackfriday.Node, f runFmt, p *ooxml.Paragraph) {
	if n.LinkData.NoteID > 0 {
		g := f
		g.sup = true
		textRun(p, "["+strconv.Itoa(n.LinkData.NoteID)+"]", g)
		return
	}
	if f.link {
		r.inlines(n, f, p)
		return
	}

	dest := string(n.LinkData.Destination)
	if _, anchor := markdown.Anchor(dest); anchor || dest == "" || hasImage(n) {
		g := f
		g.link = dest != ""
		r.inlines(n, g, p)
		return
	}
	text := markdown.PlainText(n)
	if text == "" {
		text = dest
	}
	p.AddLink(text, dest)
}

func hasImage(n *blackfriday.Node) bool {
	found := false
	n.Walk(func(c *blackfriday.Node, entering bool) blackfriday.WalkStatus {
		if entering && c.Type == blackfriday.Image {
			found = true
			return blackfriday.Terminate
		}
		return blackfriday.GoToNext
	})
	return found
}

func (r *renderer) htmlSpan(n *blackfriday.Node, f runFmt, p *ooxml.Paragraph) {
	lit := strings.TrimSpace(string(n.Literal))
	if brTag.MatchString(lit) {
		p.AddRun().AddBreak(nil)
		return
	}
	for _, ref := range markdown.HTMLImages(n.Literal) {
		r.image(ref, f, p)
	}
}

// stage writes img into the staging directory once per digest and returns
// the path godocx reads it from.
func (r *renderer) stage(img *assets.Image) (string, error) {
	if path, ok := r.staged[img.Digest]; ok {
		return path, nil
	}
	path := filepath.Join(r.staging, fmt.Sprintf("image%d%s", len(r.staged)+1, img.Ext))
	if err := os.WriteFile(path, img.Data, 0o600); err != nil {
		return "", fmt.Errorf("staging image %s: %w", img.Src, err)
	}
	r.staged[img.Digest] = path
	return path, nil
}

// image places ref in p: a picture when the image resolves, or the alt text
// when it was skipped or cannot be embedded.
func (r *renderer) image(ref markdown.ImageRef, f runFmt, p *ooxml.Paragraph) {
	img, err := r.resolver.Resolve(r.ctx, ref.Src)
	if err != nil {
		if errors.Is(err, assets.ErrSkipped) || errors.Is(err, assets.ErrUnsupported) {
			fmt.Fprintf(r.log, "warning: %v; using alt text\n", err)
			alt := ref.Alt
			if alt == "" {
				alt = ref.Src
			}
			g := f
			g.italic = true
			textRun(p, alt, g)
			return
		}
		r.fail(err)
		return
	}

	path, err := r.stage(img)
	if err != nil {
		r.fail(err)
		return
	}
	w, h := r.extent(img, ref.Width)
	if _, err := p.AddPicture(path, w, h); err != nil {
		r.fail(fmt.Errorf("embedding image %s: %w", ref.Src, err))
		return
	}
	r.stats.Images++
}

// extent converts pixel dimensions to inches at 96 dpi, honoring a requested
// width and scaling down to fit the text area.
func (r *renderer) extent(img *assets.Image, wantWidth int) (units.Inch, units.Inch) {
	w, h := float64(img.Width), float64(img.Height)
	if w <= 0 || h <= 0 {
		w, h = 1, 1
	}
	cx, cy := w/pixelsPerInch, h/pixelsPerInch
	if wantWidth > 0 {
		cx = float64(wantWidth) / pixelsPerInch
		cy = cx * h / w
	}
	maxW := float64(r.contentWidth()) / twipsPerInch
	maxH := float64(r.page.h-2*pageMargin) / twipsPerInch
	if cx > maxW {
		cy = cy * maxW / cx
		cx = maxW
	}
	if cy > maxH {
		cx = cx * maxH / cy
		cy = maxH
	}
	return units.Inch(cx), units.Inch(cy)
}
