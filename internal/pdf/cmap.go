// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdf

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// identityCMap is the ToUnicode program gofpdf writes for each UTF-8 font.
// Its single <0000> <FFFF> range crosses high-byte boundaries, which PDF
// does not allow, so conforming readers decode everything above U+00FF to
// the wrong rune.
const identityCMap = "/CIDInit /ProcSet findresource begin\n12 dict begin\nbegincmap\n/CIDSystemInfo\n<</Registry (Adobe)\n/Ordering (UCS)\n/Supplement 0\n>> def\n/CMapName /Adobe-Identity-UCS def\n/CMapType 2 def\n1 begincodespacerange\n<0000> <FFFF>\nendcodespacerange\n1 beginbfrange\n<0000> <FFFF> <0000>\nendbfrange\nendcmap\nCMapName currentdict /CMap defineresource pop\nend\nend"

const identityRange = "1 beginbfrange\n<0000> <FFFF> <0000>\nendbfrange"

// xrefEntryLen is the fixed width of one cross-reference line.
const xrefEntryLen = 20

// splitCMap returns identityCMap with the range split per high byte, in
// blocks of at most 100 entries.
func splitCMap() string {
	var b strings.Builder
	for start := 0; start < 256; start += 100 {
		end := min(start+100, 256)
		fmt.Fprintf(&b, "%d beginbfrange\n", end-start)
		for hi := start; hi < end; hi++ {
			fmt.Fprintf(&b, "<%02X00> <%02XFF> <%02X00>\n", hi, hi, hi)
		}
		b.WriteString("endbfrange")
		if end < 256 {
			b.WriteByte('\n')
		}
	}
	return strings.Replace(identityCMap, identityRange, b.String(), 1)
}

func cmapStream(program string) []byte {
	return []byte("<</Length " + strconv.Itoa(len(program)) + ">>\nstream\n" + program + "\nendstream")
}

// fixToUnicode replaces every identity ToUnicode stream in doc with the
// per-high-byte form and rewrites the cross-reference table and startxref
// to the shifted offsets. Documents without the stream come back unchanged.
func fixToUnicode(doc []byte) ([]byte, error) {
	old := cmapStream(identityCMap)
	if !bytes.Contains(doc, old) {
		return doc, nil
	}
	repl := cmapStream(splitCMap())
	delta := len(repl) - len(old)

	var at []int
	var out bytes.Buffer
	out.Grow(len(doc) + delta*bytes.Count(doc, old))
	pos := 0
	for {
		i := bytes.Index(doc[pos:], old)
		if i < 0 {
			break
		}
		at = append(at, pos+i)
		out.Write(doc[pos : pos+i])
		out.Write(repl)
		pos += i + len(old)
	}
	out.Write(doc[pos:])
	fixed := out.Bytes()

	shift := func(off int) int {
		for _, a := range at {
			if off > a {
				off += delta
			}
		}
		return off
	}

	xref := bytes.LastIndex(fixed, []byte("\nxref\n"))
	if xref < 0 {
		return nil, fmt.Errorf("cross-reference table not found")
	}
	head := xref + len("\nxref\n")
	nl := bytes.IndexByte(fixed[head:], '\n')
	if nl < 0 {
		return nil, fmt.Errorf("malformed cross-reference header")
	}
	var first, count int
	if _, err := fmt.Sscanf(string(fixed[head:head+nl]), "%d %d", &first, &count); err != nil {
		return nil, fmt.Errorf("cross-reference header: %w", err)
	}
	entries := head + nl + 1
	if entries+count*xrefEntryLen > len(fixed) {
		return nil, fmt.Errorf("cross-reference table truncated")
	}
	for j := 0; j < count; j++ {
		e := fixed[entries+j*xrefEntryLen : entries+(j+1)*xrefEntryLen]
		if e[17] != 'n' {
			continue
		}
		off, err := strconv.Atoi(string(e[:10]))
		if err != nil {
			return nil, fmt.Errorf("cross-reference entry %d: %w", first+j, err)
		}
		copy(e[:10], fmt.Sprintf("%010d", shift(off)))
	}

	sx := bytes.LastIndex(fixed, []byte("startxref\n"))
	if sx < 0 {
		return nil, fmt.Errorf("startxref not found")
	}
	numStart := sx + len("startxref\n")
	numEnd := numStart + bytes.IndexByte(fixed[numStart:], '\n')
	if numEnd < numStart {
		return nil, fmt.Errorf("malformed startxref")
	}
	return append(append(append([]byte{}, fixed[:numStart]...), strconv.Itoa(xref+1)...), fixed[numEnd:]...), nil
}
