package pdf

import (
	"bytes"
	"io"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// pageImages lists the image XObjects painted by the page content stream.
// Pixel data is never decoded; only the object number and placement are
// recorded. Form XObjects are not entered.
func (d *Document) pageImages(pageNr int, resources types.Dict, geo pageGeometry) ([]ImageRef, error) {
	images := d.imageXObjects(resources)
	if len(images) == 0 {
		return nil, nil
	}

	r, err := pdfcpu.ExtractPageContent(d.ctx, pageNr)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, nil
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var refs []ImageRef
	for _, p := range scanImagePlacements(content) {
		xref, ok := images[p.name]
		if !ok {
			continue
		}
		x0, y0, x1, y1 := p.ctm.unitSquareBounds()
		rect := geo.userRect(x0, y0, x1, y1)
		if !rect.IsValid() {
			continue
		}
		refs = append(refs, ImageRef{XRef: xref, Rect: rect})
	}
	return refs, nil
}

// imageXObjects maps resource names to object numbers of image XObjects
func (d *Document) imageXObjects(resources types.Dict) map[string]int {
	if resources == nil {
		return nil
	}
	xobjects, ok := d.objs.dict(resources["XObject"])
	if !ok {
		return nil
	}
	images := make(map[string]int)
	for name, obj := range xobjects {
		ref, ok := obj.(types.IndirectRef)
		if !ok {
			continue
		}
		x, ok := d.objs.dict(ref)
		if !ok {
			continue
		}
		if subtype, _ := d.objs.name(x["Subtype"]); subtype == "Image" {
			images[name] = int(ref.ObjectNumber)
		}
	}
	return images
}

type imagePlacement struct {
	name string
	ctm  matrix
}

// scanImagePlacements walks a content stream tracking the graphics state
// stack and reports every Do operator with the CTM in force.
func scanImagePlacements(content []byte) []imagePlacement {
	var (
		placements []imagePlacement
		ctm        = identity
		stack      []matrix
		operands   []string
	)
	lx := &contentLexer{data: content}
	for {
		tok, kind := lx.next()
		if kind == tokEOF {
			break
		}
		switch kind {
		case tokOperand:
			operands = append(operands, tok)
			continue
		case tokSkip:
			operands = append(operands, "")
			continue
		}

		switch tok {
		case "q":
			stack = append(stack, ctm)
		case "Q":
			if n := len(stack); n > 0 {
				ctm = stack[n-1]
				stack = stack[:n-1]
			}
		case "cm":
			if m, ok := parseMatrix(operands); ok {
				ctm = m.multiply(ctm)
			}
		case "Do":
			if n := len(operands); n > 0 && len(operands[n-1]) > 1 && operands[n-1][0] == '/' {
				placements = append(placements, imagePlacement{name: operands[n-1][1:], ctm: ctm})
			}
		case "BI":
			lx.skipInlineImage()
		}
		operands = operands[:0]
	}
	return placements
}

func parseMatrix(operands []string) (matrix, bool) {
	if len(operands) < 6 {
		return matrix{}, false
	}
	var m matrix
	for i, s := range operands[len(operands)-6:] {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return matrix{}, false
		}
		m[i] = v
	}
	return m, true
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokOperand
	tokSkip // strings, arrays and dictionaries, which no tracked operator reads
	tokOperator
)

// contentLexer is a minimal content stream tokenizer
type contentLexer struct {
	data []byte
	pos  int
}

func isWhite(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isDelim(c byte) bool {
	return bytes.IndexByte([]byte("()<>[]{}/%"), c) >= 0
}

func (l *contentLexer) next() (string, tokenKind) {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case isWhite(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		case c == '(':
			l.skipLiteral()
			return "", tokSkip
		case c == '<':
			if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
				l.skipNested('<', '>', 2)
			} else {
				for l.pos < len(l.data) && l.data[l.pos] != '>' {
					l.pos++
				}
				l.pos++
			}
			return "", tokSkip
		case c == '[':
			l.skipNested('[', ']', 1)
			return "", tokSkip
		case c == '/':
			start := l.pos
			l.pos++
			for l.pos < len(l.data) && !isWhite(l.data[l.pos]) && !isDelim(l.data[l.pos]) {
				l.pos++
			}
			return string(l.data[start:l.pos]), tokOperand
		case c == ']' || c == '>' || c == ')' || c == '{' || c == '}':
			l.pos++
		default:
			start := l.pos
			for l.pos < len(l.data) && !isWhite(l.data[l.pos]) && !isDelim(l.data[l.pos]) {
				l.pos++
			}
			tok := string(l.data[start:l.pos])
			if _, err := strconv.ParseFloat(tok, 64); err == nil {
				return tok, tokOperand
			}
			return tok, tokOperator
		}
	}
	return "", tokEOF
}

func (l *contentLexer) skipLiteral() {
	depth := 0
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '\\':
			l.pos++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return
			}
		}
	}
}

// skipNested skips a bracketed construct; width is the delimiter length
// (2 for << >>). Nested strings are honoured.
func (l *contentLexer) skipNested(open, shut byte, width int) {
	depth := 0
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case c == '(':
			l.skipLiteral()
			continue
		case c == open && (width == 1 || l.peek(1) == open):
			depth++
			l.pos += width
			continue
		case c == shut && (width == 1 || l.peek(1) == shut):
			depth--
			l.pos += width
			if depth == 0 {
				return
			}
			continue
		}
		l.pos++
	}
}

func (l *contentLexer) peek(off int) byte {
	if l.pos+off < len(l.data) {
		return l.data[l.pos+off]
	}
	return 0
}

// skipInlineImage jumps past "ID <data> EI"
func (l *contentLexer) skipInlineImage() {
	idx := bytes.Index(l.data[l.pos:], []byte("ID"))
	if idx < 0 {
		l.pos = len(l.data)
		return
	}
	l.pos += idx + 2
	for l.pos < len(l.data) {
		end := bytes.Index(l.data[l.pos:], []byte("EI"))
		if end < 0 {
			l.pos = len(l.data)
			return
		}
		at := l.pos + end
		before := at == 0 || isWhite(l.data[at-1])
		after := at+2 >= len(l.data) || isWhite(l.data[at+2])
		l.pos = at + 2
		if before && after {
			return
		}
	}
}
