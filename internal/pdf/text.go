package pdf

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/width"
)

// glyphs extracts the positioned characters of a 1-indexed page in
// unrotated top-left coordinates, in content stream order.
func (d *Document) glyphs(pageNr int, geo pageGeometry) (out []glyph, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("content stream: %v", r)
		}
	}()

	p := d.reader.Page(pageNr)
	if p.V.IsNull() {
		return nil, fmt.Errorf("page %d not found", pageNr)
	}
	return toGlyphs(p.Content().Text, geo), nil
}

// toGlyphs converts extracted text runs to glyphs. Composite (Type0)
// fonts come back with zero widths and every rune at the start of the
// show operation, so widths are estimated and stacked runes are laid out
// one after another.
func toGlyphs(texts []pdf.Text, geo pageGeometry) []glyph {
	out := make([]glyph, 0, len(texts))
	var (
		stacked      bool
		lastX, lastY float64
		offset       float64
	)
	for _, t := range texts {
		s := cleanGlyphText(t.S)
		if s == "" {
			continue
		}
		size := math.Abs(t.FontSize)
		if size == 0 {
			size = 1
		}

		w := math.Abs(t.W)
		userX := t.X
		if w == 0 {
			w = estimateAdvance(s, size)
			if stacked && t.X == lastX && t.Y == lastY {
				userX += offset
			} else {
				offset = 0
			}
			offset += w
			stacked = true
			lastX, lastY = t.X, t.Y
		} else {
			stacked = false
		}

		x, baseline := geo.unrotated(userX, t.Y)
		out = append(out, glyph{
			Text:     s,
			Font:     cleanFontName(t.Font),
			Size:     size,
			X:        x,
			Baseline: baseline,
			Width:    w,
		})
	}
	return out
}

// cleanGlyphText drops replacement and control runes left by unmapped
// character codes
func cleanGlyphText(s string) string {
	return strings.Map(func(r rune) rune {
		if r == utf8.RuneError || (unicode.IsControl(r) && r != '\t') {
			return -1
		}
		if r == '\t' {
			return ' '
		}
		return r
	}, s)
}

// estimateAdvance approximates the advance of s when the font reports no
// widths: full width for East Asian wide runes, a quarter em for spaces
// and half an em otherwise.
func estimateAdvance(s string, size float64) float64 {
	var em float64
	for _, r := range s {
		switch k := width.LookupRune(r).Kind(); {
		case unicode.IsSpace(r):
			em += 0.25
		case k == width.EastAsianWide || k == width.EastAsianFullwidth:
			em += 1
		default:
			em += 0.5
		}
	}
	return em * size
}
