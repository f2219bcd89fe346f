package pdf

import (
	"math"
	"sort"
	"strings"
)

// glyph is one positioned character in unrotated top-left coordinates
type glyph struct {
	Text     string
	Font     string
	Size     float64
	X        float64
	Baseline float64
	Width    float64
}

func (g glyph) rect() Rect {
	w := g.Width
	if w <= 0 {
		w = g.Size * 0.5
	}
	return Rect{X: g.X, Y: g.Baseline - 0.8*g.Size, Width: w, Height: g.Size}
}

// LayoutConfig holds the ratios (relative to font size) used to group
// glyphs into spans, lines and blocks.
type LayoutConfig struct {
	SpaceGapRatio     float64 // gap that inserts a space inside a span
	SpanGapRatio      float64 // gap that ends a span
	BaselineTolerance float64 // baseline drift still on the same line
	LineGapRatio      float64 // horizontal gap that splits a line (columns)
	BlockGapRatio     float64 // vertical gap, in line heights, still in one block
	FontSizeTolerance float64 // relative size difference still in one block
}

// DefaultLayoutConfig returns the grouping ratios tuned for body text
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		SpaceGapRatio:     0.15,
		SpanGapRatio:      1.0,
		BaselineTolerance: 0.5,
		LineGapRatio:      3.0,
		BlockGapRatio:     1.5,
		FontSizeTolerance: 0.2,
	}
}

type span struct {
	text     string
	font     string
	size     float64
	baseline float64
	rect     Rect
}

type textLine struct {
	spans    []span
	rect     Rect
	baseline float64
	size     float64
}

func (l textLine) text() string {
	parts := make([]string, 0, len(l.spans))
	for _, s := range l.spans {
		parts = append(parts, s.text)
	}
	return strings.Join(parts, " ")
}

type textBlock struct {
	lines []textLine
}

// buildSpans merges glyphs in content order into runs of the same font,
// size and baseline.
func buildSpans(glyphs []glyph, cfg LayoutConfig) []span {
	var (
		spans []span
		cur   *span
	)
	flush := func() {
		if cur == nil {
			return
		}
		cur.text = strings.TrimSpace(cur.text)
		if cur.text != "" {
			spans = append(spans, *cur)
		}
		cur = nil
	}

	for _, g := range glyphs {
		if g.Text == "" || g.Size <= 0 {
			continue
		}
		blank := strings.TrimSpace(g.Text) == ""
		if cur != nil && cur.accepts(g, cfg) {
			gap := g.X - cur.rect.Right()
			if !blank && gap > cfg.SpaceGapRatio*g.Size && !strings.HasSuffix(cur.text, " ") {
				cur.text += " "
			}
			if blank {
				if !strings.HasSuffix(cur.text, " ") {
					cur.text += " "
				}
				continue
			}
			cur.text += g.Text
			cur.rect = cur.rect.Union(g.rect())
			continue
		}
		flush()
		if blank {
			continue
		}
		cur = &span{
			text:     g.Text,
			font:     g.Font,
			size:     g.Size,
			baseline: g.Baseline,
			rect:     g.rect(),
		}
	}
	flush()
	return spans
}

func (s *span) accepts(g glyph, cfg LayoutConfig) bool {
	if g.Font != s.font || math.Abs(g.Size-s.size) > 0.01*s.size {
		return false
	}
	if math.Abs(g.Baseline-s.baseline) > cfg.BaselineTolerance*s.size {
		return false
	}
	gap := g.X - s.rect.Right()
	return gap >= -0.5*s.size && gap <= cfg.SpanGapRatio*s.size
}

// buildLines groups spans sharing a baseline, then splits each group at
// wide horizontal gaps so side-by-side columns stay apart.
func buildLines(spans []span, cfg LayoutConfig) []textLine {
	if len(spans) == 0 {
		return nil
	}
	sorted := make([]span, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].baseline < sorted[j].baseline
	})

	var groups [][]span
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i < len(sorted) {
			ref := sorted[start]
			tol := cfg.BaselineTolerance * math.Max(ref.size, sorted[i].size)
			if sorted[i].baseline-ref.baseline <= tol {
				continue
			}
		}
		groups = append(groups, sorted[start:i])
		start = i
	}

	var lines []textLine
	for _, g := range groups {
		group := make([]span, len(g))
		copy(group, g)
		sort.SliceStable(group, func(i, j int) bool { return group[i].rect.X < group[j].rect.X })

		cur := newLine(group[0])
		for _, s := range group[1:] {
			gap := s.rect.X - cur.rect.Right()
			if gap > cfg.LineGapRatio*math.Max(cur.size, s.size) {
				lines = append(lines, cur)
				cur = newLine(s)
				continue
			}
			cur.spans = append(cur.spans, s)
			cur.rect = cur.rect.Union(s.rect)
		}
		lines = append(lines, cur)
	}
	return lines
}

func newLine(s span) textLine {
	return textLine{spans: []span{s}, rect: s.rect, baseline: s.baseline, size: s.size}
}

// buildBlocks attaches each line, top to bottom, to the most recent block
// whose last line sits directly above it; otherwise it opens a new block.
func buildBlocks(lines []textLine, cfg LayoutConfig) []textBlock {
	var blocks []textBlock
	for _, l := range lines {
		target := -1
		for i := len(blocks) - 1; i >= 0; i-- {
			if continuesBlock(blocks[i], l, cfg) {
				target = i
				break
			}
		}
		if target < 0 {
			blocks = append(blocks, textBlock{lines: []textLine{l}})
			continue
		}
		blocks[target].lines = append(blocks[target].lines, l)
	}
	return blocks
}

func continuesBlock(b textBlock, l textLine, cfg LayoutConfig) bool {
	last := b.lines[len(b.lines)-1]
	if l.baseline <= last.baseline {
		return false
	}
	if math.Abs(l.size-last.size) > cfg.FontSizeTolerance*math.Max(l.size, last.size) {
		return false
	}
	gap := l.rect.Y - last.rect.Bottom()
	height := math.Max(last.rect.Height, l.rect.Height)
	if gap > cfg.BlockGapRatio*height {
		return false
	}
	return l.rect.X < last.rect.Right() && last.rect.X < l.rect.Right()
}

// segmentGlyphs runs the full glyph -> span -> line -> block grouping
func segmentGlyphs(glyphs []glyph, cfg LayoutConfig) []textBlock {
	return buildBlocks(buildLines(buildSpans(glyphs, cfg), cfg), cfg)
}

// cleanFontName strips a subset tag such as "ABCDEF+" from a base font name
func cleanFontName(name string) string {
	name = strings.TrimPrefix(name, "/")
	if len(name) > 7 && name[6] == '+' {
		tagged := true
		for _, c := range name[:6] {
			if c < 'A' || c > 'Z' {
				tagged = false
				break
			}
		}
		if tagged {
			name = name[7:]
		}
	}
	return name
}

// fontStyle detects bold and italic from a font name
func fontStyle(name string) (bold, italic bool) {
	lower := strings.ToLower(name)
	bold = strings.Contains(lower, "bold")
	italic = strings.Contains(lower, "italic") || strings.Contains(lower, "oblique")
	return bold, italic
}
