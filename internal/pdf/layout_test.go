package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// word lays out text as monospaced glyphs half the font size wide
func word(text, font string, size, x, baseline float64) []glyph {
	var out []glyph
	for _, r := range text {
		out = append(out, glyph{Text: string(r), Font: font, Size: size, X: x, Baseline: baseline, Width: size / 2})
		x += size / 2
	}
	return out
}

func concat(parts ...[]glyph) []glyph {
	var out []glyph
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func blockTexts(blocks []textBlock) [][]string {
	var out [][]string
	for _, b := range blocks {
		var lines []string
		for _, l := range b.lines {
			lines = append(lines, l.text())
		}
		out = append(out, lines)
	}
	return out
}

func TestBuildSpans(t *testing.T) {
	cfg := DefaultLayoutConfig()

	tests := []struct {
		name   string
		glyphs []glyph
		want   []string
	}{
		{
			name:   "explicit space glyph",
			glyphs: word("hello world", "F", 10, 0, 100),
			want:   []string{"hello world"},
		},
		{
			name:   "positional gap inserts a space",
			glyphs: concat(word("hello", "F", 10, 0, 100), word("world", "F", 10, 28, 100)),
			want:   []string{"hello world"},
		},
		{
			name:   "font change starts a new span",
			glyphs: concat(word("plain", "F", 10, 0, 100), word("bold", "F-Bold", 10, 25, 100)),
			want:   []string{"plain", "bold"},
		},
		{
			name:   "wide gap starts a new span",
			glyphs: concat(word("left", "F", 10, 0, 100), word("right", "F", 10, 60, 100)),
			want:   []string{"left", "right"},
		},
		{
			name:   "blank glyphs only",
			glyphs: word("   ", "F", 10, 0, 100),
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, s := range buildSpans(tt.glyphs, cfg) {
				got = append(got, s.text)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSegmentGlyphs_Paragraphs(t *testing.T) {
	glyphs := concat(
		word("Title", "F-Bold", 18, 50, 60),
		word("first line", "F", 10, 50, 100),
		word("second line", "F", 10, 50, 112),
		word("after gap", "F", 10, 50, 180),
	)
	blocks := segmentGlyphs(glyphs, DefaultLayoutConfig())
	assert.Equal(t, [][]string{
		{"Title"},
		{"first line", "second line"},
		{"after gap"},
	}, blockTexts(blocks))
}

func TestSegmentGlyphs_TwoColumns(t *testing.T) {
	// glyphs arrive column by column, as most producers emit them
	glyphs := concat(
		word("left one", "F", 10, 50, 100),
		word("left two", "F", 10, 50, 112),
		word("right one", "F", 10, 300, 100),
		word("right two", "F", 10, 300, 112),
	)
	blocks := segmentGlyphs(glyphs, DefaultLayoutConfig())
	assert.Equal(t, [][]string{
		{"left one", "left two"},
		{"right one", "right two"},
	}, blockTexts(blocks))
}

func TestSegmentGlyphs_LineJoinsSpans(t *testing.T) {
	glyphs := concat(
		word("normal", "F", 10, 50, 100),
		word("italic", "F-Italic", 10, 83, 100),
		word("tail", "F", 10, 116, 100),
	)
	blocks := segmentGlyphs(glyphs, DefaultLayoutConfig())
	require.Len(t, blocks, 1)
	require.Len(t, blocks[0].lines, 1)
	line := blocks[0].lines[0]
	assert.Equal(t, "normal italic tail", line.text())
	assert.InDelta(t, 50, line.rect.X, 0.001)
	assert.InDelta(t, 136, line.rect.Right(), 0.001)
}

func TestSegmentGlyphs_Empty(t *testing.T) {
	assert.Empty(t, segmentGlyphs(nil, DefaultLayoutConfig()))
}

func TestBuildSegments_IDsAndLinks(t *testing.T) {
	glyphs := concat(
		word("one", "F", 10, 50, 100),
		word("two", "F", 10, 50, 300),
	)
	geo := newPageGeometry(0, 0, 612, 792, 0)
	links := []pageLink{{Rect: Rect{X: 40, Y: 280, Width: 100, Height: 30}, URI: "page:3"}}

	segs := buildSegments(4, segmentGlyphs(glyphs, DefaultLayoutConfig()), geo, links)
	require.Len(t, segs, 2)
	assert.Equal(t, "orig_line_4_0_0", segs[0].ID)
	assert.Equal(t, "block_4_0", segs[0].BlockID)
	assert.Empty(t, segs[0].LinkURI)
	assert.Equal(t, "orig_line_4_1_0", segs[1].ID)
	assert.Equal(t, "page:3", segs[1].LinkURI)
}

func TestCleanFontName(t *testing.T) {
	tests := map[string]string{
		"ABCDEF+Times-Roman": "Times-Roman",
		"/Helvetica":         "Helvetica",
		"abcdef+Lower":       "abcdef+Lower",
		"Short+":             "Short+",
		"":                   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanFontName(in), in)
	}
}

func TestFontStyle(t *testing.T) {
	tests := []struct {
		name         string
		bold, italic bool
	}{
		{"Helvetica", false, false},
		{"Helvetica-BoldOblique", true, true},
		{"TimesNewRomanPS-ItalicMT", false, true},
		{"ARIAL-BOLD", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bold, italic := fontStyle(tt.name)
			assert.Equal(t, tt.bold, bold)
			assert.Equal(t, tt.italic, italic)
		})
	}
}
