package viewer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-trans/internal/pdf"
	"pdf-trans/internal/pdf/pdftest"
	"pdf-trans/internal/settings"
)

func TestPresent(t *testing.T) {
	assert.Nil(t, Present(nil, 3, settings.Default()))

	vm := &pdf.PageViewModel{
		PageNumber: 2,
		PageWidth:  612,
		PageHeight: 792,
		OriginalSegments: []pdf.Segment{{
			ID: "orig_line_1_0_0", Text: "Hi", Rect: pdf.Rect{X: 1, Y: 2, Width: 3, Height: 4},
			FontFamily: "Times", FontSize: 11, FontColor: "#000000", IsItalic: true, IsHighlighted: true, LinkURI: "page:0",
		}},
		TranslatedSegments: []pdf.Segment{{ID: "trans_block_1_0", Text: "안녕"}},
		ErrorMessage:       "partial",
	}
	s := settings.Default()
	s.FontSize = 14

	got := Present(vm, 3, s)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.PageIndex)
	assert.Equal(t, 3, got.PageCount)
	assert.Equal(t, "partial", got.Error)
	assert.Equal(t, settings.DefaultHighlightColorHex, got.HighlightColor)
	assert.Equal(t, 14, got.FontSize)
	assert.NotNil(t, got.Images)

	require.Len(t, got.Original, 1)
	assert.Equal(t, SegmentView{
		ID: "orig_line_1_0_0", Text: "Hi", X: 1, Y: 2, Width: 3, Height: 4,
		FontFamily: "Times", FontSize: 11, Color: "#000000", Italic: true, Highlighted: true, Link: "page:0",
	}, got.Original[0])
	require.Len(t, got.Translated, 1)
	assert.Equal(t, "안녕", got.Translated[0].Text)
}

func TestController_View(t *testing.T) {
	c := newTestController(t, &fakeGateway{}, noPrefetch())
	assert.Nil(t, c.View())

	_, err := c.Open(pdftest.WriteSample(t))
	require.NoError(t, err)
	v := c.View()
	require.NotNil(t, v)
	assert.Equal(t, 0, v.PageIndex)
	assert.Equal(t, 2, v.PageCount)
	assert.Len(t, v.Original, 4)
	assert.Len(t, v.Images, 1)
}
