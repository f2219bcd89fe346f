package viewer

import (
	"pdf-trans/internal/pdf"
	"pdf-trans/internal/settings"
)

// SegmentView is a segment flattened for the frontend
type SegmentView struct {
	ID          string  `json:"id"`
	Text        string  `json:"text"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	FontFamily  string  `json:"fontFamily"`
	FontSize    float64 `json:"fontSize"`
	Color       string  `json:"color"`
	Bold        bool    `json:"bold"`
	Italic      bool    `json:"italic"`
	Highlighted bool    `json:"highlighted"`
	Link        string  `json:"link,omitempty"`
}

// PageView is everything the frontend draws for one page
type PageView struct {
	PageIndex      int            `json:"pageIndex"`
	PageCount      int            `json:"pageCount"`
	Width          float64        `json:"width"`
	Height         float64        `json:"height"`
	Original       []SegmentView  `json:"original"`
	Translated     []SegmentView  `json:"translated"`
	Images         []pdf.ImageRef `json:"images"`
	Error          string         `json:"error,omitempty"`
	HighlightColor string         `json:"highlightColor"`
	// translated text is drawn with the user's font
	FontFamily string `json:"fontFamily"`
	FontSize   int    `json:"fontSize"`
}

// Present flattens a view model. A nil model yields nil.
func Present(vm *pdf.PageViewModel, pageCount int, s settings.AppSettings) *PageView {
	if vm == nil {
		return nil
	}
	return &PageView{
		PageIndex:      vm.PageNumber - 1,
		PageCount:      pageCount,
		Width:          vm.PageWidth,
		Height:         vm.PageHeight,
		Original:       presentSegments(vm.OriginalSegments),
		Translated:     presentSegments(vm.TranslatedSegments),
		Images:         append([]pdf.ImageRef{}, vm.Images...),
		Error:          vm.ErrorMessage,
		HighlightColor: s.HighlightColorHex,
		FontFamily:     s.FontFamily,
		FontSize:       s.FontSize,
	}
}

func presentSegments(segs []pdf.Segment) []SegmentView {
	out := make([]SegmentView, len(segs))
	for i, s := range segs {
		out[i] = SegmentView{
			ID:          s.ID,
			Text:        s.Text,
			X:           s.Rect.X,
			Y:           s.Rect.Y,
			Width:       s.Rect.Width,
			Height:      s.Rect.Height,
			FontFamily:  s.FontFamily,
			FontSize:    s.FontSize,
			Color:       s.FontColor,
			Bold:        s.IsBold,
			Italic:      s.IsItalic,
			Highlighted: s.IsHighlighted,
			Link:        s.LinkURI,
		}
	}
	return out
}

// View returns the current page flattened with the current settings
func (c *Controller) View() *PageView {
	return Present(c.CurrentView(), c.PageCount(), c.settings.Get())
}
