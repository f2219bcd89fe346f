// Package pdf opens PDF documents and turns pages into view models: text
// segments grouped into lines and blocks, hyperlinks, lazy image
// references and the document outline.
package pdf

import "math"

// Rect is an axis-aligned rectangle in top-left-origin page points
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectFromCorners builds a rectangle from two opposite corners in any order
func RectFromCorners(x0, y0, x1, y1 float64) Rect {
	return Rect{
		X:      math.Min(x0, x1),
		Y:      math.Min(y0, y1),
		Width:  math.Abs(x1 - x0),
		Height: math.Abs(y1 - y0),
	}
}

// Right returns the right edge
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the bottom edge
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// IsEmpty reports whether the rectangle has no area
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// IsValid reports whether the rectangle is finite with positive area
func (r Rect) IsValid() bool {
	for _, v := range []float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return !r.IsEmpty()
}

// Union returns the smallest rectangle containing r and o. An empty
// operand is ignored so a zero Rect can seed an accumulation.
func (r Rect) Union(o Rect) Rect {
	if r.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return r
	}
	return RectFromCorners(
		math.Min(r.X, o.X), math.Min(r.Y, o.Y),
		math.Max(r.Right(), o.Right()), math.Max(r.Bottom(), o.Bottom()),
	)
}

// Intersects reports whether r and o overlap with positive area.
// Rectangles that only touch along an edge do not intersect.
func (r Rect) Intersects(o Rect) bool {
	if r.IsEmpty() || o.IsEmpty() {
		return false
	}
	return r.X < o.Right() && o.X < r.Right() && r.Y < o.Bottom() && o.Y < r.Bottom()
}

// Contains reports whether the point lies inside r (edges inclusive)
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.Right() && y >= r.Y && y <= r.Bottom()
}

// Segment is one unit of extracted text with position, style and grouping
type Segment struct {
	ID            string  `json:"id"`
	Text          string  `json:"text"`
	Rect          Rect    `json:"rect"`
	FontFamily    string  `json:"font_family"`
	FontSize      float64 `json:"font_size"`
	FontColor     string  `json:"font_color"`
	IsBold        bool    `json:"is_bold"`
	IsItalic      bool    `json:"is_italic"`
	IsHighlighted bool    `json:"is_highlighted"`
	LinkURI       string  `json:"link_uri,omitempty"`
	BlockID       string  `json:"block_id,omitempty"`
	LineID        string  `json:"line_id,omitempty"`
}

// ImageRef points at an image XObject without loading its pixels
type ImageRef struct {
	XRef int  `json:"xref"`
	Rect Rect `json:"rect"`
}

// PageViewModel bundles everything the viewer needs for one page
type PageViewModel struct {
	PageNumber         int        `json:"page_number"` // 1-indexed
	PageWidth          float64    `json:"page_width"`
	PageHeight         float64    `json:"page_height"`
	OriginalSegments   []Segment  `json:"original_segments"`
	TranslatedSegments []Segment  `json:"translated_segments"`
	Images             []ImageRef `json:"images"`
	ErrorMessage       string     `json:"error_message,omitempty"`
}

// SegmentIDs returns the ids of both views, originals first
func (vm *PageViewModel) SegmentIDs() []string {
	ids := make([]string, 0, len(vm.OriginalSegments)+len(vm.TranslatedSegments))
	for _, s := range vm.OriginalSegments {
		ids = append(ids, s.ID)
	}
	for _, s := range vm.TranslatedSegments {
		ids = append(ids, s.ID)
	}
	return ids
}

// Segment looks up a segment of either view by id
func (vm *PageViewModel) Segment(id string) (Segment, bool) {
	for _, list := range [][]Segment{vm.OriginalSegments, vm.TranslatedSegments} {
		for _, s := range list {
			if s.ID == id {
				return s, true
			}
		}
	}
	return Segment{}, false
}

// TOCEntry is one row of the flat table of contents
type TOCEntry struct {
	Level int    `json:"level"` // 1-based depth
	Title string `json:"title"`
	Page  int    `json:"page"` // 1-indexed, 0 when unresolved
}

// OutlineItem is a node of the nested outline
type OutlineItem struct {
	Level    int           `json:"level"`
	Title    string        `json:"title"`
	Page     int           `json:"page"`
	Children []OutlineItem `json:"children,omitempty"`
}

// DocumentInfo describes an opened document
type DocumentInfo struct {
	FilePath  string `json:"file_path"`
	FileName  string `json:"file_name"`
	PageCount int    `json:"page_count"`
	FileSize  int64  `json:"file_size"`
	IsTextPDF bool   `json:"is_text_pdf"`
}

// PDFErrorCode enumerates document level failures
type PDFErrorCode string

const (
	ErrPDFNotFound    PDFErrorCode = "PDF_NOT_FOUND"
	ErrPDFInvalid     PDFErrorCode = "PDF_INVALID"
	ErrPageOutOfRange PDFErrorCode = "PAGE_OUT_OF_RANGE"
	ErrExtractFailed  PDFErrorCode = "EXTRACT_FAILED"
	ErrOutlineFailed  PDFErrorCode = "OUTLINE_FAILED"
	ErrDocumentClosed PDFErrorCode = "DOCUMENT_CLOSED"
	ErrExportFailed   PDFErrorCode = "EXPORT_FAILED"
)

// PDFError is a coded document error
type PDFError struct {
	Code    PDFErrorCode `json:"code"`
	Message string       `json:"message"`
	Details string       `json:"details,omitempty"`
	Page    int          `json:"page,omitempty"`
	Cause   error        `json:"-"`
}

// Error implements the error interface for PDFError
func (e *PDFError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// Unwrap returns the underlying cause of the error
func (e *PDFError) Unwrap() error {
	return e.Cause
}

// NewPDFError creates a new PDFError with the given code, message, and optional cause
func NewPDFError(code PDFErrorCode, message string, cause error) *PDFError {
	return &PDFError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewPDFErrorWithPage creates a new PDFError carrying a 1-indexed page
func NewPDFErrorWithPage(code PDFErrorCode, message string, page int, cause error) *PDFError {
	return &PDFError{
		Code:    code,
		Message: message,
		Page:    page,
		Cause:   cause,
	}
}

// ErrorCode returns the code of the first PDFError in err's chain, or "".
func ErrorCode(err error) PDFErrorCode {
	for err != nil {
		if pe, ok := err.(*PDFError); ok {
			return pe.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
