package pdf

import (
	"fmt"
	"strings"

	"pdf-trans/internal/logger"
)

// Segment id prefixes of the two views
const (
	OriginalPrefix   = "orig_"
	TranslatedPrefix = "trans_"

	DefaultFontColor = "#000000"
)

// BlockID returns the id of block b on the 0-based page p
func BlockID(page, block int) string {
	return fmt.Sprintf("block_%d_%d", page, block)
}

// LineID returns the id of line l of block b on the 0-based page p
func LineID(page, block, line int) string {
	return fmt.Sprintf("line_%d_%d_%d", page, block, line)
}

// ParsePage extracts the view model of a 0-based page. Failures while
// reading the page content are reported in ErrorMessage; only a closed
// document or an out of range index return an error.
func (d *Document) ParsePage(pageIndex int) (*PageViewModel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, NewPDFError(ErrDocumentClosed, "document is closed", nil)
	}
	if pageIndex < 0 || pageIndex >= d.pageCount {
		return nil, NewPDFErrorWithPage(ErrPageOutOfRange,
			fmt.Sprintf("page index %d out of range [0, %d)", pageIndex, d.pageCount), pageIndex+1, nil)
	}

	pageNr := pageIndex + 1
	geo, pageDict, resources := d.pageSetup(pageNr)
	width, height := geo.Size()
	vm := &PageViewModel{
		PageNumber:         pageNr,
		PageWidth:          width,
		PageHeight:         height,
		OriginalSegments:   []Segment{},
		TranslatedSegments: []Segment{},
		Images:             []ImageRef{},
	}

	var links []pageLink
	if pageDict != nil {
		links = d.pageLinks(pageDict, geo)
	}

	if d.ctx != nil {
		images, err := d.pageImages(pageNr, resources, geo)
		if err != nil {
			logger.Warn("image scan failed", logger.Page(pageNr), logger.Err(err))
		}
		vm.Images = append(vm.Images, images...)
	}

	glyphs, err := d.glyphs(pageNr, geo)
	if err != nil {
		logger.Error("text extraction failed", err, logger.Page(pageNr))
		vm.ErrorMessage = NewPDFErrorWithPage(ErrExtractFailed, "text extraction failed", pageNr, err).Error()
		return vm, nil
	}

	vm.OriginalSegments = buildSegments(pageIndex, segmentGlyphs(glyphs, d.layout), geo, links)
	vm.TranslatedSegments = InitialTranslatedSegments(vm.OriginalSegments)

	logger.Debug("page parsed",
		logger.Page(pageNr),
		logger.Int("segments", len(vm.OriginalSegments)),
		logger.Int("links", len(links)),
		logger.Int("images", len(vm.Images)))
	return vm, nil
}

// buildSegments turns grouped lines into original segments, one per
// non-blank line.
func buildSegments(pageIndex int, blocks []textBlock, geo pageGeometry, links []pageLink) []Segment {
	segments := []Segment{}
	for b, block := range blocks {
		blockID := BlockID(pageIndex, b)
		for l, line := range block.lines {
			text := line.text()
			if strings.TrimSpace(text) == "" {
				continue
			}
			lineID := LineID(pageIndex, b, l)
			rect := geo.rotateRect(line.rect)
			first := line.spans[0]
			bold, italic := fontStyle(first.font)

			segments = append(segments, Segment{
				ID:         OriginalPrefix + lineID,
				Text:       text,
				Rect:       rect,
				FontFamily: first.font,
				FontSize:   first.size,
				FontColor:  DefaultFontColor,
				IsBold:     bold,
				IsItalic:   italic,
				LinkURI:    linkFor(links, rect),
				BlockID:    blockID,
				LineID:     lineID,
			})
		}
	}
	return segments
}

// InitialTranslatedSegments seeds the translated view with the original
// text so it is readable before any translation arrives.
func InitialTranslatedSegments(original []Segment) []Segment {
	out := make([]Segment, 0, len(original))
	for _, s := range original {
		t := s
		t.ID = TranslatedPrefix + strings.TrimPrefix(s.ID, OriginalPrefix)
		t.LinkURI = ""
		t.IsHighlighted = false
		out = append(out, t)
	}
	return out
}
