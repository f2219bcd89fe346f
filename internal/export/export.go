// Package export writes translated pages to a new PDF. Each translated
// segment is drawn inside its original rectangle on a blank page of the
// source page's size, shrinking the font until the text fits.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/signintech/gopdf"

	"pdf-trans/internal/logger"
	"pdf-trans/internal/pdf"
)

const (
	fontRegular = "regular"
	fontBold    = "bold"

	// MinFontSize is the smallest size text is shrunk to
	MinFontSize = 4.0
	// lineSpacing is the line height as a multiple of the font size
	lineSpacing = 1.15
)

// fallbackFonts are tried when no font path is configured. They cover
// Hangul and CJK on common desktops.
var fallbackFonts = []string{
	"/usr/share/fonts/truetype/nanum/NanumGothic.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/Library/Fonts/Arial Unicode.ttf",
	"/System/Library/Fonts/Supplemental/Arial Unicode.ttf",
	"C:/Windows/Fonts/malgun.ttf",
	"C:/Windows/Fonts/arial.ttf",
}

// Options configures an Exporter
type Options struct {
	FontPath     string // TrueType font for regular text
	BoldFontPath string // optional, defaults to FontPath
}

// Exporter renders translated view models with gopdf
type Exporter struct {
	opts Options
}

// NewExporter creates an exporter
func NewExporter(opts Options) *Exporter {
	return &Exporter{opts: opts}
}

// ResolveFont returns the configured font, or the first fallback that
// exists on this machine
func (e *Exporter) ResolveFont() (string, error) {
	if e.opts.FontPath != "" {
		if _, err := os.Stat(e.opts.FontPath); err != nil {
			return "", pdf.NewPDFError(pdf.ErrExportFailed, "export font not found", err)
		}
		return e.opts.FontPath, nil
	}
	for _, p := range fallbackFonts {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", pdf.NewPDFError(pdf.ErrExportFailed, "no TrueType font available; set export_font_path", nil)
}

// Export writes one output page per view model to outPath
func (e *Exporter) Export(pages []*pdf.PageViewModel, outPath string) error {
	if len(pages) == 0 {
		return pdf.NewPDFError(pdf.ErrExportFailed, "nothing to export", nil)
	}
	fontPath, err := e.ResolveFont()
	if err != nil {
		return err
	}

	doc := &gopdf.GoPdf{}
	doc.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	if err := doc.AddTTFFont(fontRegular, fontPath); err != nil {
		return pdf.NewPDFError(pdf.ErrExportFailed, "failed to load font "+fontPath, err)
	}
	boldPath := e.opts.BoldFontPath
	if boldPath == "" {
		boldPath = fontPath
	}
	if err := doc.AddTTFFont(fontBold, boldPath); err != nil {
		logger.Warn("bold font unavailable, using regular", logger.String("path", boldPath), logger.Err(err))
		if err := doc.AddTTFFont(fontBold, fontPath); err != nil {
			return pdf.NewPDFError(pdf.ErrExportFailed, "failed to load font "+fontPath, err)
		}
	}

	for _, vm := range pages {
		if vm == nil {
			continue
		}
		doc.AddPageWithOption(gopdf.PageOption{PageSize: &gopdf.Rect{W: vm.PageWidth, H: vm.PageHeight}})
		for _, seg := range vm.TranslatedSegments {
			if err := drawSegment(doc, seg); err != nil {
				return pdf.NewPDFErrorWithPage(pdf.ErrExportFailed,
					fmt.Sprintf("failed to draw segment %s", seg.ID), vm.PageNumber, err)
			}
		}
	}

	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return pdf.NewPDFError(pdf.ErrExportFailed, "failed to create output directory", err)
		}
	}
	if err := doc.WritePdf(outPath); err != nil {
		return pdf.NewPDFError(pdf.ErrExportFailed, "failed to write "+outPath, err)
	}

	logger.Info("translated pages exported",
		logger.String("path", outPath),
		logger.Int("pages", len(pages)))
	return nil
}

func drawSegment(doc *gopdf.GoPdf, seg pdf.Segment) error {
	text := strings.TrimSpace(seg.Text)
	if text == "" || !seg.Rect.IsValid() {
		return nil
	}
	family := fontRegular
	if seg.IsBold {
		family = fontBold
	}
	size := seg.FontSize
	if size <= 0 {
		size = seg.Rect.Height
	}
	if size < MinFontSize {
		size = MinFontSize
	}

	lines, size, err := fitText(doc, family, text, seg.Rect, size)
	if err != nil {
		return err
	}

	r, g, b := textColor(seg.FontColor)
	doc.SetTextColor(r, g, b)
	y := seg.Rect.Y
	for _, line := range lines {
		doc.SetXY(seg.Rect.X, y)
		if err := doc.Cell(nil, line); err != nil {
			return err
		}
		y += size * lineSpacing
	}
	return nil
}

// fitText wraps text to the rectangle width and shrinks the font until
// the wrapped lines fit its height or MinFontSize is reached
func fitText(doc *gopdf.GoPdf, family, text string, rect pdf.Rect, size float64) ([]string, float64, error) {
	for {
		if err := doc.SetFont(family, "", size); err != nil {
			return nil, size, err
		}
		lines, err := wrap(doc, text, rect.Width)
		if err != nil {
			return nil, size, err
		}
		if float64(len(lines))*size*lineSpacing <= rect.Height || size <= MinFontSize {
			return lines, size, nil
		}
		size = size * 0.9
		if size < MinFontSize {
			size = MinFontSize
		}
	}
}

func wrap(doc *gopdf.GoPdf, text string, width float64) ([]string, error) {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		lines, err := doc.SplitText(para, width)
		if err != nil {
			// rectangle narrower than a single glyph
			out = append(out, para)
			continue
		}
		out = append(out, lines...)
	}
	return out, nil
}

// textColor parses a #rrggbb colour, defaulting to black
func textColor(hex string) (uint8, uint8, uint8) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return 0, 0, 0
	}
	return c.RGB255()
}
