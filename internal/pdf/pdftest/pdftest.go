// Package pdftest writes small hand-built PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signintech/gopdf"
)

// Builder writes a small uncompressed PDF with a correct xref table
type Builder struct {
	objects []string
}

// Add appends an object and returns its number
func (b *Builder) Add(body string) int {
	b.objects = append(b.objects, body)
	return len(b.objects)
}

// Set replaces the body of object n
func (b *Builder) Set(n int, body string) {
	b.objects[n-1] = body
}

// Stream formats an uncompressed stream object
func Stream(dict, data string) string {
	return fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(data), data)
}

// Bytes serialises the file with root as the catalog
func (b *Builder) Bytes(root int) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")
	offsets := make([]int, len(b.objects))
	for i, body := range b.objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(b.objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(b.objects)+1, root, xref)
	return buf.Bytes()
}

// FontObject is a Type1 font with fixed 500 unit widths
func FontObject(base string) string {
	widths := strings.TrimSpace(strings.Repeat("500 ", 95))
	return fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /%s /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [%s] >>", base, widths)
}

// WriteSample creates a two page document:
//
//	page 1: a bold heading, a two-line paragraph with a URI link on its
//	        first line, a paragraph linking to page 2, and one image
//	page 2: rotated 90 degrees with a single word
//
// plus a three entry outline.
func WriteSample(t testing.TB) string {
	t.Helper()
	b := &Builder{}
	catalog := b.Add("")
	pages := b.Add("")
	page1 := b.Add("")
	page2 := b.Add("")
	font := b.Add(FontObject("Helvetica"))
	bold := b.Add(FontObject("Helvetica-Bold"))
	content1 := b.Add(Stream("", strings.Join([]string{
		"BT /F2 18 Tf 72 720 Td (Heading) Tj ET",
		"BT /F1 12 Tf 72 690 Td (First line of text) Tj ET",
		"BT /F1 12 Tf 72 676 Td (second line here) Tj ET",
		"BT /F1 12 Tf 72 600 Td (Another paragraph) Tj ET",
		"q 100 0 0 50 300 400 cm /Im1 Do Q",
	}, "\n")))
	image := b.Add(Stream("/Type /XObject /Subtype /Image /Width 1 /Height 1 /ColorSpace /DeviceGray /BitsPerComponent 8", "\xff"))
	outlines := b.Add("")
	intro := b.Add("")
	appendix := b.Add("")
	uriAnnot := b.Add("<< /Type /Annot /Subtype /Link /Rect [70 688 200 702] /Border [0 0 0] /A << /S /URI /URI (https://example.com/docs) >> >>")
	gotoAnnot := b.Add(fmt.Sprintf("<< /Type /Annot /Subtype /Link /Rect [70 595 200 610] /Border [0 0 0] /Dest [%d 0 R /Fit] >>", page2))
	content2 := b.Add(Stream("", "BT /F1 12 Tf 72 720 Td (Rotated) Tj ET"))
	details := b.Add("")

	b.Set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R /Outlines %d 0 R >>", pages, outlines))
	b.Set(pages, fmt.Sprintf("<< /Type /Pages /Kids [%d 0 R %d 0 R] /Count 2 >>", page1, page2))
	b.Set(page1, fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R /F2 %d 0 R >> /XObject << /Im1 %d 0 R >> >> /Contents %d 0 R /Annots [%d 0 R %d 0 R] >>",
		pages, font, bold, image, content1, uriAnnot, gotoAnnot))
	b.Set(page2, fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Rotate 90 /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
		pages, font, content2))
	b.Set(outlines, fmt.Sprintf("<< /Type /Outlines /First %d 0 R /Last %d 0 R /Count 3 >>", intro, appendix))
	b.Set(intro, fmt.Sprintf("<< /Title (Introduction) /Parent %d 0 R /Next %d 0 R /First %d 0 R /Last %d 0 R /Count 1 /Dest [%d 0 R /XYZ 0 792 0] >>",
		outlines, appendix, details, details, page1))
	b.Set(details, fmt.Sprintf("<< /Title (Details) /Parent %d 0 R /Dest [%d 0 R /Fit] >>", intro, page2))
	b.Set(appendix, fmt.Sprintf("<< /Title (Appendix) /Parent %d 0 R /Prev %d 0 R /A << /S /GoTo /D [%d 0 R /Fit] >> >>",
		outlines, intro, page2))

	path := filepath.Join(t.TempDir(), "sample.pdf")
	if err := os.WriteFile(path, b.Bytes(catalog), 0644); err != nil {
		t.Fatalf("Failed to write sample PDF: %v", err)
	}
	return path
}

// WriteBlank creates a one page document without text
func WriteBlank(t testing.TB) string {
	t.Helper()
	b := &Builder{}
	catalog := b.Add("")
	pages := b.Add("")
	page := b.Add("")
	content := b.Add(Stream("", "q Q"))
	b.Set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pages))
	b.Set(pages, fmt.Sprintf("<< /Type /Pages /Kids [%d 0 R] /Count 1 >>", page))
	b.Set(page, fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [0 0 595 842] /Resources << >> /Contents %d 0 R >>", pages, content))

	path := filepath.Join(t.TempDir(), "blank.pdf")
	if err := os.WriteFile(path, b.Bytes(catalog), 0644); err != nil {
		t.Fatalf("Failed to write blank PDF: %v", err)
	}
	return path
}

// WriteLinks creates a one page document whose lines each carry one kind
// of link annotation:
//
//	"Launch link"   Launch action opening other.pdf
//	"Named link"    Named action NextPage
//	"Broken goto"   explicit destination to a page that does not exist
//	"Chapter link"  named destination chapter1, resolved through /Names
//	"Missing dest"  named destination absent from the document
func WriteLinks(t testing.TB) string {
	t.Helper()
	b := &Builder{}
	catalog := b.Add("")
	pages := b.Add("")
	page := b.Add("")
	font := b.Add(FontObject("Helvetica"))
	content := b.Add(Stream("", strings.Join([]string{
		"BT /F1 12 Tf 72 720 Td (Launch link) Tj ET",
		"BT /F1 12 Tf 72 660 Td (Named link) Tj ET",
		"BT /F1 12 Tf 72 600 Td (Broken goto) Tj ET",
		"BT /F1 12 Tf 72 540 Td (Chapter link) Tj ET",
		"BT /F1 12 Tf 72 480 Td (Missing dest) Tj ET",
	}, "\n")))
	annot := func(y int, action string) int {
		return b.Add(fmt.Sprintf("<< /Type /Annot /Subtype /Link /Rect [70 %d 200 %d] /Border [0 0 0] %s >>", y-2, y+12, action))
	}
	launch := annot(720, "/A << /S /Launch /F << /Type /Filespec /F (other.pdf) >> >>")
	named := annot(660, "/A << /S /Named /N /NextPage >>")
	broken := annot(600, "/Dest [99 /Fit]")
	chapter := annot(540, "/Dest (chapter1)")
	missing := annot(480, "/A << /S /GoTo /D (nowhere) >>")

	b.Set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R /Names << /Dests << /Names [(chapter1) [%d 0 R /XYZ 0 792 0]] >> >> >>", pages, page))
	b.Set(pages, fmt.Sprintf("<< /Type /Pages /Kids [%d 0 R] /Count 1 >>", page))
	b.Set(page, fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R /Annots [%d 0 R %d 0 R %d 0 R %d 0 R %d 0 R] >>",
		pages, font, content, launch, named, broken, chapter, missing))

	path := filepath.Join(t.TempDir(), "links.pdf")
	if err := os.WriteFile(path, b.Bytes(catalog), 0644); err != nil {
		t.Fatalf("Failed to write links PDF: %v", err)
	}
	return path
}

// WriteBrokenContent creates a two page document whose second page has a
// content stream with an unknown filter
func WriteBrokenContent(t testing.TB) string {
	t.Helper()
	b := &Builder{}
	catalog := b.Add("")
	pages := b.Add("")
	page1 := b.Add("")
	page2 := b.Add("")
	font := b.Add(FontObject("Helvetica"))
	good := b.Add(Stream("", "BT /F1 12 Tf 72 720 Td (Readable) Tj ET"))
	bad := b.Add(Stream("/Filter /BogusDecode", "\x00\x01garbage"))

	b.Set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pages))
	b.Set(pages, fmt.Sprintf("<< /Type /Pages /Kids [%d 0 R %d 0 R] /Count 2 >>", page1, page2))
	for _, pg := range []struct{ obj, content int }{{page1, good}, {page2, bad}} {
		b.Set(pg.obj, fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
			pages, font, pg.content))
	}

	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, b.Bytes(catalog), 0644); err != nil {
		t.Fatalf("Failed to write broken PDF: %v", err)
	}
	return path
}

// TrueTypeFonts lists font files tried by WriteTrueType
var TrueTypeFonts = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/nanum/NanumGothic.ttf",
	"/Library/Fonts/Arial Unicode.ttf",
	"C:/Windows/Fonts/arial.ttf",
}

// WriteTrueType writes a one page letter size PDF with text drawn at
// (72, 72) in an embedded TrueType (Type0, Identity-H) font of the given
// size. The test is skipped when no font file is installed.
func WriteTrueType(t testing.TB, text string, size float64) string {
	t.Helper()
	font := ""
	for _, p := range TrueTypeFonts {
		if _, err := os.Stat(p); err == nil {
			font = p
			break
		}
	}
	if font == "" {
		t.Skip("no TrueType font installed")
	}

	doc := &gopdf.GoPdf{}
	doc.Start(gopdf.Config{PageSize: *gopdf.PageSizeLetter})
	doc.AddPage()
	if err := doc.AddTTFFont("body", font); err != nil {
		t.Fatalf("AddTTFFont(%s): %v", font, err)
	}
	if err := doc.SetFont("body", "", size); err != nil {
		t.Fatalf("SetFont: %v", err)
	}
	doc.SetXY(72, 72)
	if err := doc.Cell(nil, text); err != nil {
		t.Fatalf("Cell: %v", err)
	}
	path := filepath.Join(t.TempDir(), "truetype.pdf")
	if err := doc.WritePdf(path); err != nil {
		t.Fatalf("WritePdf: %v", err)
	}
	return path
}
