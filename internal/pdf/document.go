package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"pdf-trans/internal/logger"
)

// textProbePages is how many leading pages are sampled for extractable text
const textProbePages = 3

// Document is an opened PDF. Glyph extraction goes through ledongthuc/pdf;
// page boxes, annotations, image placement and the outline go through
// pdfcpu. A Document is safe for concurrent use.
type Document struct {
	path      string
	info      DocumentInfo
	pageCount int
	layout    LayoutConfig

	file   *os.File
	reader *pdf.Reader
	ctx    *model.Context // nil when pdfcpu cannot read the file
	objs   objectReader

	refsOnce sync.Once
	pageRefs map[int]int // page object number -> 0-based index

	mu     sync.Mutex
	closed bool
}

// Open opens the PDF at path
func Open(path string) (doc *Document, err error) {
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewPDFError(ErrPDFNotFound, "file does not exist", err)
		}
		return nil, NewPDFError(ErrPDFInvalid, "cannot access file", err)
	}
	if stat.IsDir() {
		return nil, NewPDFError(ErrPDFInvalid, "path is a directory", nil)
	}

	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, NewPDFError(ErrPDFInvalid, "malformed PDF", fmt.Errorf("%v", r))
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, NewPDFError(ErrPDFInvalid, "cannot open PDF", err)
	}

	d := &Document{
		path:      path,
		pageCount: r.NumPage(),
		layout:    DefaultLayoutConfig(),
		file:      f,
		reader:    r,
	}

	ctx, err := api.ReadContextFile(path)
	if err != nil {
		logger.Warn("pdfcpu could not read document, links, images and outline disabled",
			logger.String("path", path), logger.Err(err))
	} else {
		d.ctx = ctx
		d.objs = objectReader{ctx: ctx}
		if d.pageCount == 0 {
			d.pageCount = ctx.PageCount
		}
	}

	d.info = DocumentInfo{
		FilePath:  path,
		FileName:  filepath.Base(path),
		PageCount: d.pageCount,
		FileSize:  stat.Size(),
		IsTextPDF: d.probeText(),
	}

	logger.Info("document opened",
		logger.String("path", path),
		logger.Int("pages", d.pageCount),
		logger.Bool("text", d.info.IsTextPDF))
	return d, nil
}

// SetLayoutConfig replaces the grouping ratios used by ParsePage
func (d *Document) SetLayoutConfig(cfg LayoutConfig) {
	d.mu.Lock()
	d.layout = cfg
	d.mu.Unlock()
}

// Info returns the document description
func (d *Document) Info() DocumentInfo { return d.info }

// Path returns the file path
func (d *Document) Path() string { return d.path }

// PageCount returns the number of pages
func (d *Document) PageCount() int { return d.pageCount }

// Close releases the file handle. Further calls fail with DOCUMENT_CLOSED.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.ctx = nil
	d.objs = objectReader{}
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}

// probeText reports whether any of the leading pages carries text
func (d *Document) probeText() bool {
	for i := 1; i <= d.pageCount && i <= textProbePages; i++ {
		glyphs, err := d.glyphs(i, newPageGeometry(0, 0, 0, 0, 0))
		if err == nil && len(glyphs) > 0 {
			return true
		}
	}
	return false
}

// pageSetup returns the geometry, page dictionary and resources of a
// 1-indexed page. Without pdfcpu the box comes from the page's own entries.
func (d *Document) pageSetup(pageNr int) (pageGeometry, types.Dict, types.Dict) {
	if d.ctx != nil {
		pageDict, _, attrs, err := d.ctx.PageDict(pageNr, false)
		if err == nil && pageDict != nil {
			geo := newPageGeometry(0, 0, 0, 0, 0)
			if attrs != nil {
				box := attrs.CropBox
				if box == nil {
					box = attrs.MediaBox
				}
				if box != nil {
					geo = newPageGeometry(box.LL.X, box.LL.Y, box.UR.X, box.UR.Y, attrs.Rotate)
				}
			}
			resources, ok := d.objs.dict(pageDict["Resources"])
			if !ok && attrs != nil {
				resources = attrs.Resources
			}
			return geo, pageDict, resources
		}
		logger.Debug("pdfcpu page lookup failed", logger.Page(pageNr), logger.Err(err))
	}
	return d.fallbackGeometry(pageNr), nil, nil
}

func (d *Document) fallbackGeometry(pageNr int) pageGeometry {
	p := d.reader.Page(pageNr)
	if p.V.IsNull() {
		return newPageGeometry(0, 0, 0, 0, 0)
	}
	rotate := int(p.V.Key("Rotate").Int64())
	for _, key := range []string{"CropBox", "MediaBox"} {
		box := p.V.Key(key)
		if box.Len() == 4 {
			return newPageGeometry(
				box.Index(0).Float64(), box.Index(1).Float64(),
				box.Index(2).Float64(), box.Index(3).Float64(),
				rotate,
			)
		}
	}
	return newPageGeometry(0, 0, 0, 0, rotate)
}

// pageIndexOf maps a page object number to its 0-based index
func (d *Document) pageIndexOf(objNr int) (int, bool) {
	d.refsOnce.Do(func() {
		d.pageRefs = make(map[int]int, d.pageCount)
		if d.ctx == nil {
			return
		}
		for i := 1; i <= d.pageCount; i++ {
			_, ref, _, err := d.ctx.PageDict(i, false)
			if err != nil || ref == nil {
				continue
			}
			d.pageRefs[int(ref.ObjectNumber)] = i - 1
		}
	})
	idx, ok := d.pageRefs[objNr]
	return idx, ok
}

func (d *Document) catalog() types.Dict {
	if d.ctx == nil {
		return nil
	}
	if d.ctx.RootDict != nil {
		return d.ctx.RootDict
	}
	if d.ctx.Root != nil {
		if root, ok := d.objs.dict(*d.ctx.Root); ok {
			return root
		}
	}
	return nil
}
