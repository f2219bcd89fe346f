package pdf

import (
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// maxOutlineItems caps the walk over malformed, cyclic outlines
const maxOutlineItems = 10000

// Outline returns the flat table of contents in document order. A document
// without an outline yields an empty slice.
func (d *Document) Outline() ([]TOCEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, NewPDFError(ErrDocumentClosed, "document is closed", nil)
	}
	toc := []TOCEntry{}
	if d.ctx == nil {
		return toc, nil
	}
	catalog := d.catalog()
	if catalog == nil {
		return toc, nil
	}
	root, ok := d.objs.dict(catalog["Outlines"])
	if !ok {
		return toc, nil
	}

	visited := make(map[int]bool)
	d.walkOutline(root["First"], 1, visited, &toc)
	return toc, nil
}

func (d *Document) walkOutline(obj types.Object, level int, visited map[int]bool, toc *[]TOCEntry) {
	for obj != nil && len(*toc) < maxOutlineItems {
		if ref, ok := obj.(types.IndirectRef); ok {
			if visited[int(ref.ObjectNumber)] {
				return
			}
			visited[int(ref.ObjectNumber)] = true
		}
		item, ok := d.objs.dict(obj)
		if !ok {
			return
		}

		title, _ := d.objs.text(item["Title"])
		*toc = append(*toc, TOCEntry{
			Level: level,
			Title: strings.TrimSpace(title),
			Page:  d.outlineTarget(item),
		})
		if first, found := item.Find("First"); found {
			d.walkOutline(first, level+1, visited, toc)
		}
		obj = item["Next"]
	}
}

// outlineTarget returns the 1-indexed target page, 0 when unresolved
func (d *Document) outlineTarget(item types.Dict) int {
	var uri string
	if dest, found := item.Find("Dest"); found {
		uri = d.destURI(dest)
	} else if actionObj, found := item.Find("A"); found {
		if action, ok := d.objs.dict(actionObj); ok {
			uri = d.actionURI(action)
		}
	}
	if idx, ok := ParsePageURI(uri); ok && idx >= 0 {
		return idx + 1
	}
	return 0
}

// BuildOutlineTree nests a flat table of contents. An entry one level
// deeper than its predecessor becomes that predecessor's child; entries
// that jump several levels attach to the nearest shallower ancestor.
func BuildOutlineTree(toc []TOCEntry) []OutlineItem {
	roots := []OutlineItem{}
	// open items from the outermost to the innermost
	var path []*OutlineItem

	for _, e := range toc {
		level := e.Level
		if level < 1 {
			level = 1
		}
		for len(path) > 0 && path[len(path)-1].Level >= level {
			path = path[:len(path)-1]
		}
		item := OutlineItem{Level: level, Title: e.Title, Page: e.Page}

		if len(path) == 0 {
			roots = append(roots, item)
			path = append(path[:0], &roots[len(roots)-1])
			continue
		}
		parent := path[len(path)-1]
		parent.Children = append(parent.Children, item)
		path = append(path, &parent.Children[len(parent.Children)-1])
	}
	return roots
}

// FindOutlineItem searches the tree depth-first for a title, ignoring case
// and surrounding whitespace.
func FindOutlineItem(items []OutlineItem, title string) (OutlineItem, bool) {
	want := strings.TrimSpace(title)
	for _, it := range items {
		if strings.EqualFold(strings.TrimSpace(it.Title), want) {
			return it, true
		}
		if found, ok := FindOutlineItem(it.Children, title); ok {
			return found, true
		}
	}
	return OutlineItem{}, false
}
