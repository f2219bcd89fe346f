package pdf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Link URI prefixes produced for internal targets
const (
	PageURIPrefix = "page:"
	NameURIPrefix = "name:"
	FileURIPrefix = "file:"
)

// maxNameTreeDepth bounds the walk of the /Dests name tree
const maxNameTreeDepth = 32

type pageLink struct {
	Rect Rect
	URI  string
}

// pageLinks collects the link annotations of a page in annotation order
func (d *Document) pageLinks(pageDict types.Dict, geo pageGeometry) []pageLink {
	annotsObj, found := pageDict.Find("Annots")
	if !found {
		return nil
	}
	annots, ok := d.objs.array(annotsObj)
	if !ok {
		return nil
	}

	var links []pageLink
	for _, a := range annots {
		annot, ok := d.objs.dict(a)
		if !ok {
			continue
		}
		if subtype, _ := d.objs.name(annot["Subtype"]); subtype != "Link" {
			continue
		}
		x0, y0, x1, y1, ok := d.objs.rect(annot["Rect"])
		if !ok {
			continue
		}
		uri := d.linkURI(annot)
		if uri == "" {
			continue
		}
		rect := geo.userRect(x0, y0, x1, y1)
		if !rect.IsValid() {
			continue
		}
		links = append(links, pageLink{Rect: rect, URI: uri})
	}
	return links
}

// linkURI encodes the target of a link annotation, or "" for kinds the
// viewer does not follow.
func (d *Document) linkURI(annot types.Dict) string {
	if actionObj, found := annot.Find("A"); found {
		if action, ok := d.objs.dict(actionObj); ok {
			return d.actionURI(action)
		}
	}
	if dest, found := annot.Find("Dest"); found {
		return d.destURI(dest)
	}
	return ""
}

func (d *Document) actionURI(action types.Dict) string {
	kind, _ := d.objs.name(action["S"])
	switch kind {
	case "GoTo":
		return d.destURI(action["D"])
	case "URI":
		uri, _ := d.objs.text(action["URI"])
		return uri
	case "Launch":
		if file := d.fileSpec(action["F"]); file != "" {
			return FileURIPrefix + file
		}
	case "Named":
		if n, ok := d.objs.name(action["N"]); ok {
			return NameURIPrefix + n
		}
	}
	return ""
}

// fileSpec reads a file specification string or dictionary
func (d *Document) fileSpec(obj types.Object) string {
	if s, ok := d.objs.text(obj); ok {
		return s
	}
	spec, ok := d.objs.dict(obj)
	if !ok {
		return ""
	}
	for _, key := range []string{"UF", "F", "Unix", "DOS"} {
		if s, ok := d.objs.text(spec[key]); ok && s != "" {
			return s
		}
	}
	return ""
}

// destURI encodes a destination as page:<index>, or name:<name> for a
// named destination that does not resolve.
func (d *Document) destURI(obj types.Object) string {
	if obj == nil {
		return ""
	}
	if arr, ok := d.objs.array(obj); ok {
		return fmt.Sprintf("%s%d", PageURIPrefix, d.explicitDestPage(arr))
	}
	if dict, ok := d.objs.dict(obj); ok {
		return d.destURI(dict["D"])
	}
	if name, ok := d.objs.text(obj); ok && name != "" {
		if arr, found := d.namedDest(name); found {
			return fmt.Sprintf("%s%d", PageURIPrefix, d.explicitDestPage(arr))
		}
		return NameURIPrefix + name
	}
	return ""
}

// explicitDestPage returns the 0-based page of [page /XYZ ...], or -1
func (d *Document) explicitDestPage(dest types.Array) int {
	if len(dest) == 0 {
		return -1
	}
	switch v := dest[0].(type) {
	case types.IndirectRef:
		if idx, ok := d.pageIndexOf(int(v.ObjectNumber)); ok {
			return idx
		}
	case types.Integer:
		if int(v) >= 0 && int(v) < d.PageCount() {
			return int(v)
		}
	}
	return -1
}

// namedDest looks a destination up in the catalog /Dests dictionary and
// the /Names /Dests name tree.
func (d *Document) namedDest(name string) (types.Array, bool) {
	catalog := d.catalog()
	if catalog == nil {
		return nil, false
	}
	if dests, ok := d.objs.dict(catalog["Dests"]); ok {
		if arr, ok := d.destArray(dests[name]); ok {
			return arr, true
		}
	}
	names, ok := d.objs.dict(catalog["Names"])
	if !ok {
		return nil, false
	}
	tree, ok := d.objs.dict(names["Dests"])
	if !ok {
		return nil, false
	}
	return d.searchNameTree(tree, name, 0)
}

func (d *Document) searchNameTree(node types.Dict, name string, depth int) (types.Array, bool) {
	if depth > maxNameTreeDepth {
		return nil, false
	}
	if pairs, ok := d.objs.array(node["Names"]); ok {
		for i := 0; i+1 < len(pairs); i += 2 {
			if key, _ := d.objs.text(pairs[i]); key == name {
				return d.destArray(pairs[i+1])
			}
		}
	}
	kids, ok := d.objs.array(node["Kids"])
	if !ok {
		return nil, false
	}
	for _, k := range kids {
		kid, ok := d.objs.dict(k)
		if !ok {
			continue
		}
		if limits, ok := d.objs.array(kid["Limits"]); ok && len(limits) == 2 {
			lo, _ := d.objs.text(limits[0])
			hi, _ := d.objs.text(limits[1])
			if name < lo || name > hi {
				continue
			}
		}
		if arr, ok := d.searchNameTree(kid, name, depth+1); ok {
			return arr, true
		}
	}
	return nil, false
}

func (d *Document) destArray(obj types.Object) (types.Array, bool) {
	if arr, ok := d.objs.array(obj); ok {
		return arr, true
	}
	if dict, ok := d.objs.dict(obj); ok {
		return d.objs.array(dict["D"])
	}
	return nil, false
}

// linkFor returns the first link whose rectangle intersects box
func linkFor(links []pageLink, box Rect) string {
	for _, l := range links {
		if l.Rect.Intersects(box) {
			return l.URI
		}
	}
	return ""
}

// ParsePageURI extracts the 0-based index of a page:<n> link target
func ParsePageURI(uri string) (int, bool) {
	if !strings.HasPrefix(uri, PageURIPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(uri, PageURIPrefix))
	if err != nil {
		return 0, false
	}
	return n, true
}
