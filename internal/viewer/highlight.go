package viewer

import (
	"strings"

	"pdf-trans/internal/pdf"
	"pdf-trans/internal/types"
)

// UpdateHighlights marks hovered as the single highlighted id. Every other
// id maps to false; a hovered id not in ids highlights nothing.
func UpdateHighlights(ids []string, hovered string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = hovered != "" && id == hovered
	}
	return out
}

// siblingIDs returns the ids in the other view that belong with hovered.
// Original lines pair with their line copy and their translated block;
// a translated block pairs with every original line of that block.
func siblingIDs(vm *pdf.PageViewModel, hovered string, view types.ViewContext) []string {
	var sibs []string
	switch {
	case view == types.ViewOriginal && strings.HasPrefix(hovered, pdf.OriginalPrefix):
		rest := strings.TrimPrefix(hovered, pdf.OriginalPrefix)
		sibs = append(sibs, pdf.TranslatedPrefix+rest)
		if vm != nil {
			if s, ok := vm.Segment(hovered); ok && s.BlockID != "" {
				sibs = append(sibs, pdf.TranslatedPrefix+s.BlockID)
			}
		}
	case view == types.ViewTranslated && strings.HasPrefix(hovered, pdf.TranslatedPrefix):
		rest := strings.TrimPrefix(hovered, pdf.TranslatedPrefix)
		sibs = append(sibs, pdf.OriginalPrefix+rest)
		if vm != nil {
			for _, s := range vm.OriginalSegments {
				if s.BlockID == rest {
					sibs = append(sibs, s.ID)
				}
			}
		}
	}
	return sibs
}

// highlightUpdate extends UpdateHighlights with the siblings of hovered
func highlightUpdate(vm *pdf.PageViewModel, ids []string, hovered string, view types.ViewContext, enabled bool) map[string]bool {
	if !enabled {
		return UpdateHighlights(ids, "")
	}
	out := UpdateHighlights(ids, hovered)
	if !out[hovered] {
		return out
	}
	for _, sib := range siblingIDs(vm, hovered, view) {
		if _, ok := out[sib]; ok {
			out[sib] = true
		}
	}
	return out
}

// applyHighlights copies the highlight flags onto the view model segments
func applyHighlights(vm *pdf.PageViewModel, states map[string]bool) {
	if vm == nil {
		return
	}
	for _, list := range [][]pdf.Segment{vm.OriginalSegments, vm.TranslatedSegments} {
		for i := range list {
			if on, ok := states[list[i].ID]; ok {
				list[i].IsHighlighted = on
			}
		}
	}
}
