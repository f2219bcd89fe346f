package viewer

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"pdf-trans/internal/pdf"
	"pdf-trans/internal/types"
)

// LinkKind classifies a resolved link
type LinkKind string

const (
	LinkPage     LinkKind = "page"
	LinkFile     LinkKind = "file"
	LinkExternal LinkKind = "external"
)

// LinkAction is the outcome of following a link
type LinkAction struct {
	Kind   LinkKind `json:"kind"`
	Page   int      `json:"page"`   // 0-based target for LinkPage
	Target string   `json:"target"` // file path or URL
}

// LinkOpener hands file and URL targets to the desktop
type LinkOpener interface {
	OpenURL(rawURL string) error
	OpenFile(path string) error
}

// named actions every viewer understands
const (
	namedNextPage  = "NextPage"
	namedPrevPage  = "PrevPage"
	namedFirstPage = "FirstPage"
	namedLastPage  = "LastPage"
)

// ResolveLink follows a segment link. page: navigates, name: looks the
// title up in the outline (or runs a standard named action), file: and
// URLs go to the opener. The navigation, when any, has happened when
// ResolveLink returns.
func (c *Controller) ResolveLink(uri string) (LinkAction, error) {
	uri = strings.TrimSpace(uri)
	switch {
	case uri == "":
		return LinkAction{}, types.NewAppError(types.ErrInvalidInput, "empty link", nil)

	case strings.HasPrefix(uri, pdf.PageURIPrefix):
		idx, ok := pdf.ParsePageURI(uri)
		if !ok || idx < 0 {
			return LinkAction{}, types.NewAppError(types.ErrInvalidInput, fmt.Sprintf("unresolved page link %q", uri), nil)
		}
		return c.navigateTo(idx)

	case strings.HasPrefix(uri, pdf.NameURIPrefix):
		return c.resolveName(strings.TrimPrefix(uri, pdf.NameURIPrefix))

	case strings.HasPrefix(uri, pdf.FileURIPrefix):
		path := strings.TrimPrefix(uri, pdf.FileURIPrefix)
		if path == "" {
			return LinkAction{}, types.NewAppError(types.ErrInvalidInput, "empty file link", nil)
		}
		if !filepath.IsAbs(path) {
			if doc := c.document(); doc != nil {
				path = filepath.Join(filepath.Dir(doc.Path()), path)
			}
		}
		action := LinkAction{Kind: LinkFile, Target: path}
		if c.opener != nil {
			if err := c.opener.OpenFile(path); err != nil {
				return action, err
			}
		}
		return action, nil
	}

	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" {
		return LinkAction{}, types.NewAppError(types.ErrInvalidInput, fmt.Sprintf("unsupported link %q", uri), err)
	}
	action := LinkAction{Kind: LinkExternal, Target: uri}
	if c.opener != nil {
		if err := c.opener.OpenURL(uri); err != nil {
			return action, err
		}
	}
	return action, nil
}

func (c *Controller) resolveName(name string) (LinkAction, error) {
	count := c.PageCount()
	current := c.CurrentPage()
	switch name {
	case namedNextPage:
		return c.navigateTo(current + 1)
	case namedPrevPage:
		return c.navigateTo(current - 1)
	case namedFirstPage:
		return c.navigateTo(0)
	case namedLastPage:
		return c.navigateTo(count - 1)
	}

	item, ok := pdf.FindOutlineItem(c.Outline(), name)
	if !ok || item.Page <= 0 {
		return LinkAction{}, types.NewAppError(types.ErrInvalidInput, fmt.Sprintf("no outline entry named %q", name), nil)
	}
	return c.navigateTo(item.Page - 1)
}

func (c *Controller) navigateTo(index int) (LinkAction, error) {
	if _, err := c.GoTo(index); err != nil {
		return LinkAction{}, err
	}
	return LinkAction{Kind: LinkPage, Page: index}, nil
}
