// Package viewer holds the presenter between an opened document and the
// desktop shell: page navigation, translation of the visible page,
// background prefetch, highlight sync and link handling.
package viewer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"pdf-trans/internal/logger"
	"pdf-trans/internal/pdf"
	"pdf-trans/internal/settings"
	"pdf-trans/internal/translate"
	"pdf-trans/internal/types"
)

// SettingsProvider supplies the current user settings
type SettingsProvider interface {
	Get() settings.AppSettings
}

type staticSettings settings.AppSettings

func (s staticSettings) Get() settings.AppSettings { return settings.AppSettings(s) }

// Option configures a Controller
type Option func(*Controller)

// WithLanguages sets the default source and target languages
func WithLanguages(source, target string) Option {
	return func(c *Controller) {
		c.source, c.target = source, target
	}
}

// WithLinkOpener sets the handler for file and URL links
func WithLinkOpener(o LinkOpener) Option {
	return func(c *Controller) { c.opener = o }
}

// WithSettings sets the settings source
func WithSettings(p SettingsProvider) Option {
	return func(c *Controller) {
		if p != nil {
			c.settings = p
		}
	}
}

// Controller owns the open document and the current page view model.
// View models handed out are never mutated afterwards; every change
// installs a fresh copy.
type Controller struct {
	mu       sync.RWMutex
	doc      *pdf.Document
	outline  []pdf.OutlineItem
	current  int
	vm       *pdf.PageViewModel
	gen      int // bumped whenever a different page is installed
	hovered  string
	service  *translate.Service
	settings SettingsProvider
	opener   LinkOpener
	source   string
	target   string

	obsMu       sync.RWMutex
	pageChanged []func(*pdf.PageViewModel)
	translated  []func(*pdf.PageViewModel)
	status      []func(types.Status)

	// prefetchDone is closed when the latest run and every run before it
	// have returned
	prefetchMu     sync.Mutex
	prefetchCancel context.CancelFunc
	prefetchDone   chan struct{}
}

// NewController creates a controller translating through service
func NewController(service *translate.Service, opts ...Option) *Controller {
	c := &Controller{
		service:  service,
		settings: staticSettings(settings.Default()),
		source:   translate.DefaultSourceLang,
		target:   translate.DefaultTargetLang,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnPageChanged registers a callback fired after navigation
func (c *Controller) OnPageChanged(fn func(*pdf.PageViewModel)) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.pageChanged = append(c.pageChanged, fn)
}

// OnTranslated registers a callback fired when the current page's
// translated view is replaced
func (c *Controller) OnTranslated(fn func(*pdf.PageViewModel)) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.translated = append(c.translated, fn)
}

// OnStatus registers a status bar callback
func (c *Controller) OnStatus(fn func(types.Status)) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.status = append(c.status, fn)
}

func (c *Controller) emitPage(vm *pdf.PageViewModel) {
	c.obsMu.RLock()
	fns := append([]func(*pdf.PageViewModel){}, c.pageChanged...)
	c.obsMu.RUnlock()
	for _, fn := range fns {
		fn(vm)
	}
}

func (c *Controller) emitTranslated(vm *pdf.PageViewModel) {
	c.obsMu.RLock()
	fns := append([]func(*pdf.PageViewModel){}, c.translated...)
	c.obsMu.RUnlock()
	for _, fn := range fns {
		fn(vm)
	}
}

func (c *Controller) emitStatus(s types.Status) {
	c.obsMu.RLock()
	fns := append([]func(types.Status){}, c.status...)
	c.obsMu.RUnlock()
	for _, fn := range fns {
		fn(s)
	}
}

// SetLanguages changes the default language pair. An empty value keeps
// the current language.
func (c *Controller) SetLanguages(source, target string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if strings.TrimSpace(source) == "" {
		source = c.source
	}
	if strings.TrimSpace(target) == "" {
		target = c.target
	}
	src, tgt, err := translate.NormalizePair(source, target)
	if err != nil {
		return err
	}
	c.source, c.target = src, tgt
	return nil
}

// Languages returns the default language pair
func (c *Controller) Languages() (string, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.source, c.target
}

// Open loads a document, replacing the current one, and shows its first page
func (c *Controller) Open(path string) (*pdf.PageViewModel, error) {
	c.emitStatus(types.Status{Phase: types.PhaseLoading, Message: "Opening " + path})

	doc, err := pdf.Open(path)
	if err != nil {
		c.emitStatus(types.Status{Phase: types.PhaseError, Message: "Could not open document", Error: err.Error()})
		return nil, err
	}

	var outline []pdf.OutlineItem
	toc, err := doc.Outline()
	if err != nil {
		logger.Warn("outline unavailable", logger.String("path", path), logger.Err(err))
	} else {
		outline = pdf.BuildOutlineTree(toc)
	}

	c.mu.Lock()
	old := c.doc
	c.doc = doc
	c.outline = outline
	c.current = 0
	c.vm = nil
	c.gen++
	c.hovered = ""
	c.mu.Unlock()
	c.stopPrefetch()
	if old != nil {
		old.Close()
	}

	info := doc.Info()
	logger.Info("document opened",
		logger.String("path", info.FilePath),
		logger.Int("pages", info.PageCount),
		logger.Bool("text", info.IsTextPDF))

	if doc.PageCount() == 0 {
		c.emitStatus(types.Status{Phase: types.PhaseReady, Message: "Document has no pages"})
		return nil, nil
	}
	return c.GoTo(0)
}

// Close cancels background work and closes the document
func (c *Controller) Close() error {
	c.mu.Lock()
	doc := c.doc
	c.doc = nil
	c.outline = nil
	c.vm = nil
	c.gen++
	c.current = 0
	c.hovered = ""
	c.mu.Unlock()
	c.stopPrefetch()

	if doc == nil {
		return nil
	}
	return doc.Close()
}

func (c *Controller) document() *pdf.Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.doc
}

// Info describes the open document
func (c *Controller) Info() (pdf.DocumentInfo, bool) {
	doc := c.document()
	if doc == nil {
		return pdf.DocumentInfo{}, false
	}
	return doc.Info(), true
}

// PageCount returns the page count, 0 without a document
func (c *Controller) PageCount() int {
	doc := c.document()
	if doc == nil {
		return 0
	}
	return doc.PageCount()
}

// CurrentPage returns the 0-based index of the shown page
func (c *Controller) CurrentPage() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// CurrentView returns the view model of the shown page, nil before a page
// has been shown
func (c *Controller) CurrentView() *pdf.PageViewModel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vm
}

// Outline returns the nested outline of the open document
func (c *Controller) Outline() []pdf.OutlineItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.outline
}

// Page parses a page without changing the shown page
func (c *Controller) Page(index int) (*pdf.PageViewModel, error) {
	doc := c.document()
	if doc == nil {
		return nil, types.NewAppError(types.ErrNoDocument, "no document is open", nil)
	}
	return doc.ParsePage(index)
}

// GoTo shows the given 0-based page
func (c *Controller) GoTo(index int) (*pdf.PageViewModel, error) {
	c.emitStatus(types.Status{Phase: types.PhaseParsing, Page: index + 1, Message: fmt.Sprintf("Loading page %d", index+1)})

	vm, err := c.Page(index)
	if err != nil {
		c.emitStatus(types.Status{Phase: types.PhaseError, Page: index + 1, Message: "Could not load page", Error: err.Error()})
		return nil, err
	}

	c.mu.Lock()
	c.current = index
	c.vm = vm
	c.gen++
	c.hovered = ""
	c.mu.Unlock()
	c.stopPrefetch()

	c.emitPage(vm)
	msg := fmt.Sprintf("Page %d of %d", index+1, c.PageCount())
	if vm.ErrorMessage != "" {
		msg = vm.ErrorMessage
	}
	c.emitStatus(types.Status{Phase: types.PhaseReady, Page: index + 1, Message: msg})
	return vm, nil
}

// Next shows the following page
func (c *Controller) Next() (*pdf.PageViewModel, error) {
	return c.GoTo(c.CurrentPage() + 1)
}

// Prev shows the preceding page
func (c *Controller) Prev() (*pdf.PageViewModel, error) {
	return c.GoTo(c.CurrentPage() - 1)
}

// TranslateCurrentPage translates the shown page and replaces its
// translated view. Blocks that fail keep their original text. Empty
// languages fall back to the controller's pair. Only a missing page, bad
// languages or a cancelled context return an error.
func (c *Controller) TranslateCurrentPage(ctx context.Context, source, target string) (*pdf.PageViewModel, error) {
	c.mu.RLock()
	vm, index, gen := c.vm, c.current, c.gen
	if source == "" {
		source = c.source
	}
	if target == "" {
		target = c.target
	}
	c.mu.RUnlock()

	if vm == nil {
		return nil, types.NewAppError(types.ErrNoDocument, "no page is shown", nil)
	}
	src, tgt, err := translate.NormalizePair(source, target)
	if err != nil {
		c.emitStatus(types.Status{Phase: types.PhaseError, Page: vm.PageNumber, Message: "Invalid language", Error: err.Error()})
		return nil, err
	}

	c.emitStatus(types.Status{Phase: types.PhaseTranslating, Page: vm.PageNumber,
		Message: fmt.Sprintf("Translating page %d to %s", vm.PageNumber, translate.DisplayName(tgt))})

	results, err := c.service.TranslateSegmentsWithProgress(ctx, vm.OriginalSegments, src, tgt,
		func(completed, total int) {
			c.emitStatus(types.Status{Phase: types.PhaseTranslating, Page: vm.PageNumber,
				Message: fmt.Sprintf("Translated %d of %d blocks", completed, total)})
		})
	if err != nil {
		c.emitStatus(types.Status{Phase: types.PhaseError, Page: vm.PageNumber, Message: "Translation cancelled", Error: err.Error()})
		return nil, err
	}

	c.mu.Lock()
	if c.gen != gen || c.vm == nil {
		c.mu.Unlock()
		logger.Debug("translation discarded after navigation", logger.Page(vm.PageNumber))
		next := cloneView(vm)
		next.TranslatedSegments = mergeTranslations(vm.OriginalSegments, results)
		return next, nil
	}
	next := cloneView(c.vm)
	next.TranslatedSegments = mergeTranslations(vm.OriginalSegments, results)
	applyHighlights(next, UpdateHighlights(next.SegmentIDs(), ""))
	c.vm = next
	c.hovered = ""
	c.mu.Unlock()

	failed := 0
	for _, r := range results {
		if r.Translated == "" {
			failed++
		}
	}
	msg := fmt.Sprintf("Page %d translated", vm.PageNumber)
	if failed > 0 {
		msg = fmt.Sprintf("Page %d translated, %d of %d blocks kept their original text", vm.PageNumber, failed, len(results))
	}
	c.emitTranslated(next)
	c.emitStatus(types.Status{Phase: types.PhaseReady, Page: vm.PageNumber, Message: msg})

	c.startPrefetch(index, gen, src, tgt)
	return next, nil
}

// mergeTranslations builds the translated view in reading order: one
// segment per translated block, and the original line copies for blocks
// without a translation.
func mergeTranslations(original []pdf.Segment, results []translate.BlockTranslation) []pdf.Segment {
	byBlock := make(map[string]pdf.Segment)
	for _, s := range translate.BuildTranslatedSegments(original, results) {
		byBlock[s.BlockID] = s
	}
	fallback := pdf.InitialTranslatedSegments(original)

	out := make([]pdf.Segment, 0, len(original))
	emitted := make(map[string]bool)
	for i, s := range original {
		key := s.BlockID
		if key == "" {
			key = s.ID
		}
		if t, ok := byBlock[key]; ok {
			if !emitted[key] {
				emitted[key] = true
				out = append(out, t)
			}
			continue
		}
		out = append(out, fallback[i])
	}
	return out
}

func cloneView(vm *pdf.PageViewModel) *pdf.PageViewModel {
	next := *vm
	next.OriginalSegments = append([]pdf.Segment(nil), vm.OriginalSegments...)
	next.TranslatedSegments = append([]pdf.Segment(nil), vm.TranslatedSegments...)
	next.Images = append([]pdf.ImageRef(nil), vm.Images...)
	return &next
}

// HighlightUpdate computes highlight states for ids on the current page
func (c *Controller) HighlightUpdate(ids []string, hovered string, view types.ViewContext) map[string]bool {
	vm := c.CurrentView()
	return highlightUpdate(vm, ids, hovered, view, c.settings.Get().EnableHighlighting)
}

// Hover highlights hovered and its siblings on the current page and
// returns the updated view model. An empty id clears all highlights.
func (c *Controller) Hover(hovered string, view types.ViewContext) *pdf.PageViewModel {
	enabled := c.settings.Get().EnableHighlighting

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vm == nil {
		return nil
	}
	if hovered == c.hovered {
		return c.vm
	}
	next := cloneView(c.vm)
	applyHighlights(next, highlightUpdate(next, next.SegmentIDs(), hovered, view, enabled))
	c.vm = next
	c.hovered = hovered
	return next
}

// startPrefetch translates the pages after index in the background so
// their translations land in the gateway's cache. Nothing starts once the
// page of generation gen has been replaced.
func (c *Controller) startPrefetch(index, gen int, source, target string) {
	count := c.settings.Get().PrefetchPageCount
	doc := c.document()
	if count <= 0 || doc == nil {
		return
	}

	// navigation bumps gen before taking prefetchMu in stopPrefetch, so a
	// run started here is either skipped or cancelled by that stop
	c.prefetchMu.Lock()
	defer c.prefetchMu.Unlock()
	c.mu.RLock()
	stale := c.gen != gen
	c.mu.RUnlock()
	if stale {
		return
	}
	if c.prefetchCancel != nil {
		c.prefetchCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	prev, done := c.prefetchDone, make(chan struct{})
	c.prefetchCancel, c.prefetchDone = cancel, done

	go func() {
		defer close(done)
		if prev != nil {
			<-prev
		}
		for i := index + 1; i <= index+count && i < doc.PageCount(); i++ {
			if ctx.Err() != nil {
				return
			}
			vm, err := doc.ParsePage(i)
			if err != nil {
				logger.Debug("prefetch stopped", logger.Page(i+1), logger.Err(err))
				return
			}
			if _, err := c.service.TranslateSegments(ctx, vm.OriginalSegments, source, target); err != nil {
				return
			}
			logger.Debug("page prefetched", logger.Page(i+1))
		}
	}()
}

// stopPrefetch cancels background prefetching and waits for it to return
func (c *Controller) stopPrefetch() {
	c.prefetchMu.Lock()
	cancel, done := c.prefetchCancel, c.prefetchDone
	c.prefetchCancel = nil
	c.prefetchMu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// WaitPrefetch blocks until background prefetching finishes
func (c *Controller) WaitPrefetch() {
	c.prefetchMu.Lock()
	done := c.prefetchDone
	c.prefetchMu.Unlock()
	if done != nil {
		<-done
	}
}
