package viewer

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-trans/internal/pdf"
	"pdf-trans/internal/pdf/pdftest"
	"pdf-trans/internal/settings"
	"pdf-trans/internal/translate"
	"pdf-trans/internal/types"
)

type fakeGateway struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
	delay time.Duration
}

func (f *fakeGateway) Name() string { return "fake" }

func (f *fakeGateway) Translate(ctx context.Context, text, source, target string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.fail[text] {
		return "", errors.New("rejected")
	}
	return strings.ToUpper(text), nil
}

func (f *fakeGateway) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fixedSettings struct{ s settings.AppSettings }

func (f fixedSettings) Get() settings.AppSettings { return f.s }

type recordingOpener struct {
	urls  []string
	files []string
}

func (r *recordingOpener) OpenURL(u string) error  { r.urls = append(r.urls, u); return nil }
func (r *recordingOpener) OpenFile(p string) error { r.files = append(r.files, p); return nil }

func noPrefetch() settings.AppSettings {
	s := settings.Default()
	s.PrefetchPageCount = 0
	return s
}

func newTestController(t *testing.T, gw translate.Gateway, s settings.AppSettings, opts ...Option) *Controller {
	t.Helper()
	opts = append([]Option{WithSettings(fixedSettings{s})}, opts...)
	c := NewController(translate.NewService(gw, 2), opts...)
	t.Cleanup(func() { c.Close() })
	return c
}

func segmentTexts(segs []pdf.Segment) []string {
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = s.Text
	}
	return out
}

func TestController_OpenAndNavigate(t *testing.T) {
	c := newTestController(t, &fakeGateway{}, noPrefetch())

	var pages []int
	var statuses []types.Status
	c.OnPageChanged(func(vm *pdf.PageViewModel) { pages = append(pages, vm.PageNumber) })
	c.OnStatus(func(s types.Status) { statuses = append(statuses, s) })

	vm, err := c.Open(pdftest.WriteSample(t))
	require.NoError(t, err)
	require.NotNil(t, vm)
	assert.Equal(t, 1, vm.PageNumber)
	assert.Equal(t, 2, c.PageCount())
	assert.Equal(t, 0, c.CurrentPage())
	assert.Same(t, vm, c.CurrentView())
	require.NotEmpty(t, c.Outline())
	assert.Equal(t, "Introduction", c.Outline()[0].Title)

	info, ok := c.Info()
	assert.True(t, ok)
	assert.Equal(t, "sample.pdf", info.FileName)

	vm, err = c.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, vm.PageNumber)

	_, err = c.Next()
	require.Error(t, err)
	assert.Equal(t, pdf.ErrPageOutOfRange, pdf.ErrorCode(err))
	assert.Equal(t, 1, c.CurrentPage(), "failed navigation keeps the page")

	vm, err = c.Prev()
	require.NoError(t, err)
	assert.Equal(t, 1, vm.PageNumber)

	_, err = c.GoTo(-1)
	assert.Error(t, err)

	assert.Equal(t, []int{1, 2, 1}, pages)
	require.NotEmpty(t, statuses)
	assert.Equal(t, types.PhaseLoading, statuses[0].Phase)
	assert.Equal(t, types.PhaseError, statuses[len(statuses)-1].Phase)
}

func TestController_OpenMissingFile(t *testing.T) {
	c := newTestController(t, &fakeGateway{}, noPrefetch())
	var last types.Status
	c.OnStatus(func(s types.Status) { last = s })

	_, err := c.Open(filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.Equal(t, pdf.ErrPDFNotFound, pdf.ErrorCode(err))
	assert.Equal(t, types.PhaseError, last.Phase)
	assert.Zero(t, c.PageCount())
	assert.Nil(t, c.CurrentView())
}

func TestController_Close(t *testing.T) {
	c := newTestController(t, &fakeGateway{}, noPrefetch())
	_, err := c.Open(pdftest.WriteSample(t))
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Zero(t, c.PageCount())
	assert.Nil(t, c.CurrentView())

	_, err = c.GoTo(0)
	assert.Equal(t, types.ErrNoDocument, types.CodeOf(err))
}

func TestController_TranslateCurrentPage(t *testing.T) {
	gw := &fakeGateway{}
	c := newTestController(t, gw, noPrefetch())
	_, err := c.Open(pdftest.WriteSample(t))
	require.NoError(t, err)
	before := c.CurrentView()

	var translated *pdf.PageViewModel
	c.OnTranslated(func(vm *pdf.PageViewModel) { translated = vm })

	vm, err := c.TranslateCurrentPage(context.Background(), "en", "ko")
	require.NoError(t, err)
	assert.Same(t, vm, translated)
	assert.Same(t, vm, c.CurrentView())

	ids := make([]string, len(vm.TranslatedSegments))
	for i, s := range vm.TranslatedSegments {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"trans_block_0_0", "trans_block_0_1", "trans_block_0_2"}, ids)
	assert.Equal(t, []string{"HEADING", "FIRST LINE OF TEXT\nSECOND LINE HERE", "ANOTHER PARAGRAPH"}, segmentTexts(vm.TranslatedSegments))
	assert.Equal(t, before.OriginalSegments, vm.OriginalSegments)

	// the previous view model is untouched
	assert.Equal(t, "trans_line_0_0_0", before.TranslatedSegments[0].ID)
	assert.Len(t, gw.seen(), 3)
}

func TestController_TranslateFallsBackToOriginal(t *testing.T) {
	gw := &fakeGateway{fail: map[string]bool{"Heading": true}}
	c := newTestController(t, gw, noPrefetch())
	_, err := c.Open(pdftest.WriteSample(t))
	require.NoError(t, err)

	var last types.Status
	c.OnStatus(func(s types.Status) { last = s })

	vm, err := c.TranslateCurrentPage(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, vm.TranslatedSegments, 3)
	assert.Equal(t, "trans_line_0_0_0", vm.TranslatedSegments[0].ID)
	assert.Equal(t, "Heading", vm.TranslatedSegments[0].Text)
	assert.Equal(t, "trans_block_0_1", vm.TranslatedSegments[1].ID)

	assert.Equal(t, types.PhaseReady, last.Phase)
	assert.Contains(t, last.Message, "1 of 3 blocks")
}

func TestController_TranslateErrors(t *testing.T) {
	c := newTestController(t, &fakeGateway{delay: time.Second}, noPrefetch())

	_, err := c.TranslateCurrentPage(context.Background(), "en", "ko")
	assert.Equal(t, types.ErrNoDocument, types.CodeOf(err))

	_, err = c.Open(pdftest.WriteSample(t))
	require.NoError(t, err)
	before := c.CurrentView()

	_, err = c.TranslateCurrentPage(context.Background(), "en", "auto")
	assert.Equal(t, translate.ErrInvalidLanguage, translate.CodeOf(err))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.TranslateCurrentPage(ctx, "en", "ko")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Same(t, before, c.CurrentView())
}

func TestController_Prefetch(t *testing.T) {
	gw := &fakeGateway{}
	s := settings.Default()
	s.PrefetchPageCount = 3
	c := newTestController(t, gw, s)
	_, err := c.Open(pdftest.WriteSample(t))
	require.NoError(t, err)

	_, err = c.TranslateCurrentPage(context.Background(), "en", "ko")
	require.NoError(t, err)
	c.WaitPrefetch()

	assert.Contains(t, gw.seen(), "Rotated", "the next page is translated in the background")
	assert.Len(t, gw.seen(), 4, "prefetch stops at the last page")
	assert.Equal(t, 0, c.CurrentPage())
}

func TestController_PrefetchSkippedForReplacedPage(t *testing.T) {
	gw := &fakeGateway{}
	s := settings.Default()
	s.PrefetchPageCount = 3
	c := newTestController(t, gw, s)
	_, err := c.Open(pdftest.WriteSample(t))
	require.NoError(t, err)

	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()
	_, err = c.GoTo(1)
	require.NoError(t, err)

	c.startPrefetch(0, gen, "en", "ko")
	c.WaitPrefetch()
	assert.Empty(t, gw.seen(), "a page that was navigated away from is not prefetched")
}

func TestController_PrefetchDuringNavigation(t *testing.T) {
	gw := &fakeGateway{delay: time.Millisecond}
	s := settings.Default()
	s.PrefetchPageCount = 1
	c := newTestController(t, gw, s)
	_, err := c.Open(pdftest.WriteSample(t))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = c.TranslateCurrentPage(context.Background(), "en", "ko")
		}()
		go func(page int) {
			defer wg.Done()
			_, _ = c.GoTo(page % 2)
		}(i)
	}
	wg.Wait()
	c.WaitPrefetch()
	require.NoError(t, c.Close())
	c.WaitPrefetch()
}

func TestController_Languages(t *testing.T) {
	c := NewController(translate.NewService(&fakeGateway{}, 1), WithLanguages("en", "ja"))
	src, tgt := c.Languages()
	assert.Equal(t, "en", src)
	assert.Equal(t, "ja", tgt)

	require.NoError(t, c.SetLanguages("auto", "de"))
	src, tgt = c.Languages()
	assert.Equal(t, "auto", src)
	assert.Equal(t, "de", tgt)

	require.NoError(t, c.SetLanguages("en", ""))
	src, tgt = c.Languages()
	assert.Equal(t, "en", src)
	assert.Equal(t, "de", tgt, "an empty target keeps the current one")

	require.NoError(t, c.SetLanguages("", "fr"))
	src, tgt = c.Languages()
	assert.Equal(t, "en", src)
	assert.Equal(t, "fr", tgt)

	assert.Error(t, c.SetLanguages("en", "auto"))
	assert.Error(t, c.SetLanguages("xx-!!", "ja"))
	src, tgt = c.Languages()
	assert.Equal(t, "en", src, "a rejected pair leaves the languages unchanged")
	assert.Equal(t, "fr", tgt)
}

func TestController_Hover(t *testing.T) {
	c := newTestController(t, &fakeGateway{}, noPrefetch())
	assert.Nil(t, c.Hover("orig_line_0_0_0", types.ViewOriginal))

	_, err := c.Open(pdftest.WriteSample(t))
	require.NoError(t, err)
	before := c.CurrentView()

	vm := c.Hover("orig_line_0_1_0", types.ViewOriginal)
	require.NotNil(t, vm)
	assert.True(t, vm.OriginalSegments[1].IsHighlighted)
	assert.True(t, vm.TranslatedSegments[1].IsHighlighted, "line copy follows its original")
	assert.False(t, vm.OriginalSegments[2].IsHighlighted)
	assert.False(t, before.OriginalSegments[1].IsHighlighted, "earlier view models are not mutated")
	assert.Same(t, vm, c.Hover("orig_line_0_1_0", types.ViewOriginal))

	_, err = c.TranslateCurrentPage(context.Background(), "en", "ko")
	require.NoError(t, err)
	vm = c.Hover("trans_block_0_1", types.ViewTranslated)
	assert.True(t, vm.TranslatedSegments[1].IsHighlighted)
	assert.True(t, vm.OriginalSegments[1].IsHighlighted)
	assert.True(t, vm.OriginalSegments[2].IsHighlighted)
	assert.False(t, vm.OriginalSegments[0].IsHighlighted)

	vm = c.Hover("", types.ViewTranslated)
	for _, s := range append(vm.OriginalSegments, vm.TranslatedSegments...) {
		assert.False(t, s.IsHighlighted, s.ID)
	}
}

func TestController_HoverDisabled(t *testing.T) {
	s := noPrefetch()
	s.EnableHighlighting = false
	c := newTestController(t, &fakeGateway{}, s)
	_, err := c.Open(pdftest.WriteSample(t))
	require.NoError(t, err)

	vm := c.Hover("orig_line_0_0_0", types.ViewOriginal)
	assert.False(t, vm.OriginalSegments[0].IsHighlighted)
	assert.Empty(t, onIDs(c.HighlightUpdate(vm.SegmentIDs(), "orig_line_0_0_0", types.ViewOriginal)))
}

func TestController_ResolveLink(t *testing.T) {
	opener := &recordingOpener{}
	c := newTestController(t, &fakeGateway{}, noPrefetch(), WithLinkOpener(opener))
	path := pdftest.WriteSample(t)
	_, err := c.Open(path)
	require.NoError(t, err)

	action, err := c.ResolveLink("page:1")
	require.NoError(t, err)
	assert.Equal(t, LinkAction{Kind: LinkPage, Page: 1}, action)
	assert.Equal(t, 1, c.CurrentPage())

	action, err = c.ResolveLink("name:FirstPage")
	require.NoError(t, err)
	assert.Equal(t, 0, action.Page)

	action, err = c.ResolveLink("name:NextPage")
	require.NoError(t, err)
	assert.Equal(t, 1, action.Page)

	action, err = c.ResolveLink("name: introduction ")
	require.NoError(t, err)
	assert.Equal(t, 0, action.Page)

	action, err = c.ResolveLink("name:Details")
	require.NoError(t, err)
	assert.Equal(t, 1, action.Page)

	action, err = c.ResolveLink("https://example.com/docs")
	require.NoError(t, err)
	assert.Equal(t, LinkExternal, action.Kind)
	assert.Equal(t, []string{"https://example.com/docs"}, opener.urls)

	action, err = c.ResolveLink("file:other.pdf")
	require.NoError(t, err)
	assert.Equal(t, LinkFile, action.Kind)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "other.pdf"), action.Target)
	assert.Equal(t, []string{action.Target}, opener.files)

	for _, bad := range []string{"", "page:-1", "page:9", "name:Nowhere", "just text", "file:"} {
		_, err := c.ResolveLink(bad)
		assert.Error(t, err, bad)
	}
}

func TestMergeTranslations(t *testing.T) {
	original := []pdf.Segment{
		{ID: "orig_line_0_0_0", BlockID: "block_0_0", LineID: "line_0_0_0", Text: "a", Rect: pdf.Rect{X: 1, Y: 1, Width: 5, Height: 5}},
		{ID: "orig_line_0_0_1", BlockID: "block_0_0", LineID: "line_0_0_1", Text: "b", Rect: pdf.Rect{X: 1, Y: 7, Width: 5, Height: 5}},
		{ID: "orig_line_0_1_0", BlockID: "block_0_1", LineID: "line_0_1_0", Text: "c", Rect: pdf.Rect{X: 1, Y: 20, Width: 5, Height: 5}},
		{ID: "orig_line_0_2_0", BlockID: "block_0_2", LineID: "line_0_2_0", Text: "d", Rect: pdf.Rect{X: 1, Y: 30, Width: 5, Height: 5}},
	}
	got := mergeTranslations(original, []translate.BlockTranslation{
		{BlockID: "block_0_0", Translated: "AB"},
		{BlockID: "block_0_1", Translated: ""},
		{BlockID: "block_0_2", Translated: "D"},
	})
	require.Len(t, got, 3)
	assert.Equal(t, "trans_block_0_0", got[0].ID)
	assert.Equal(t, pdf.Rect{X: 1, Y: 1, Width: 5, Height: 11}, got[0].Rect)
	assert.Equal(t, "trans_line_0_1_0", got[1].ID)
	assert.Equal(t, "c", got[1].Text)
	assert.Equal(t, "trans_block_0_2", got[2].ID)

	assert.Empty(t, mergeTranslations(nil, nil))
}
