package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"pdf-trans/internal/config"
	"pdf-trans/internal/export"
	"pdf-trans/internal/logger"
	"pdf-trans/internal/pdf"
	"pdf-trans/internal/settings"
	"pdf-trans/internal/translate"
	"pdf-trans/internal/types"
	"pdf-trans/internal/viewer"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// Event names for frontend communication
const (
	EventPageChanged    = "page-changed"
	EventPageTranslated = "page-translated"
	EventStatus         = "status"
)

// DefaultCacheFileName is the translation cache inside the config directory
const DefaultCacheFileName = "translation-cache.json"

// StatusCallback is called whenever the status bar message changes.
type StatusCallback func(status types.Status)

// App is the Wails application controller. It wires configuration,
// settings, the translation backend and the page viewer together and
// exposes them to the frontend.
type App struct {
	ctx        context.Context
	config     *config.ConfigManager
	settings   *settings.Manager
	cache      *translate.TranslationCache
	gateway    translate.Gateway
	controller *viewer.Controller

	status         types.Status
	statusMu       sync.RWMutex
	statusCallback StatusCallback

	// cancels the running page translation
	cancelMu   sync.Mutex
	cancelFunc context.CancelFunc

	// isWailsRuntime indicates if the app is running in a Wails environment
	// This is used to safely skip runtime calls during tests and in CLI mode
	isWailsRuntime bool
}

// safeEmit emits an event to the frontend when running under Wails.
func (a *App) safeEmit(eventName string, data ...interface{}) {
	if !a.isWailsRuntime || a.ctx == nil {
		logger.Debug("event emit skipped (not in Wails runtime)",
			logger.String("event", eventName))
		return
	}
	runtime.EventsEmit(a.ctx, eventName, data...)
}

// SetWailsRuntime sets the Wails runtime flag.
func (a *App) SetWailsRuntime(isWails bool) {
	a.isWailsRuntime = isWails
}

// NewApp creates an App using the default config location.
func NewApp() *App {
	return &App{status: types.Status{Phase: types.PhaseIdle}}
}

// NewAppWithConfig creates an App with a custom config path.
func NewAppWithConfig(configPath string) (*App, error) {
	configMgr, err := config.NewConfigManager(configPath)
	if err != nil {
		return nil, err
	}
	return &App{
		config: configMgr,
		status: types.Status{Phase: types.PhaseIdle},
	}, nil
}

// startup is called when the app starts. It loads configuration and
// settings, builds the translation backend and the viewer.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	logger.Info("application starting up")

	if a.config == nil {
		configMgr, err := config.NewConfigManager("")
		if err != nil {
			logger.Error("failed to create config manager", err)
			return
		}
		a.config = configMgr
	}
	if err := a.config.Load(); err != nil {
		logger.Warn("failed to load config, using defaults", logger.Err(err))
	}
	if err := a.config.Validate(); err != nil {
		logger.Warn("configuration invalid, falling back to google backend", logger.Err(err))
		a.config.GetConfig().Backend = types.BackendGoogle
	}
	cfg := a.config.GetConfig()

	a.settings = settings.NewManager(a.config.ResolvePath(cfg.SettingsFile, settings.SettingsFileName))

	a.cache = translate.NewTranslationCache(a.config.ResolvePath(cfg.CacheFile, DefaultCacheFileName))
	if err := a.cache.Load(); err != nil {
		logger.Warn("translation cache unusable, starting empty", logger.Err(err))
	}

	if a.gateway == nil {
		gw, err := translate.NewGateway(ctx, translate.GatewayConfigFrom(cfg, a.config.GetRequestTimeout()))
		if err != nil {
			logger.Error("failed to create translation backend, using google", err)
			gw = translate.NewGoogleGateway(translate.GoogleConfig{Endpoint: cfg.GoogleEndpoint, Timeout: a.config.GetRequestTimeout()})
		}
		a.gateway = gw
	}
	cached := translate.NewCachedGateway(a.gateway, a.cache)
	logger.Info("translation backend ready",
		logger.String("backend", cached.Name()),
		logger.Int("concurrency", cfg.Concurrency),
		logger.Int("cachedEntries", a.cache.Size()))

	a.controller = viewer.NewController(
		translate.NewService(cached, cfg.Concurrency),
		viewer.WithLanguages(cfg.SourceLang, cfg.TargetLang),
		viewer.WithSettings(a.settings),
		viewer.WithLinkOpener(a),
	)
	a.controller.OnStatus(a.updateStatus)
	a.controller.OnPageChanged(func(*pdf.PageViewModel) {
		a.safeEmit(EventPageChanged, a.GetPage())
	})
	a.controller.OnTranslated(func(*pdf.PageViewModel) {
		a.safeEmit(EventPageTranslated, a.GetPage())
	})

	logger.Info("application startup complete")
}

// shutdown remembers the open page and flushes the cache and config.
func (a *App) shutdown(ctx context.Context) {
	logger.Info("application shutting down")
	a.CancelTranslation()

	if a.controller != nil {
		a.rememberPosition()
		if err := a.controller.Close(); err != nil {
			logger.Warn("failed to close document", logger.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Save(); err != nil {
			logger.Warn("failed to save translation cache", logger.Err(err))
		}
	}
	if a.config != nil {
		if err := a.config.Save(); err != nil {
			logger.Warn("failed to save config", logger.Err(err))
		}
	}
	logger.Info("application shutdown complete")
}

func (a *App) rememberPosition() {
	if info, ok := a.controller.Info(); ok {
		a.config.AddRecentFile(info.FilePath, a.controller.CurrentPage())
	}
}

// SetStatusCallback sets a callback for status changes.
func (a *App) SetStatusCallback(callback StatusCallback) {
	a.statusMu.Lock()
	defer a.statusMu.Unlock()
	a.statusCallback = callback
}

// GetStatus returns the latest status bar message.
func (a *App) GetStatus() types.Status {
	a.statusMu.RLock()
	defer a.statusMu.RUnlock()
	return a.status
}

func (a *App) updateStatus(s types.Status) {
	a.statusMu.Lock()
	a.status = s
	callback := a.statusCallback
	a.statusMu.Unlock()

	if s.Phase == types.PhaseError {
		logger.Warn("status error", logger.String("message", s.Message), logger.String("error", s.Error))
	}
	if callback != nil {
		callback(s)
	}
	a.safeEmit(EventStatus, s)
}

func (a *App) ready() error {
	if a.controller == nil {
		return types.NewAppError(types.ErrInternal, "application not started", nil)
	}
	return nil
}

// OpenFileDialog opens a file dialog to select a PDF.
func (a *App) OpenFileDialog() string {
	if !a.isWailsRuntime {
		return ""
	}
	selection, err := runtime.OpenFileDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "Open PDF",
		Filters: []runtime.FileFilter{
			{DisplayName: "PDF documents (*.pdf)", Pattern: "*.pdf"},
		},
	})
	if err != nil {
		logger.Error("file dialog failed", err)
		return ""
	}
	return selection
}

// OpenPDF opens a document and shows the page it was last left on.
func (a *App) OpenPDF(path string) (*viewer.PageView, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, types.NewAppError(types.ErrInvalidInput, "no file selected", nil)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	a.CancelTranslation()
	if _, ok := a.controller.Info(); ok {
		a.rememberPosition()
	}
	if _, err := a.controller.Open(path); err != nil {
		return nil, err
	}

	if last := a.config.LastPageOf(path); last > 0 && last < a.controller.PageCount() {
		if _, err := a.controller.GoTo(last); err != nil {
			logger.Warn("could not restore last page", logger.Int("page", last), logger.Err(err))
		}
	}
	a.config.AddRecentFile(path, a.controller.CurrentPage())
	if err := a.config.Save(); err != nil {
		logger.Warn("failed to save recent files", logger.Err(err))
	}
	return a.GetPage(), nil
}

// GetRecentFiles returns the recently opened documents.
func (a *App) GetRecentFiles() []types.RecentFile {
	if a.config == nil {
		return nil
	}
	return a.config.GetConfig().RecentFiles
}

// GetDocumentInfo describes the open document.
func (a *App) GetDocumentInfo() (pdf.DocumentInfo, error) {
	if err := a.ready(); err != nil {
		return pdf.DocumentInfo{}, err
	}
	info, ok := a.controller.Info()
	if !ok {
		return pdf.DocumentInfo{}, types.NewAppError(types.ErrNoDocument, "no document is open", nil)
	}
	return info, nil
}

// GetPage returns the current page, nil when nothing is shown.
func (a *App) GetPage() *viewer.PageView {
	if a.controller == nil {
		return nil
	}
	return a.controller.View()
}

// NextPage shows the next page.
func (a *App) NextPage() (*viewer.PageView, error) {
	return a.navigate(a.controller.Next)
}

// PrevPage shows the previous page.
func (a *App) PrevPage() (*viewer.PageView, error) {
	return a.navigate(a.controller.Prev)
}

// GoToPage shows a 0-based page.
func (a *App) GoToPage(index int) (*viewer.PageView, error) {
	return a.navigate(func() (*pdf.PageViewModel, error) { return a.controller.GoTo(index) })
}

func (a *App) navigate(fn func() (*pdf.PageViewModel, error)) (*viewer.PageView, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	a.CancelTranslation()
	if _, err := fn(); err != nil {
		return nil, err
	}
	return a.GetPage(), nil
}

// TranslatePage translates the current page. Empty languages use the
// configured pair.
func (a *App) TranslatePage(source, target string) (*viewer.PageView, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	base := a.ctx
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithCancel(base)
	a.cancelMu.Lock()
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	a.cancelFunc = cancel
	a.cancelMu.Unlock()
	defer cancel()

	if _, err := a.controller.TranslateCurrentPage(ctx, source, target); err != nil {
		return nil, err
	}
	if err := a.cache.Save(); err != nil {
		logger.Warn("failed to save translation cache", logger.Err(err))
	}
	return a.GetPage(), nil
}

// CancelTranslation stops a running page translation.
func (a *App) CancelTranslation() {
	a.cancelMu.Lock()
	defer a.cancelMu.Unlock()
	if a.cancelFunc != nil {
		a.cancelFunc()
		a.cancelFunc = nil
	}
}

// Hover highlights a segment and its counterpart in the other view.
// view is "ORIGINAL" or "TRANSLATED".
func (a *App) Hover(id, view string) *viewer.PageView {
	if a.controller == nil {
		return nil
	}
	a.controller.Hover(id, types.ViewContext(strings.ToUpper(view)))
	return a.GetPage()
}

// HighlightUpdate returns the highlight state of ids for a hover.
func (a *App) HighlightUpdate(ids []string, hovered, view string) map[string]bool {
	if a.controller == nil {
		return viewer.UpdateHighlights(ids, "")
	}
	return a.controller.HighlightUpdate(ids, hovered, types.ViewContext(strings.ToUpper(view)))
}

// FollowLink resolves a segment link and returns what happened.
func (a *App) FollowLink(uri string) (viewer.LinkAction, error) {
	if err := a.ready(); err != nil {
		return viewer.LinkAction{}, err
	}
	action, err := a.controller.ResolveLink(uri)
	if err != nil {
		logger.Warn("link not followed", logger.String("uri", uri), logger.Err(err))
		return action, err
	}
	return action, nil
}

// OpenURL opens an external link in the system browser.
func (a *App) OpenURL(rawURL string) error {
	logger.Info("opening external link", logger.String("url", rawURL))
	if a.isWailsRuntime {
		runtime.BrowserOpenURL(a.ctx, rawURL)
	}
	return nil
}

// OpenFile opens a linked local file with the system handler.
func (a *App) OpenFile(path string) error {
	logger.Info("opening linked file", logger.String("path", path))
	if a.isWailsRuntime {
		runtime.BrowserOpenURL(a.ctx, "file:///"+filepath.ToSlash(path))
	}
	return nil
}

// GetOutline returns the nested outline of the open document.
func (a *App) GetOutline() []pdf.OutlineItem {
	if a.controller == nil {
		return []pdf.OutlineItem{}
	}
	if items := a.controller.Outline(); items != nil {
		return items
	}
	return []pdf.OutlineItem{}
}

// GetSettings returns the user settings as a dictionary.
func (a *App) GetSettings() map[string]interface{} {
	if a.settings == nil {
		return settings.Default().ToMap()
	}
	return a.settings.Get().ToMap()
}

// SaveSettings normalises and persists user settings.
func (a *App) SaveSettings(values map[string]interface{}) (map[string]interface{}, error) {
	if a.settings == nil {
		return nil, types.NewAppError(types.ErrInternal, "application not started", nil)
	}
	if err := a.settings.Set(settings.FromMap(values)); err != nil {
		return nil, err
	}
	return a.settings.Get().ToMap(), nil
}

// GetLanguages returns the default source and target language.
func (a *App) GetLanguages() []string {
	if a.controller == nil {
		return []string{translate.DefaultSourceLang, translate.DefaultTargetLang}
	}
	src, tgt := a.controller.Languages()
	return []string{src, tgt}
}

// SetLanguages validates and stores the default language pair.
func (a *App) SetLanguages(source, target string) error {
	if err := a.ready(); err != nil {
		return err
	}
	if err := a.controller.SetLanguages(source, target); err != nil {
		return err
	}
	src, tgt := a.controller.Languages()
	return a.config.SetLanguages(src, tgt)
}

// ExportPage writes the translated view of the current page to outPath.
// An empty outPath asks for a location.
func (a *App) ExportPage(outPath string) (string, error) {
	if err := a.ready(); err != nil {
		return "", err
	}
	vm := a.controller.CurrentView()
	if vm == nil {
		return "", types.NewAppError(types.ErrNoDocument, "no page is shown", nil)
	}

	if outPath == "" && a.isWailsRuntime {
		info, _ := a.controller.Info()
		name := strings.TrimSuffix(info.FileName, filepath.Ext(info.FileName))
		selection, err := runtime.SaveFileDialog(a.ctx, runtime.SaveDialogOptions{
			Title:           "Export translated page",
			DefaultFilename: fmt.Sprintf("%s_p%d_translated.pdf", name, vm.PageNumber),
			Filters: []runtime.FileFilter{
				{DisplayName: "PDF documents (*.pdf)", Pattern: "*.pdf"},
			},
		})
		if err != nil {
			return "", types.NewAppError(types.ErrInternal, "save dialog failed", err)
		}
		outPath = selection
	}
	if outPath == "" {
		return "", nil
	}

	exp := export.NewExporter(export.Options{FontPath: a.config.GetConfig().ExportFontPath})
	if err := exp.Export([]*pdf.PageViewModel{vm}, outPath); err != nil {
		a.updateStatus(types.Status{Phase: types.PhaseError, Page: vm.PageNumber, Message: "Export failed", Error: err.Error()})
		return "", err
	}
	a.updateStatus(types.Status{Phase: types.PhaseReady, Page: vm.PageNumber, Message: "Exported to " + outPath})
	return outPath, nil
}
