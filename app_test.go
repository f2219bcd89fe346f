package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"pdf-trans/internal/config"
	"pdf-trans/internal/logger"
	"pdf-trans/internal/pdf/pdftest"
	"pdf-trans/internal/settings"
	"pdf-trans/internal/types"
)

// upperGateway translates by upper-casing and fails on "FAIL"
type upperGateway struct {
	mu    sync.Mutex
	calls int
}

func (g *upperGateway) Name() string { return "upper" }

func (g *upperGateway) Translate(ctx context.Context, text, source, target string) (string, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if text == "FAIL" {
		return "", errors.New("rejected")
	}
	return strings.ToUpper(text), nil
}

func (g *upperGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// startTestApp creates an app whose config, settings and cache live in a
// temp directory
func startTestApp(t *testing.T, dir string, gw *upperGateway) *App {
	t.Helper()
	app, err := NewAppWithConfig(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatalf("NewAppWithConfig() returned error: %v", err)
	}
	app.gateway = gw
	app.startup(context.Background())
	return app
}

func TestNewApp(t *testing.T) {
	app := NewApp()
	if app == nil {
		t.Fatal("NewApp() returned nil")
	}
	if app.GetStatus().Phase != types.PhaseIdle {
		t.Errorf("initial phase = %q, want idle", app.GetStatus().Phase)
	}
}

func TestNewAppWithConfig(t *testing.T) {
	app, err := NewAppWithConfig(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("NewAppWithConfig() returned error: %v", err)
	}
	if app.config == nil {
		t.Fatal("App config should not be nil")
	}
}

func TestApp_Startup(t *testing.T) {
	dir := t.TempDir()
	app := startTestApp(t, dir, &upperGateway{})

	if app.controller == nil {
		t.Fatal("viewer should be initialized after startup")
	}
	if app.settings == nil || app.cache == nil {
		t.Fatal("settings and cache should be initialized after startup")
	}
	if got := app.settings.GetFilePath(); got != filepath.Join(dir, settings.SettingsFileName) {
		t.Errorf("settings path = %q", got)
	}
	if app.GetPage() != nil {
		t.Error("no page should be shown before a document is opened")
	}
	if outline := app.GetOutline(); outline == nil || len(outline) != 0 {
		t.Errorf("GetOutline() = %v, want empty slice", outline)
	}
	if langs := app.GetLanguages(); langs[0] != "auto" || langs[1] != "ko" {
		t.Errorf("GetLanguages() = %v", langs)
	}
}

func TestApp_NotStarted(t *testing.T) {
	app := NewApp()
	if _, err := app.NextPage(); err == nil {
		t.Error("NextPage() before startup should fail")
	}
	if _, err := app.TranslatePage("", ""); err == nil {
		t.Error("TranslatePage() before startup should fail")
	}
	if _, err := app.OpenPDF("x.pdf"); err == nil {
		t.Error("OpenPDF() before startup should fail")
	}
	if app.GetPage() != nil {
		t.Error("GetPage() before startup should be nil")
	}
	if got := app.HighlightUpdate([]string{"a"}, "a", "ORIGINAL"); got["a"] {
		t.Error("nothing is highlighted before startup")
	}
}

func TestApp_OpenNavigateTranslate(t *testing.T) {
	gw := &upperGateway{}
	app := startTestApp(t, t.TempDir(), gw)
	defer app.shutdown(context.Background())

	var phases []types.Phase
	var mu sync.Mutex
	app.SetStatusCallback(func(s types.Status) {
		mu.Lock()
		phases = append(phases, s.Phase)
		mu.Unlock()
	})

	view, err := app.OpenPDF(pdftest.WriteSample(t))
	if err != nil {
		t.Fatalf("OpenPDF() returned error: %v", err)
	}
	if view.PageIndex != 0 || view.PageCount != 2 {
		t.Fatalf("OpenPDF() view = page %d of %d", view.PageIndex, view.PageCount)
	}
	if len(app.GetOutline()) != 2 {
		t.Errorf("outline roots = %d, want 2", len(app.GetOutline()))
	}

	view, err = app.TranslatePage("en", "ko")
	if err != nil {
		t.Fatalf("TranslatePage() returned error: %v", err)
	}
	if len(view.Translated) != 3 || view.Translated[0].Text != "HEADING" {
		t.Fatalf("translated view = %+v", view.Translated)
	}

	view = app.Hover("trans_block_0_1", "translated")
	if !view.Original[1].Highlighted || !view.Original[2].Highlighted {
		t.Error("hovering a translated block should highlight its original lines")
	}

	action, err := app.FollowLink(view.Original[3].Link)
	if err != nil {
		t.Fatalf("FollowLink() returned error: %v", err)
	}
	if action.Page != 1 || app.GetPage().PageIndex != 1 {
		t.Errorf("FollowLink() did not navigate to page 2: %+v", action)
	}
	if _, err := app.FollowLink("https://example.com"); err != nil {
		t.Errorf("external links should resolve without a runtime: %v", err)
	}

	if _, err := app.NextPage(); err == nil {
		t.Error("NextPage() past the end should fail")
	}
	if _, err := app.PrevPage(); err != nil {
		t.Errorf("PrevPage() returned error: %v", err)
	}

	info, err := app.GetDocumentInfo()
	if err != nil || info.PageCount != 2 {
		t.Errorf("GetDocumentInfo() = %+v, %v", info, err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(phases) == 0 || app.GetStatus().Phase == "" {
		t.Error("status updates should reach the callback")
	}
}

func TestApp_ShutdownPersistsState(t *testing.T) {
	dir := t.TempDir()
	doc := pdftest.WriteSample(t)
	gw := &upperGateway{}

	app := startTestApp(t, dir, gw)
	if _, err := app.OpenPDF(doc); err != nil {
		t.Fatalf("OpenPDF() returned error: %v", err)
	}
	if _, err := app.TranslatePage("en", "ko"); err != nil {
		t.Fatalf("TranslatePage() returned error: %v", err)
	}
	app.controller.WaitPrefetch()
	if _, err := app.GoToPage(1); err != nil {
		t.Fatalf("GoToPage() returned error: %v", err)
	}
	app.shutdown(context.Background())

	if _, err := os.Stat(filepath.Join(dir, DefaultCacheFileName)); err != nil {
		t.Fatalf("translation cache not written: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	var cfg types.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("config is not JSON: %v", err)
	}
	if len(cfg.RecentFiles) == 0 || cfg.RecentFiles[0].LastPage != 1 {
		t.Fatalf("recent files = %+v", cfg.RecentFiles)
	}

	// a fresh app resumes on the remembered page and reuses the cache
	calls := gw.count()
	app2 := startTestApp(t, dir, gw)
	defer app2.shutdown(context.Background())
	view, err := app2.OpenPDF(doc)
	if err != nil {
		t.Fatalf("OpenPDF() returned error: %v", err)
	}
	if view.PageIndex != 1 {
		t.Errorf("reopened at page %d, want 1", view.PageIndex)
	}
	if _, err := app2.GoToPage(0); err != nil {
		t.Fatal(err)
	}
	if _, err := app2.TranslatePage("en", "ko"); err != nil {
		t.Fatal(err)
	}
	app2.controller.WaitPrefetch()
	if gw.count() != calls {
		t.Errorf("cached page was translated again: %d new calls", gw.count()-calls)
	}
}

func TestApp_Settings(t *testing.T) {
	app := startTestApp(t, t.TempDir(), &upperGateway{})

	got, err := app.SaveSettings(map[string]interface{}{
		settings.KeyPrefetchPageCount:  float64(99),
		settings.KeyHighlightColorHex:  "#ABCDEF",
		settings.KeyEnableHighlighting: false,
	})
	if err != nil {
		t.Fatalf("SaveSettings() returned error: %v", err)
	}
	if got[settings.KeyPrefetchPageCount] != settings.MaxPrefetchPageCount {
		t.Errorf("prefetch = %v, want clamped", got[settings.KeyPrefetchPageCount])
	}
	if got[settings.KeyHighlightColorHex] != "#abcdef" {
		t.Errorf("colour = %v", got[settings.KeyHighlightColorHex])
	}
	if app.GetSettings()[settings.KeyEnableHighlighting] != false {
		t.Error("settings should be stored")
	}
	if _, err := os.Stat(app.settings.GetFilePath()); err != nil {
		t.Errorf("settings file not written: %v", err)
	}
}

func TestApp_SetLanguages(t *testing.T) {
	app := startTestApp(t, t.TempDir(), &upperGateway{})

	if err := app.SetLanguages("en", "ja"); err != nil {
		t.Fatalf("SetLanguages() returned error: %v", err)
	}
	if langs := app.GetLanguages(); langs[0] != "en" || langs[1] != "ja" {
		t.Errorf("GetLanguages() = %v", langs)
	}
	if src, tgt := app.config.GetLanguages(); src != "en" || tgt != "ja" {
		t.Errorf("config languages = %s, %s", src, tgt)
	}
	if err := app.SetLanguages("en", "auto"); err == nil {
		t.Error("auto is not a valid target")
	}
}

func TestApp_ExportWithoutPage(t *testing.T) {
	app := startTestApp(t, t.TempDir(), &upperGateway{})
	if _, err := app.ExportPage(filepath.Join(t.TempDir(), "out.pdf")); err == nil {
		t.Error("ExportPage() without a page should fail")
	}
}

func TestRunPage(t *testing.T) {
	dir := t.TempDir()
	app, err := NewAppWithConfig(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatal(err)
	}
	app.gateway = &upperGateway{}

	var out bytes.Buffer
	code := app.runPage(context.Background(), &out, cliOptions{
		pdfPath: pdftest.WriteSample(t),
		page:    1,
		target:  "ja",
	})
	if code != 0 {
		t.Fatalf("runPage() = %d, output:\n%s", code, out.String())
	}
	text := out.String()
	for _, want := range []string{"sample.pdf (2 pages)", "auto -> ja", "[line_0_0_0] Heading", "[block_0_1] FIRST LINE OF TEXT"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestRunPage_MissingFile(t *testing.T) {
	app, err := NewAppWithConfig(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatal(err)
	}
	app.gateway = &upperGateway{}
	var out bytes.Buffer
	if code := app.runPage(context.Background(), &out, cliOptions{pdfPath: "/no/such.pdf", page: 1}); code != 1 {
		t.Errorf("runPage() = %d, want 1", code)
	}
}

func TestInitLogger(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")
	if err := os.WriteFile(configPath, []byte(`{"log_file": "app.log", "log_level": "debug"}`), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvLogLevel, "")

	initLogger(configPath, false)
	logger.Debug("debug line")
	if err := logger.Close(); err != nil {
		t.Fatalf("logger.Close() returned error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "app.log"))
	if err != nil {
		t.Fatalf("log file not written where the config says: %v", err)
	}
	if !strings.Contains(string(data), "[DEBUG] debug line") {
		t.Errorf("debug entry missing at configured level:\n%s", data)
	}
}
