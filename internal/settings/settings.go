// Package settings provides the viewer's user settings and their persistence.
// Settings are serialised to and from a plain dictionary and stored as JSON.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	colorful "github.com/lucasb-eyer/go-colorful"

	"pdf-trans/internal/logger"
	"pdf-trans/internal/types"
)

const (
	// SettingsFileName is the default settings file name
	SettingsFileName = "settings.json"

	DefaultFontFamily        = "Arial"
	DefaultFontSize          = 10
	DefaultHighlightColorHex = "#ffffcc"
	DefaultPrefetchPageCount = 1
	DefaultPreviewPageCount  = 3

	MinFontSize          = 4
	MaxFontSize          = 72
	MaxPrefetchPageCount = 20
	MinPreviewPageCount  = 1
	MaxPreviewPageCount  = 50
)

// Dictionary keys
const (
	KeyFontFamily         = "font_family"
	KeyFontPointSize      = "font_point_size"
	KeyHighlightColorHex  = "highlight_color_hex"
	KeyPrefetchPageCount  = "prefetch_page_count"
	KeyPreviewPageCount   = "preview_page_count"
	KeyEnableHighlighting = "enable_highlighting"
)

// AppSettings holds the user-facing viewer settings
type AppSettings struct {
	FontFamily         string `json:"font_family"`
	FontSize           int    `json:"font_point_size"`
	HighlightColorHex  string `json:"highlight_color_hex"`
	PrefetchPageCount  int    `json:"prefetch_page_count"`
	PreviewPageCount   int    `json:"preview_page_count"`
	EnableHighlighting bool   `json:"enable_highlighting"`
}

// Default returns the default settings
func Default() AppSettings {
	return AppSettings{
		FontFamily:         DefaultFontFamily,
		FontSize:           DefaultFontSize,
		HighlightColorHex:  DefaultHighlightColorHex,
		PrefetchPageCount:  DefaultPrefetchPageCount,
		PreviewPageCount:   DefaultPreviewPageCount,
		EnableHighlighting: true,
	}
}

// ToMap serialises the settings into a dictionary
func (s AppSettings) ToMap() map[string]interface{} {
	n := s.Normalize()
	return map[string]interface{}{
		KeyFontFamily:         n.FontFamily,
		KeyFontPointSize:      n.FontSize,
		KeyHighlightColorHex:  n.HighlightColorHex,
		KeyPrefetchPageCount:  n.PrefetchPageCount,
		KeyPreviewPageCount:   n.PreviewPageCount,
		KeyEnableHighlighting: n.EnableHighlighting,
	}
}

// FromMap builds settings from a dictionary. Missing or mistyped keys take
// their default; the result is normalised.
func FromMap(data map[string]interface{}) AppSettings {
	s := Default()
	if data == nil {
		return s
	}
	if v, ok := data[KeyFontFamily].(string); ok && strings.TrimSpace(v) != "" {
		s.FontFamily = v
	}
	if v, ok := intValue(data[KeyFontPointSize]); ok {
		s.FontSize = v
	}
	if v, ok := data[KeyHighlightColorHex].(string); ok {
		s.HighlightColorHex = v
	}
	if v, ok := intValue(data[KeyPrefetchPageCount]); ok {
		s.PrefetchPageCount = v
	}
	if v, ok := intValue(data[KeyPreviewPageCount]); ok {
		s.PreviewPageCount = v
	}
	if v, ok := data[KeyEnableHighlighting].(bool); ok {
		s.EnableHighlighting = v
	}
	return s.Normalize()
}

// intValue accepts the numeric shapes a decoded dictionary may carry
func intValue(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}

// Normalize clamps counts and sizes into range and canonicalises the colour
func (s AppSettings) Normalize() AppSettings {
	if strings.TrimSpace(s.FontFamily) == "" {
		s.FontFamily = DefaultFontFamily
	}
	s.FontSize = clamp(s.FontSize, MinFontSize, MaxFontSize)
	s.PrefetchPageCount = clamp(s.PrefetchPageCount, 0, MaxPrefetchPageCount)
	s.PreviewPageCount = clamp(s.PreviewPageCount, MinPreviewPageCount, MaxPreviewPageCount)

	if hex, err := NormalizeColor(s.HighlightColorHex); err == nil {
		s.HighlightColorHex = hex
	} else {
		s.HighlightColorHex = DefaultHighlightColorHex
	}
	return s
}

// NormalizeColor parses a #rgb or #rrggbb colour and returns lowercase #rrggbb
func NormalizeColor(hex string) (string, error) {
	hex = strings.TrimSpace(hex)
	if hex != "" && !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return "", fmt.Errorf("invalid colour %q: %w", hex, err)
	}
	return c.Clamped().Hex(), nil
}

// HighlightRGB returns the highlight colour as 8-bit channels
func (s AppSettings) HighlightRGB() (uint8, uint8, uint8) {
	c, err := colorful.Hex(s.Normalize().HighlightColorHex)
	if err != nil {
		c, _ = colorful.Hex(DefaultHighlightColorHex)
	}
	return c.RGB255()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Manager loads and saves AppSettings at a fixed path
type Manager struct {
	filePath string
	settings AppSettings
	mu       sync.RWMutex
}

// NewManager creates a settings manager for filePath and loads it.
// A missing or corrupt file leaves the defaults in place.
func NewManager(filePath string) *Manager {
	m := &Manager{
		filePath: filePath,
		settings: Default(),
	}
	if err := m.Load(); err != nil {
		logger.Warn("settings file unusable, using defaults",
			logger.String("path", filePath), logger.Err(err))
	}
	return m
}

// Load reads settings from the file
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.filePath)
	if err != nil {
		m.settings = Default()
		if os.IsNotExist(err) {
			return nil
		}
		return types.NewAppError(types.ErrSettings, "failed to read settings", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		m.settings = Default()
		return types.NewAppError(types.ErrSettings, "failed to parse settings", err)
	}

	m.settings = FromMap(raw)
	return nil
}

// Save writes the settings dictionary to the file
func (m *Manager) Save() error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m.settings.ToMap(), "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return types.NewAppError(types.ErrSettings, "failed to marshal settings", err)
	}

	if dir := filepath.Dir(m.filePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return types.NewAppError(types.ErrSettings, "failed to create settings directory", err)
		}
	}
	if err := os.WriteFile(m.filePath, data, 0600); err != nil {
		return types.NewAppError(types.ErrSettings, "failed to write settings", err)
	}

	logger.Debug("settings saved", logger.String("path", m.filePath))
	return nil
}

// Get returns a copy of the current settings
func (m *Manager) Get() AppSettings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// Set normalises and stores s, then saves
func (m *Manager) Set(s AppSettings) error {
	m.mu.Lock()
	m.settings = s.Normalize()
	m.mu.Unlock()
	return m.Save()
}

// GetFilePath returns the settings file path
func (m *Manager) GetFilePath() string {
	return m.filePath
}
