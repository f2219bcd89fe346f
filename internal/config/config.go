// Package config provides configuration management for pdf-trans.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pdf-trans/internal/logger"
	"pdf-trans/internal/translate"
	"pdf-trans/internal/types"
)

const (
	// DefaultConfigFileName is the default configuration file name
	DefaultConfigFileName = "pdf-trans-config.json"
	// DefaultLogFileName is the log file kept next to the config file
	DefaultLogFileName = "pdf-trans.log"
	// DefaultLogLevel is the minimum level written to the log
	DefaultLogLevel = "info"
	// Translation defaults shared with the translate package
	DefaultGoogleEndpoint = translate.DefaultGoogleEndpoint
	DefaultSourceLang     = translate.DefaultSourceLang
	DefaultTargetLang     = translate.DefaultTargetLang
	// DefaultBaseURL is the default OpenAI-compatible API base URL
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultModel is the default chat model for the llm backend
	DefaultModel = "gpt-4o-mini"
	// DefaultConcurrency bounds in-flight block requests per page
	DefaultConcurrency = 8
	// DefaultRequestTimeout is the per-request timeout in seconds
	DefaultRequestTimeout = 30
	// maxRecentFiles caps the recent documents list
	maxRecentFiles = 10
)

// Environment variables that override file values
const (
	EnvBackend       = "PDFTRANS_BACKEND"
	EnvSourceLang    = "PDFTRANS_SOURCE_LANG"
	EnvTargetLang    = "PDFTRANS_TARGET_LANG"
	EnvConcurrency   = "PDFTRANS_CONCURRENCY"
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	EnvLogLevel      = "PDFTRANS_LOG_LEVEL"
)

// ConfigManager manages application configuration
type ConfigManager struct {
	configPath string
	config     *types.Config
}

// NewConfigManager creates a new ConfigManager with the specified config path.
// If configPath is empty, it uses ~/.config/pdf-trans/pdf-trans-config.json.
func NewConfigManager(configPath string) (*ConfigManager, error) {
	if configPath == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			logger.Error("failed to resolve config directory", err)
			return nil, types.NewAppError(types.ErrConfig, "failed to get user home directory", err)
		}
		configPath = filepath.Join(dir, DefaultConfigFileName)
	}

	logger.Info("ConfigManager initialized", logger.String("configPath", configPath))
	return &ConfigManager{
		configPath: configPath,
		config:     defaultConfig(),
	}, nil
}

// DefaultConfigDir returns the directory that holds config, settings and cache files
func DefaultConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "pdf-trans"), nil
}

func defaultConfig() *types.Config {
	return &types.Config{
		Backend:        types.BackendGoogle,
		GoogleEndpoint: DefaultGoogleEndpoint,
		SourceLang:     DefaultSourceLang,
		TargetLang:     DefaultTargetLang,
		OpenAIBaseURL:  DefaultBaseURL,
		OpenAIModel:    DefaultModel,
		Concurrency:    DefaultConcurrency,
		RequestTimeout: DefaultRequestTimeout,
		LogFile:        DefaultLogFileName,
		LogLevel:       DefaultLogLevel,
	}
}

// Load reads the config file. A missing file yields defaults; an invalid
// file is logged and replaced by defaults. Empty fields are defaulted and
// environment variables are applied last.
func (m *ConfigManager) Load() error {
	logger.Debug("loading configuration", logger.String("path", m.configPath))

	data, err := os.ReadFile(m.configPath)
	switch {
	case os.IsNotExist(err):
		logger.Info("config file not found, using defaults", logger.String("path", m.configPath))
		m.config = defaultConfig()
	case err != nil:
		logger.Error("failed to read config file", err, logger.String("path", m.configPath))
		return types.NewAppError(types.ErrConfig, "failed to read config file", err)
	default:
		cfg := &types.Config{}
		if err := json.Unmarshal(data, cfg); err != nil {
			logger.Warn("invalid config file format, using defaults", logger.String("path", m.configPath), logger.Err(err))
			m.config = defaultConfig()
		} else {
			m.config = cfg
		}
	}

	m.applyDefaults()
	m.applyEnv()

	logger.Info("configuration loaded",
		logger.String("backend", m.config.Backend),
		logger.String("source", m.config.SourceLang),
		logger.String("target", m.config.TargetLang),
		logger.Int("concurrency", m.config.Concurrency))
	return nil
}

func (m *ConfigManager) applyDefaults() {
	d := defaultConfig()
	c := m.config
	if c.Backend == "" {
		c.Backend = d.Backend
	}
	if c.GoogleEndpoint == "" {
		c.GoogleEndpoint = d.GoogleEndpoint
	}
	if c.SourceLang == "" {
		c.SourceLang = d.SourceLang
	}
	if c.TargetLang == "" {
		c.TargetLang = d.TargetLang
	}
	if c.OpenAIBaseURL == "" {
		c.OpenAIBaseURL = d.OpenAIBaseURL
	}
	if c.OpenAIModel == "" {
		c.OpenAIModel = d.OpenAIModel
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.LogFile == "" {
		c.LogFile = d.LogFile
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

func (m *ConfigManager) applyEnv() {
	c := m.config
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackend)); v != "" {
		c.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvSourceLang)); v != "" {
		c.SourceLang = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTargetLang)); v != "" {
		c.TargetLang = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvConcurrency)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Concurrency = n
		} else {
			logger.Warn("ignoring invalid concurrency override", logger.String("value", v))
		}
	}
	if c.OpenAIAPIKey == "" {
		c.OpenAIAPIKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if v := os.Getenv(EnvOpenAIBaseURL); v != "" && c.OpenAIBaseURL == DefaultBaseURL {
		c.OpenAIBaseURL = v
	}
}

// Validate checks values that cannot be defaulted
func (m *ConfigManager) Validate() error {
	c := m.GetConfig()
	switch c.Backend {
	case types.BackendGoogle:
	case types.BackendLLM:
		if c.OpenAIAPIKey == "" {
			return types.NewAppErrorWithDetails(types.ErrConfig, "llm backend requires an API key",
				"set openai_api_key or "+EnvOpenAIAPIKey, nil)
		}
	default:
		return types.NewAppErrorWithDetails(types.ErrConfig, "unknown translation backend", c.Backend, nil)
	}
	return nil
}

// Save saves the current configuration to the config file.
func (m *ConfigManager) Save() error {
	logger.Debug("saving configuration", logger.String("path", m.configPath))

	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("failed to create config directory", err, logger.String("dir", dir))
		return types.NewAppError(types.ErrConfig, "failed to create config directory", err)
	}

	data, err := json.MarshalIndent(m.GetConfig(), "", "  ")
	if err != nil {
		return types.NewAppError(types.ErrConfig, "failed to marshal config", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		logger.Error("failed to write config file", err, logger.String("path", m.configPath))
		return types.NewAppError(types.ErrConfig, "failed to write config file", err)
	}

	logger.Info("configuration saved", logger.String("path", m.configPath))
	return nil
}

// GetConfig returns the current configuration.
func (m *ConfigManager) GetConfig() *types.Config {
	if m.config == nil {
		m.config = defaultConfig()
	}
	return m.config
}

// SetConfig sets the entire configuration.
func (m *ConfigManager) SetConfig(config *types.Config) {
	m.config = config
}

// GetConfigPath returns the path to the config file.
func (m *ConfigManager) GetConfigPath() string {
	return m.configPath
}

// GetLanguages returns the configured source and target language.
func (m *ConfigManager) GetLanguages() (string, string) {
	c := m.GetConfig()
	return c.SourceLang, c.TargetLang
}

// SetLanguages stores the language pair and saves the configuration.
func (m *ConfigManager) SetLanguages(source, target string) error {
	c := m.GetConfig()
	c.SourceLang = source
	c.TargetLang = target
	return m.Save()
}

// GetRequestTimeout returns the per-request timeout.
func (m *ConfigManager) GetRequestTimeout() time.Duration {
	return time.Duration(m.GetConfig().RequestTimeout) * time.Second
}

// ResolvePath returns p, or name inside the default config directory when p is empty.
func (m *ConfigManager) ResolvePath(p, name string) string {
	if p != "" {
		return p
	}
	return filepath.Join(filepath.Dir(m.configPath), name)
}

// LoggerConfig returns the logger settings of the loaded config. A
// relative log_file is placed in the config directory.
func (m *ConfigManager) LoggerConfig(console bool) *logger.Config {
	c := m.GetConfig()
	path := c.LogFile
	if path == "" {
		path = DefaultLogFileName
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(m.configPath), path)
	}
	return logger.NewConfig(path, c.LogLevel, console)
}

// AddRecentFile moves path to the front of the recent list without saving.
func (m *ConfigManager) AddRecentFile(path string, lastPage int) {
	c := m.GetConfig()
	entry := types.RecentFile{Path: path, Timestamp: time.Now().UnixMilli(), LastPage: lastPage}

	kept := make([]types.RecentFile, 0, len(c.RecentFiles)+1)
	kept = append(kept, entry)
	for _, rf := range c.RecentFiles {
		if rf.Path != path {
			kept = append(kept, rf)
		}
	}
	if len(kept) > maxRecentFiles {
		kept = kept[:maxRecentFiles]
	}
	c.RecentFiles = kept
}

// LastPageOf returns the remembered page index for path, or 0.
func (m *ConfigManager) LastPageOf(path string) int {
	for _, rf := range m.GetConfig().RecentFiles {
		if rf.Path == path {
			return rf.LastPage
		}
	}
	return 0
}
