// Package translate sends page text to a machine translation backend. It
// provides the backend gateways, a persistent translation cache and the
// block batching service used by the viewer.
package translate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pdf-trans/internal/types"
)

// Gateway translates one piece of text
type Gateway interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
	Name() string
}

// GatewayConfig selects and configures a backend
type GatewayConfig struct {
	Backend        string
	GoogleEndpoint string
	APIKey         string
	BaseURL        string
	Model          string
	Timeout        time.Duration
	MaxRetries     int
}

// GatewayConfigFrom builds a GatewayConfig from the application config
func GatewayConfigFrom(cfg *types.Config, timeout time.Duration) GatewayConfig {
	return GatewayConfig{
		Backend:        cfg.Backend,
		GoogleEndpoint: cfg.GoogleEndpoint,
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		Model:          cfg.OpenAIModel,
		Timeout:        timeout,
		MaxRetries:     DefaultMaxRetries,
	}
}

// NewGateway creates the gateway named by cfg.Backend
func NewGateway(ctx context.Context, cfg GatewayConfig) (Gateway, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", types.BackendGoogle:
		return NewGoogleGateway(GoogleConfig{
			Endpoint:   cfg.GoogleEndpoint,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		}), nil
	case types.BackendLLM:
		return NewLLMGateway(ctx, LLMConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		})
	default:
		return nil, NewError(ErrBackendConfig, fmt.Sprintf("unknown backend %q", cfg.Backend), nil)
	}
}
