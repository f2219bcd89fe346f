package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pdf-trans/internal/logger"
)

// DefaultGoogleEndpoint is the unauthenticated web translate endpoint
const DefaultGoogleEndpoint = "https://translate.googleapis.com/translate_a/single"

// DefaultTimeout is the default HTTP client timeout
const DefaultTimeout = 30 * time.Second

// GoogleConfig holds options for GoogleGateway
type GoogleConfig struct {
	Endpoint   string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Client     *http.Client
}

// GoogleGateway calls the public translate_a/single endpoint
type GoogleGateway struct {
	endpoint   string
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
}

// NewGoogleGateway creates a GoogleGateway, applying defaults for zero values
func NewGoogleGateway(cfg GoogleConfig) *GoogleGateway {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultGoogleEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = BaseRetryDelay
	}
	return &GoogleGateway{
		endpoint:   endpoint,
		client:     client,
		maxRetries: cfg.MaxRetries,
		retryDelay: retryDelay,
	}
}

// Name returns the backend name
func (g *GoogleGateway) Name() string { return "google" }

// Translate translates text. An empty source means auto detection and an
// empty target means the default target language.
func (g *GoogleGateway) Translate(ctx context.Context, text, source, target string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	if source == "" {
		source = DefaultSourceLang
	}
	if target == "" {
		target = DefaultTargetLang
	}
	return withRetry(ctx, g.maxRetries, g.retryDelay, func() (string, error) {
		return g.translateOnce(ctx, text, source, target)
	})
}

func (g *GoogleGateway) translateOnce(ctx context.Context, text, source, target string) (string, error) {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", source)
	params.Set("tl", target)
	params.Set("dt", "t")
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", NewError(ErrTranslateFailed, "failed to create request", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &Error{Code: ErrTranslateFailed, Message: "translate request failed", Retryable: true, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Code: ErrTranslateFailed, Message: "failed to read response", Retryable: true, Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		logger.Warn("translate endpoint returned error status",
			logger.Int("status", resp.StatusCode),
			logger.Int("textLen", len(text)))
		return "", &Error{
			Code:      ErrTranslateFailed,
			Message:   "translate request failed",
			Details:   fmt.Sprintf("status %d", resp.StatusCode),
			Retryable: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
	}

	translated, err := parseGoogleResponse(body)
	if err != nil {
		return "", err
	}
	return translated, nil
}

// parseGoogleResponse joins data[0][i][0] of the nested array response
func parseGoogleResponse(body []byte) (string, error) {
	var data []interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return "", NewError(ErrTranslateFailed, "unexpected response format", err)
	}
	if len(data) == 0 {
		return "", NewError(ErrTranslateFailed, "unexpected response format", nil)
	}
	sentences, ok := data[0].([]interface{})
	if !ok {
		return "", NewError(ErrTranslateFailed, "unexpected response format", nil)
	}

	var sb strings.Builder
	for _, s := range sentences {
		parts, ok := s.([]interface{})
		if !ok || len(parts) == 0 {
			continue
		}
		if piece, ok := parts[0].(string); ok && piece != "" {
			sb.WriteString(piece)
		}
	}
	if sb.Len() == 0 {
		return "", NewError(ErrTranslateFailed, "empty translation", nil)
	}
	return sb.String(), nil
}
