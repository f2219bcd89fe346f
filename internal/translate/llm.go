package translate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"pdf-trans/internal/logger"
)

// DefaultLLMModel is used when no model is configured
const DefaultLLMModel = "gpt-4o-mini"

// LLMConfig holds options for LLMGateway
type LLMConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// chatModel is the part of an eino chat model the gateway uses
type chatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// LLMGateway translates through an OpenAI-compatible chat model
type LLMGateway struct {
	model      chatModel
	modelName  string
	maxRetries int
	retryDelay time.Duration
}

// NewLLMGateway creates an LLMGateway backed by an eino OpenAI chat model
func NewLLMGateway(ctx context.Context, cfg LLMConfig) (*LLMGateway, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, NewError(ErrBackendConfig, "llm backend requires an API key", nil)
	}
	name := cfg.Model
	if name == "" {
		name = DefaultLLMModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	temperature := float32(0.3)
	chatModelConfig := &openai.ChatModelConfig{
		Model:       name,
		APIKey:      cfg.APIKey,
		Timeout:     timeout,
		Temperature: &temperature,
	}
	if cfg.BaseURL != "" {
		chatModelConfig.BaseURL = cfg.BaseURL
	}

	cm, err := openai.NewChatModel(ctx, chatModelConfig)
	if err != nil {
		return nil, NewError(ErrBackendConfig, "failed to create chat model", err)
	}
	return newLLMGateway(cm, name, cfg), nil
}

func newLLMGateway(cm chatModel, name string, cfg LLMConfig) *LLMGateway {
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = BaseRetryDelay
	}
	return &LLMGateway{
		model:      cm,
		modelName:  name,
		maxRetries: cfg.MaxRetries,
		retryDelay: retryDelay,
	}
}

// Name returns the backend name
func (g *LLMGateway) Name() string { return "llm:" + g.modelName }

// Translate translates text, keeping its line structure
func (g *LLMGateway) Translate(ctx context.Context, text, source, target string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	if target == "" {
		target = DefaultTargetLang
	}
	if source == "" {
		source = DefaultSourceLang
	}

	messages := []*schema.Message{
		schema.SystemMessage(buildSystemPrompt(source, target)),
		schema.UserMessage(text),
	}

	return withRetry(ctx, g.maxRetries, g.retryDelay, func() (string, error) {
		resp, err := g.model.Generate(ctx, messages)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			logger.Warn("chat model call failed", logger.String("model", g.modelName), logger.Err(err))
			return "", &Error{Code: ErrTranslateFailed, Message: "chat model call failed", Retryable: true, Cause: err}
		}
		if resp == nil || strings.TrimSpace(resp.Content) == "" {
			return "", NewError(ErrTranslateFailed, "chat model returned no content", nil)
		}
		return strings.TrimSpace(resp.Content), nil
	})
}

// buildSystemPrompt creates the system prompt for page text translation
func buildSystemPrompt(source, target string) string {
	return fmt.Sprintf(`You are a professional translator. Translate the user's text from %s to %s.

Rules:
1. Output only the translation, with no explanations or notes.
2. The text was extracted from a PDF page; line breaks may split sentences. Translate it as one passage.
3. Keep formulas, symbols, numbers, URLs and code exactly as they are.`,
		DisplayName(source), DisplayName(target))
}
