package translate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-trans/internal/types"
)

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		in        string
		allowAuto bool
		want      string
		wantErr   bool
	}{
		{"ko", false, "ko", false},
		{" EN ", false, "en", false},
		{"zh-cn", false, "zh-CN", false},
		{"pt_BR", false, "pt-BR", false},
		{"auto", true, "auto", false},
		{"AUTO", true, "auto", false},
		{"auto", false, "", true},
		{"", true, "", true},
		{"not a tag!", false, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeLanguage(tt.in, tt.allowAuto)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, ErrInvalidLanguage, CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePair(t *testing.T) {
	src, tgt, err := NormalizePair("", "")
	require.NoError(t, err)
	assert.Equal(t, "auto", src)
	assert.Equal(t, "ko", tgt)

	_, _, err = NormalizePair("en", "auto")
	assert.Error(t, err)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Korean", DisplayName("ko"))
	assert.Equal(t, "Japanese", DisplayName("ja"))
	assert.Equal(t, "??", DisplayName("??"))
}

func TestNewGateway(t *testing.T) {
	ctx := context.Background()

	g, err := NewGateway(ctx, GatewayConfig{Backend: types.BackendGoogle})
	require.NoError(t, err)
	assert.Equal(t, "google", g.Name())

	g, err = NewGateway(ctx, GatewayConfig{})
	require.NoError(t, err)
	assert.Equal(t, "google", g.Name())

	_, err = NewGateway(ctx, GatewayConfig{Backend: types.BackendLLM})
	assert.Equal(t, ErrBackendConfig, CodeOf(err))

	g, err = NewGateway(ctx, GatewayConfig{Backend: "LLM", APIKey: "sk", Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "llm:m", g.Name())

	_, err = NewGateway(ctx, GatewayConfig{Backend: "fax"})
	assert.Equal(t, ErrBackendConfig, CodeOf(err))
}

func TestGatewayConfigFrom(t *testing.T) {
	cfg := &types.Config{Backend: "llm", OpenAIAPIKey: "k", OpenAIBaseURL: "u", OpenAIModel: "m", GoogleEndpoint: "e"}
	gc := GatewayConfigFrom(cfg, 5*time.Second)
	assert.Equal(t, GatewayConfig{Backend: "llm", GoogleEndpoint: "e", APIKey: "k", BaseURL: "u", Model: "m", Timeout: 5 * time.Second, MaxRetries: DefaultMaxRetries}, gc)
}

func TestErrorHelpers(t *testing.T) {
	cause := errors.New("io")
	err := &Error{Code: ErrTranslateFailed, Message: "failed", Details: "status 503", Retryable: true, Cause: cause}
	assert.Equal(t, "failed: status 503: io", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsRetryable(err))
	assert.False(t, IsRetryable(cause))
	assert.Equal(t, ErrorCode(""), CodeOf(cause))

}

func TestWithRetry(t *testing.T) {
	retryable := &Error{Code: ErrTranslateFailed, Message: "busy", Retryable: true}
	fatal := &Error{Code: ErrTranslateFailed, Message: "bad request"}

	tests := []struct {
		name      string
		attempts  int
		errs      []error
		wantCalls int
		wantErr   error
	}{
		{"first try", 3, nil, 1, nil},
		{"recovers", 3, []error{retryable, retryable}, 3, nil},
		{"exhausted", 3, []error{retryable, retryable, retryable, retryable}, 3, retryable},
		{"not retryable", 3, []error{fatal}, 1, fatal},
		{"zero attempts runs once", 0, []error{retryable}, 1, retryable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			out, err := withRetry(context.Background(), tt.attempts, time.Millisecond, func() (string, error) {
				calls++
				if calls <= len(tt.errs) {
					return "", tt.errs[calls-1]
				}
				return "ok", nil
			})
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr != nil {
				assert.Same(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ok", out)
		})
	}
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := withRetry(ctx, 5, time.Hour, func() (string, error) {
		calls++
		cancel()
		return "", &Error{Code: ErrTranslateFailed, Message: "busy", Retryable: true}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
