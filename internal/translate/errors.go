package translate

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"pdf-trans/internal/logger"
)

// ErrorCode enumerates translation failures
type ErrorCode string

const (
	ErrTranslateFailed ErrorCode = "TRANSLATE_FAILED"
	ErrInvalidLanguage ErrorCode = "INVALID_LANGUAGE"
	ErrCacheFailed     ErrorCode = "CACHE_FAILED"
	ErrBackendConfig   ErrorCode = "BACKEND_CONFIG"
)

// Error is a coded translation error
type Error struct {
	Code      ErrorCode
	Message   string
	Details   string
	Retryable bool
	Cause     error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code of the first Error in err's chain, or ""
func CodeOf(err error) ErrorCode {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

// IsRetryable reports whether err is worth another attempt
func IsRetryable(err error) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Retryable
	}
	return false
}

// Retry defaults
const (
	DefaultMaxRetries = 3
	BaseRetryDelay    = 500 * time.Millisecond
	MaxRetryDelay     = 8 * time.Second
)

// newBackOff returns the exponential policy for one request: delays
// start at base and double up to MaxRetryDelay, for at most attempts
// calls in total.
func newBackOff(ctx context.Context, attempts int, base time.Duration) backoff.BackOff {
	if attempts <= 0 {
		attempts = 1
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.Multiplier = 2
	b.MaxInterval = MaxRetryDelay
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// withRetry runs fn until it succeeds, returns a non-retryable error, the
// attempts are exhausted or ctx ends.
func withRetry(ctx context.Context, maxRetries int, base time.Duration, fn func() (string, error)) (string, error) {
	attempt := 0
	op := func() (string, error) {
		attempt++
		out, err := fn()
		if err != nil && !IsRetryable(err) {
			return "", backoff.Permanent(err)
		}
		return out, err
	}
	notify := func(err error, delay time.Duration) {
		logger.Debug("retrying translation",
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Err(err))
	}
	return backoff.RetryNotifyWithData(op, newBackOff(ctx, maxRetries, base), notify)
}
