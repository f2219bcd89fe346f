// Package types defines core data types and enums shared across pdf-trans.
package types

// Translation backends
const (
	BackendGoogle = "google"
	BackendLLM    = "llm"
)

// Config holds application configuration persisted by the config manager
type Config struct {
	Backend        string `json:"backend"`         // "google" or "llm"
	GoogleEndpoint string `json:"google_endpoint"` // unauthenticated translate endpoint
	SourceLang     string `json:"source_lang"`     // BCP 47 tag or "auto"
	TargetLang     string `json:"target_lang"`     // BCP 47 tag

	OpenAIAPIKey  string `json:"openai_api_key"`
	OpenAIBaseURL string `json:"openai_base_url"`
	OpenAIModel   string `json:"openai_model"`

	Concurrency    int `json:"concurrency"`     // max in-flight block requests per page
	RequestTimeout int `json:"request_timeout"` // seconds per translation request

	CacheFile      string `json:"cache_file"`       // translation cache, empty disables persistence
	SettingsFile   string `json:"settings_file"`    // AppSettings location
	LogFile        string `json:"log_file"`
	LogLevel       string `json:"log_level"`
	ExportFontPath string `json:"export_font_path"` // TTF used when exporting translated pages

	RecentFiles []RecentFile `json:"recent_files"`
}

// RecentFile is one entry of the recently opened documents list
type RecentFile struct {
	Path      string `json:"path"`
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
	LastPage  int    `json:"last_page"` // 0-based page index shown last
}

// ViewContext identifies which pane an interaction happened in
type ViewContext string

const (
	ViewOriginal   ViewContext = "ORIGINAL"
	ViewTranslated ViewContext = "TRANSLATED"
)

// Phase is the coarse state reported to the status bar
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseLoading     Phase = "loading"
	PhaseParsing     Phase = "parsing"
	PhaseTranslating Phase = "translating"
	PhaseReady       Phase = "ready"
	PhaseError       Phase = "error"
)

// Status is a transient status-bar message
type Status struct {
	Phase   Phase  `json:"phase"`
	Page    int    `json:"page,omitempty"` // 1-indexed
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// ErrorCode enumerates application level error categories
type ErrorCode string

const (
	ErrFileNotFound ErrorCode = "FILE_NOT_FOUND"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrConfig       ErrorCode = "CONFIG_ERROR"
	ErrSettings     ErrorCode = "SETTINGS_ERROR"
	ErrNoDocument   ErrorCode = "NO_DOCUMENT"
	ErrInternal     ErrorCode = "INTERNAL_ERROR"
)

// AppError is an application error carrying a code and optional cause
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface for AppError
func (e *AppError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// Unwrap returns the underlying cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError with the same code
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code && t.Message == ""
}

// NewAppError creates a new AppError with the given code, message, and optional cause
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAppErrorWithDetails creates a new AppError with details
func NewAppErrorWithDetails(code ErrorCode, message, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	for err != nil {
		if ae, ok := err.(*AppError); ok {
			return ae.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
