// Package errors defines the application error taxonomy and the helpers that
// retry, trip and report them.
package errors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Message keys resolved by the i18n catalogue.
const (
	KeyGeneric   = "error.generic"
	KeyInput     = "error.input"
	KeyStorage   = "error.storage"
	KeyLookup    = "error.lookup"
	KeyNotFound  = "error.not_found"
	KeyState     = "error.state"
	KeyRateLimit = "error.rate_limit"
)

// AppError is an error with a stable code and a user-facing message key.
// Message is for logs only and is never shown to users.
type AppError struct {
	Code           string
	Message        string
	UserMessageKey string
	Severity       Severity
	Retryable      bool
	cause          error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

// NewInputError reports unusable user input.
func NewInputError(msg string) *AppError {
	return &AppError{
		Code:           "E100",
		Message:        msg,
		UserMessageKey: KeyInput,
		Severity:       SeverityLow,
	}
}

// NewStorageError wraps a user store or session backend failure.
func NewStorageError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:           "E200",
		Message:        fmt.Sprintf("storage error: %s", underlyingMsg),
		UserMessageKey: KeyStorage,
		Severity:       SeverityHigh,
		Retryable:      true,
		cause:          cause,
	}
}

// NewLookupError wraps a failed call to a lookup API.
func NewLookupError(apiName string, cause error) *AppError {
	return &AppError{
		Code:           "E300",
		Message:        fmt.Sprintf("lookup api %s: %v", apiName, cause),
		UserMessageKey: KeyLookup,
		Severity:       SeverityMedium,
		Retryable:      true,
		cause:          cause,
	}
}

// NewLookupStatusError reports a non-200 reply from a lookup API. Server-side
// statuses are retryable.
func NewLookupStatusError(apiName string, status int) *AppError {
	return &AppError{
		Code:           "E301",
		Message:        fmt.Sprintf("lookup api %s: unexpected status %d", apiName, status),
		UserMessageKey: KeyLookup,
		Severity:       SeverityMedium,
		Retryable:      status >= 500 || status == 429,
	}
}

// NewNotFoundError reports that a lookup found nothing for the query.
func NewNotFoundError(apiName string) *AppError {
	return &AppError{
		Code:           "E310",
		Message:        fmt.Sprintf("lookup api %s: no result", apiName),
		UserMessageKey: KeyNotFound,
		Severity:       SeverityLow,
	}
}

func NewStateError(msg string) *AppError {
	return &AppError{
		Code:           "E400",
		Message:        msg,
		UserMessageKey: KeyState,
		Severity:       SeverityMedium,
	}
}

// NewRateLimitError reports a throttled user.
func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:           "E500",
		Message:        fmt.Sprintf("rate limit exceeded: retry after %d seconds", retryAfter),
		UserMessageKey: KeyRateLimit,
		Severity:       SeverityLow,
	}
}
