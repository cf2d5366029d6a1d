// Package errors defines the application error taxonomy shared by the ledger,
// the bot handlers and the background workers.
package errors

import (
	"errors"
	"fmt"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Kind groups error codes into classes that callers branch on.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindPrecondition       Kind = "precondition_failed"
	KindPersistence        Kind = "persistence_failure"
	KindNotification       Kind = "notification_failure"
	KindValidation         Kind = "validation"
	KindRateLimited        Kind = "rate_limited"
	KindExternal           Kind = "external"
	KindInvalidStateChange Kind = "invalid_state"
)

type AppError struct {
	Code        string
	Kind        Kind
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

// Is reports whether target carries the same code, so sentinels still match
// after WithCause produced a copy.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || e == nil || t == nil {
		return false
	}

	return e.Code != "" && e.Code == t.Code
}

// WithCause returns a copy of e that wraps cause.
func (e *AppError) WithCause(cause error) *AppError {
	if e == nil {
		return nil
	}

	cp := *e
	cp.cause = cause
	return &cp
}

// NewNotFound builds a sentinel for a missing entity (E1xx).
func NewNotFound(code, msg, userMsg string) *AppError {
	return &AppError{
		Code:        code,
		Kind:        KindNotFound,
		Message:     msg,
		UserMessage: userMsg,
		Severity:    SeverityLow,
	}
}

// NewPrecondition builds a sentinel for a rule the caller violated (E2xx).
func NewPrecondition(code, msg, userMsg string) *AppError {
	return &AppError{
		Code:        code,
		Kind:        KindPrecondition,
		Message:     msg,
		UserMessage: userMsg,
		Severity:    SeverityLow,
	}
}

func NewPersistenceError(op string, cause error, retryable bool) *AppError {
	return &AppError{
		Code:        "E300",
		Kind:        KindPersistence,
		Message:     fmt.Sprintf("persistence failure during %s", op),
		UserMessage: "Temporary problem on our side, please try again later.",
		Severity:    SeverityHigh,
		Retryable:   retryable,
		cause:       cause,
	}
}

func NewNotificationError(target string, cause error) *AppError {
	return &AppError{
		Code:        "E400",
		Kind:        KindNotification,
		Message:     fmt.Sprintf("notification to %s failed", target),
		UserMessage: "",
		Severity:    SeverityLow,
		Retryable:   true,
		cause:       cause,
	}
}

func NewExternalAPIError(apiName string, cause error) *AppError {
	return &AppError{
		Code:        "E410",
		Kind:        KindExternal,
		Message:     fmt.Sprintf("external API error: %s", apiName),
		UserMessage: "The service is temporarily unavailable.",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        "E500",
		Kind:        KindValidation,
		Message:     msg,
		UserMessage: fmt.Sprintf("Invalid input. %s", msg),
		Severity:    SeverityLow,
	}
}

func NewStateError(msg string) *AppError {
	return &AppError{
		Code:        "E510",
		Kind:        KindInvalidStateChange,
		Message:     msg,
		UserMessage: "This action is not available right now.",
		Severity:    SeverityMedium,
	}
}

func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:        "E600",
		Kind:        KindRateLimited,
		Message:     fmt.Sprintf("rate limit exceeded: retry after %d seconds", retryAfter),
		UserMessage: fmt.Sprintf("Too many requests. Try again in %d seconds.", retryAfter),
		Severity:    SeverityLow,
	}
}

// KindOf returns the class of err, or an empty Kind for foreign errors.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Kind
	}

	return ""
}

// IsUserFacing reports whether err should be shown to the user verbatim
// instead of being treated as an internal failure.
func IsUserFacing(err error) bool {
	switch KindOf(err) {
	case KindNotFound, KindPrecondition, KindValidation, KindRateLimited, KindInvalidStateChange:
		return true
	default:
		return false
	}
}
