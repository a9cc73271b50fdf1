// internal/scraperr/errors.go
// Package scraperr defines the error taxonomy shared across the scraping
// and metadata pipelines. Every failure that crosses a package boundary is
// wrapped in an *Error carrying a code and a retryability hint.
package scraperr

import (
	"errors"
	"fmt"
)

// Code categorizes an error for retry decisions and diagnostics.
type Code string

const (
	// CodeInvalidInput marks malformed URLs or search targets. Fails fast,
	// never retried.
	CodeInvalidInput Code = "INVALID_INPUT"

	// CodeNavigationBlocked marks an anti-bot interstitial that survived
	// all fallback strategies of one attempt.
	CodeNavigationBlocked Code = "NAVIGATION_BLOCKED"

	// CodeExtractionEmpty marks a page that loaded but exposed no
	// recognizable tracklist structure.
	CodeExtractionEmpty Code = "EXTRACTION_EMPTY"

	// CodeTimeout marks a deadline exceeded at strategy or provider level.
	CodeTimeout Code = "TIMEOUT"

	// CodeProviderUnavailable marks a metadata provider without the
	// configuration it needs to run.
	CodeProviderUnavailable Code = "PROVIDER_UNAVAILABLE"

	// CodeCacheIO marks cache backend failures. Always non-fatal: callers
	// treat it as a miss or no-op.
	CodeCacheIO Code = "CACHE_IO"

	// CodeInternal marks everything else.
	CodeInternal Code = "INTERNAL"
)

// Error is a categorized error with an optional wrapped cause.
type Error struct {
	Code      Code
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// Is matches errors by code so callers can use errors.Is with sentinel
// instances.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// New creates an error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Retryable: defaultRetryable(code)}
}

// Newf creates an error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a code and message to an existing error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Retryable: defaultRetryable(code), Cause: err}
}

// CodeOf extracts the code from an error chain, or CodeInternal if the
// chain carries no *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsRetryable reports whether the orchestrator should retry after err.
// Unclassified errors are retryable: transient network failures usually
// surface as plain errors from the transport.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return true
}

func defaultRetryable(code Code) bool {
	switch code {
	case CodeInvalidInput, CodeProviderUnavailable:
		return false
	default:
		return true
	}
}
