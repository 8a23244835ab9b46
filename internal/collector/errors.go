package collector

import (
	"errors"
	"fmt"
)

// Sentinels for the pipeline error taxonomy. Only ErrConfiguration aborts a run.
var (
	ErrTransientFetch       = errors.New("transient fetch error")
	ErrFatalFetch           = errors.New("fatal fetch error")
	ErrRetriesExhausted     = errors.New("retries exhausted")
	ErrParse                = errors.New("parse error")
	ErrCheckpointCorruption = errors.New("checkpoint corruption")
	ErrConfiguration        = errors.New("configuration error")
	ErrObjectNotFound       = errors.New("archived object not found")
)

// FetchError describes a failed fetch. It matches ErrTransientFetch or
// ErrFatalFetch depending on Status.
type FetchError struct {
	URL        string
	Status     FetchStatus
	HTTPStatus int
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch %s: %s after %d attempt(s)", e.URL, e.Status, e.Attempts)
	if e.HTTPStatus != 0 {
		msg += fmt.Sprintf(" (http %d)", e.HTTPStatus)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is classify the failure.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrTransientFetch:
		return e.Status == FetchRetryableFailure
	case ErrFatalFetch:
		return e.Status == FetchFatalFailure
	}
	return false
}

// ParseReason names why a document could not be parsed.
type ParseReason string

// Parse failure reasons.
const (
	ReasonNoIntervals       ParseReason = "no_intervals_found"
	ReasonMalformedEncoding ParseReason = "malformed_encoding"
	ReasonEmptyInput        ParseReason = "empty_input"
)

// ParseError reports a document that cannot be turned into a record.
type ParseError struct {
	Reason ParseReason
	Detail string
}

func (e *ParseError) Error() string {
	if e.Detail == "" {
		return "parse: " + string(e.Reason)
	}
	return fmt.Sprintf("parse: %s: %s", e.Reason, e.Detail)
}

// Is matches ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// ConfigError reports an invalid run configuration or matrix selection.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is matches ErrConfiguration.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}
