// Package exception provides the error types used throughout the harvester.
// Every failure in the fetch and ledger layers is classified into a Kind so
// that retry policies and the orchestrator can act on the category rather
// than on string matching.
package exception

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a HarvestError.
type Kind string

const (
	// KindUnknown is the zero classification for errors that were not tagged.
	KindUnknown Kind = "UNKNOWN"
	// KindAuth marks a token exchange failure. Fatal to the run, never retried.
	KindAuth Kind = "AUTH"
	// KindTransientNetwork marks a timeout or connection failure. Retried up
	// to a fixed attempt budget.
	KindTransientNetwork Kind = "TRANSIENT_NETWORK"
	// KindUpstreamRejection marks a non-2xx HTTP response other than the
	// recognized removed shape. Never retried.
	KindUpstreamRejection Kind = "UPSTREAM_REJECTION"
	// KindRemoved marks the structured "resource removed" 404 shape. It is a
	// skip signal, not a failure.
	KindRemoved Kind = "REMOVED"
	// KindDataShape marks a malformed or incomplete payload, such as a detail
	// response without an etag header. Fatal to the record.
	KindDataShape Kind = "DATA_SHAPE"
	// KindLedgerWrite marks a SPARQL update failure. Retried with backoff and
	// then dropped with a warning (best effort).
	KindLedgerWrite Kind = "LEDGER_WRITE"
)

// retryable reports whether errors of this kind may be retried at all.
func (k Kind) retryable() bool {
	return k == KindTransientNetwork || k == KindLedgerWrite
}

// HarvestError is the error type produced by the harvester's components. It
// carries the module where the error occurred, a message, the wrapped
// original error and its Kind.
type HarvestError struct {
	// Module indicates the component where the error occurred
	// (e.g. "detail_fetcher", "ledger", "sparql").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// kind is the error classification.
	kind Kind
}

// New creates a new HarvestError with the given classification.
func New(module, message string, originalErr error, kind Kind) *HarvestError {
	return &HarvestError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		kind:        kind,
	}
}

// Newf creates a new HarvestError with a formatted message and no wrapped
// error.
func Newf(module string, kind Kind, format string, a ...interface{}) *HarvestError {
	return &HarvestError{
		Module:  module,
		Message: fmt.Sprintf(format, a...),
		kind:    kind,
	}
}

// Error implements the error interface.
func (e *HarvestError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *HarvestError) Unwrap() error {
	return e.OriginalErr
}

// Kind returns the error classification.
func (e *HarvestError) Kind() Kind {
	return e.kind
}

// IsRetryable reports whether this error may be retried.
func (e *HarvestError) IsRetryable() bool {
	return e.kind.retryable()
}

// KindOf returns the Kind of err, unwrapping as needed. Errors that are not
// HarvestErrors classify as KindUnknown.
func KindOf(err error) Kind {
	var he *HarvestError
	if errors.As(err, &he) {
		return he.kind
	}
	return KindUnknown
}

// IsKind reports whether err (or any error it wraps) carries the given Kind.
func IsKind(err error, kind Kind) bool {
	var he *HarvestError
	if errors.As(err, &he) {
		return he.kind == kind
	}
	return false
}

// IsRetryable determines if an error is worth retrying. The HarvestError
// classification takes precedence; untagged errors fall back to a
// conservative message heuristic for network-looking failures.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var he *HarvestError
	if errors.As(err, &he) {
		return he.IsRetryable()
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "EOF")
}

// ExtractErrorMessage extracts a clean error message from an error. For
// HarvestError it returns the Message field, otherwise the standard Error()
// string.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var he *HarvestError
	if errors.As(err, &he) {
		return he.Message
	}
	return err.Error()
}
