// Package errors defines the single error taxonomy used across dealintel:
// every error that crosses a package boundary is, or wraps, an *Error with
// a Kind drawn from this file. Handlers map Kind to HTTP status and retry
// behavior; workers map Kind to retry-vs-fail-fast.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the purposes of HTTP status mapping, retry
// policy, and alerting. Keep this list closed and small: every call site
// that branches on error type should be able to do so by switching on Kind.
type Kind string

const (
	// Validation means the caller supplied malformed or incomplete input.
	// Never retried.
	Validation Kind = "validation"
	// NotAuthorized means the caller is authenticated but the tenant
	// policy (pkg/policy) denied the action. Never retried.
	NotAuthorized Kind = "not_authorized"
	// NotFound means the referenced resource does not exist, or does not
	// exist within the caller's tenant scope (the two are
	// indistinguishable to the caller by design).
	NotFound Kind = "not_found"
	// Conflict means the operation lost a race: an optimistic-concurrency
	// check failed, a unique constraint was violated, or a state machine
	// transition was invalid from the row's current state.
	Conflict Kind = "conflict"
	// TransientIO means an I/O operation (disk, network, database) failed
	// in a way expected to succeed on retry.
	TransientIO Kind = "transient_io"
	// ProviderRateLimited means an external LLM/embedding/rerank provider
	// returned a rate-limit response. Retried with the job queue's
	// backoff; a Retry-After header is not consulted.
	ProviderRateLimited Kind = "provider_rate_limited"
	// ProviderUnavailable means an external provider is down or
	// unreachable. Retried; repeated failures trip the circuit breaker.
	ProviderUnavailable Kind = "provider_unavailable"
	// ProviderContract means an external provider returned a response
	// that violates its documented contract (bad JSON, missing field,
	// wrong dimensionality). Not retried against the same provider;
	// eligible for fallback to a secondary provider.
	ProviderContract Kind = "provider_contract"
	// ParseError means a source document could not be parsed into text.
	// Not retried; surfaces as a terminal document status.
	ParseError Kind = "parse_error"
	// DegradedKnowledge means an operation completed but drew on an
	// incomplete knowledge graph (e.g. a source document failed to
	// ingest). Not a failure — callers may choose to surface a warning.
	DegradedKnowledge Kind = "degraded_knowledge"
	// Timeout means a context deadline was exceeded.
	Timeout Kind = "timeout"
	// Internal means an unexpected, unclassified failure. Its detail is
	// never exposed to clients; no stack trace is attached.
	Internal Kind = "internal"
)

// Error is the concrete error type carried across package boundaries.
// Component and ID identify what failed for diagnostics; Err is the
// underlying cause, if any, and participates in errors.Unwrap.
type Error struct {
	Kind      Kind
	Component string
	ID        string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s: %s %q: %s", e.Kind, e.Component, e.ID, e.detail())
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Component, e.detail())
}

func (e *Error) detail() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown"
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind, so callers can write
// errors.Is(err, &Error{Kind: NotFound}) without constructing the full value.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != "" && t.Kind != e.Kind {
		return false
	}
	if t.Component != "" && t.Component != e.Component {
		return false
	}
	return true
}

// New constructs an *Error with no wrapped cause.
func New(kind Kind, component, message string) *Error {
	return &Error{Kind: kind, Component: component, Message: message}
}

// Wrap constructs an *Error wrapping err, preserving err's message via
// Unwrap chaining for errors.Is/As against the original cause.
func Wrap(kind Kind, component string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Component: component, Err: err}
}

// WithID returns a copy of e with ID set, for cases where the component is
// known before the specific resource ID is.
func (e *Error) WithID(id string) *Error {
	cp := *e
	cp.ID = id
	return &cp
}

// KindOf extracts the Kind of err if it is, or wraps, an *Error; otherwise
// returns Internal, since unclassified errors should be treated as bugs
// rather than silently mapped to a permissive default.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Retryable reports whether an error's Kind is expected to succeed on
// retry. Used by pkg/jobqueue to decide retry vs. fail and by
// pkg/llmprovider to decide whether to try the fallback client.
func Retryable(err error) bool {
	switch KindOf(err) {
	case TransientIO, ProviderRateLimited, ProviderUnavailable, Timeout:
		return true
	default:
		return false
	}
}

// Is* helpers mirror the common errors.Is(err, target) call shape used at
// handler and worker boundaries.
func IsValidation(err error) bool    { return KindOf(err) == Validation }
func IsNotAuthorized(err error) bool { return KindOf(err) == NotAuthorized }
func IsNotFound(err error) bool      { return KindOf(err) == NotFound }
func IsConflict(err error) bool      { return KindOf(err) == Conflict }
