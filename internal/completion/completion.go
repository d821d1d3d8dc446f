// Package completion defines the Client interface for the upstream
// chat-completion API and the classified error taxonomy applied to its
// failures.
//
// A completion client is stateless: it receives a full transcript, sends it
// with fixed model parameters, and returns the generated reply text. All
// failures surface as a [*Error] whose [Kind] is derived from the
// upstream-reported HTTP status category; unmapped statuses and transport
// failures fall into [KindUnknown].
//
// Implementations must be safe for concurrent use and must respect context
// cancellation — the completion call is the pipeline's sole suspension
// point and may take arbitrary latency.
package completion

import (
	"context"
	"errors"
	"fmt"

	"github.com/umarrg/chatbot/internal/chat"
)

// Kind classifies an upstream completion failure.
type Kind string

const (
	// KindUnauthorized means the upstream rejected the configured
	// credentials (HTTP 401 or 403).
	KindUnauthorized Kind = "unauthorized"

	// KindRateLimited means the upstream is throttling requests (HTTP 429).
	KindRateLimited Kind = "rate_limited"

	// KindServiceUnavailable means the upstream reported an internal
	// failure (HTTP 5xx).
	KindServiceUnavailable Kind = "service_unavailable"

	// KindUnknown covers everything else: network failures, timeouts,
	// malformed responses, and unmapped status codes.
	KindUnknown Kind = "unknown"
)

// Error is a classified completion failure.
type Error struct {
	// Kind is the failure classification.
	Kind Kind

	// StatusCode is the upstream HTTP status (0 when not applicable,
	// e.g. network failure before a response arrived).
	StatusCode int

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("completion: %s (status %d): %v", e.Kind, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("completion: %s: %v", e.Kind, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf extracts the classification from err. Any error that is not a
// [*Error] is treated as [KindUnknown].
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// Classify maps an HTTP status code to a [Kind] per the relay's
// classification policy.
func Classify(statusCode int) Kind {
	switch {
	case statusCode == 401 || statusCode == 403:
		return KindUnauthorized
	case statusCode == 429:
		return KindRateLimited
	case statusCode >= 500 && statusCode <= 599:
		return KindServiceUnavailable
	default:
		return KindUnknown
	}
}

// Client is the abstraction over the upstream chat-completion API.
type Client interface {
	// Complete sends the transcript as ordered role/content pairs and
	// returns the first generated message's text. Failures are returned
	// as a [*Error].
	Complete(ctx context.Context, t chat.Transcript) (string, error)
}
