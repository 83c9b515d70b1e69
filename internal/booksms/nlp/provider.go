package nlp

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrUnavailable is returned by a Provider whose credential is not
// configured. Callers detect this without a network round-trip via
// Available and skip straight to the rule-based fallback.
var ErrUnavailable = errors.New("nlp: hosted classifier not configured")

// ErrMalformedReply is returned when the hosted service answers with a
// structurally valid HTTP response whose body cannot be interpreted as a
// classification (JSON parse failure, schema violation, missing choices).
// It is never retried — the service is up, it just produced garbage — and
// it is never surfaced to the sender; the pipeline falls back to rules.
var ErrMalformedReply = errors.New("nlp: malformed reply from hosted classifier")

// UpstreamError is returned for a non-2xx HTTP status from the hosted
// service. Rate-limit (429) and server (5xx) statuses are retryable;
// client errors are not.
type UpstreamError struct {
	Status int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("nlp: hosted classifier returned HTTP %d", e.Status)
}

// Retryable reports whether the status indicates a transient condition.
func (e *UpstreamError) Retryable() bool {
	return e.Status == 429 || e.Status >= 500
}

// RetryableError classifies err for the retry policy: only upstream
// rate-limit/server errors and timeouts are worth a second attempt.
func RetryableError(err error) bool {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Retryable()
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Request is the input to a single classification call.
type Request struct {
	// Message is the raw text sent by the subscriber.
	Message string

	// Sender is the phone-number-like sender identifier. Present for
	// traceability only; the system prompt instructs the model to ignore it
	// and it is masked before logging.
	Sender string

	// PriorTurn summarizes the previous turn for multi-turn disambiguation.
	// Nil on a fresh conversation.
	PriorTurn *TurnSummary
}

// Provider classifies free-form messages into structured intents.
//
// Implementations must be safe for concurrent use from multiple goroutines.
// When an implementation fails it returns a descriptive error; callers are
// expected to degrade gracefully to the rule-based classifier.
type Provider interface {
	// Classify sends the message to the underlying service and returns a
	// structured ParsedIntent.
	Classify(ctx context.Context, req Request) (*ParsedIntent, error)

	// Available reports, without any network call, whether the provider is
	// configured well enough to attempt classification.
	Available() bool
}
