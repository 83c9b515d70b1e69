package nlp

import (
	"context"
	"log/slog"
	"time"

	"booksms/common/redact"
	"booksms/common/retry"
)

// Classifier is the two-stage classification pipeline: hosted provider
// first (with bounded retry), rule-based classifier on any failure or when
// no credential is configured. Callers always get a usable ParsedIntent —
// classification service errors never escape this boundary.
type Classifier struct {
	hosted Provider
	rules  *RuleClassifier
	retry  retry.Config
}

// NewClassifier returns a Classifier. hosted may be nil, in which case
// every message takes the rule-based path.
func NewClassifier(hosted Provider) *Classifier {
	return &Classifier{
		hosted: hosted,
		rules:  NewRuleClassifier(),
		retry: retry.Config{
			// One initial attempt plus two retries at 1s and 2s, and only
			// for transient upstream conditions. Handler execution is never
			// retried — classification is the single idempotent network call
			// in the pipeline.
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     2 * time.Second,
			ShouldRetry:  RetryableError,
		},
	}
}

// Classify runs the pipeline. The returned intent is never nil: when both
// stages come up empty the result is IntentUnknown at zero confidence,
// which the confidence gate downstream turns into the help prompt.
func (c *Classifier) Classify(ctx context.Context, req Request) *ParsedIntent {
	if c.hosted != nil && c.hosted.Available() {
		var result *ParsedIntent
		err := retry.Do(ctx, c.retry, func() error {
			var attemptErr error
			result, attemptErr = c.hosted.Classify(ctx, req)
			return attemptErr
		})
		if err == nil && result != nil {
			return result
		}
		// Transparent fallback: the sender must never notice the hosted
		// service failing.
		slog.Warn("nlp: hosted classification failed, using rules",
			"sender", redact.Phone(req.Sender),
			"body_len", redact.BodyLen(req.Message),
			"err", err)
	}

	if pi := c.rules.Classify(req.Message); pi != nil {
		return pi
	}

	return &ParsedIntent{
		Kind:       IntentUnknown,
		Confidence: 0,
		RawMessage: req.Message,
	}
}

// HostedAvailable reports whether the hosted stage would be attempted for
// the next message. Exposed for the /status endpoint.
func (c *Classifier) HostedAvailable() bool {
	return c.hosted != nil && c.hosted.Available()
}
