package nlp_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"booksms/internal/booksms/nlp"
)

// chatServer returns an httptest server that answers every chat-completions
// request with the given classification document as the message content.
func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path: got %q, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header: got %q", got)
		}
		w.WriteHeader(status)
		if status == http.StatusOK {
			fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}]}`, content)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(srv *httptest.Server) nlp.Provider {
	return nlp.NewHostedProvider(nlp.Config{APIKey: "test-key", BaseURL: srv.URL})
}

func TestHostedProvider_Classify(t *testing.T) {
	srv := chatServer(t, http.StatusOK,
		`{"intent":"rate_book","confidence":0.92,"parameters":{"title":"Dune","rating":"5"}}`)
	p := newTestProvider(srv)

	got, err := p.Classify(context.Background(), nlp.Request{Message: "give dune five stars"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Kind != nlp.IntentRateBook {
		t.Errorf("kind: got %s, want %s (intent matching is case-insensitive)", got.Kind, nlp.IntentRateBook)
	}
	if got.Confidence != 0.92 {
		t.Errorf("confidence: got %v, want 0.92", got.Confidence)
	}
	if got.Params.Title != "Dune" {
		t.Errorf("title: got %q, want %q", got.Params.Title, "Dune")
	}
	if got.Params.Rating != 5 {
		t.Errorf("rating: got %d, want 5 (numeric strings must coerce)", got.Params.Rating)
	}
	if got.NeedsMoreInfo {
		t.Error("NeedsMoreInfo: got true, want false")
	}
}

// TestHostedProvider_UnknownIntentDowngraded verifies an invented intent is
// not an error: it degrades to UNKNOWN at reduced confidence.
func TestHostedProvider_UnknownIntentDowngraded(t *testing.T) {
	srv := chatServer(t, http.StatusOK,
		`{"intent":"ORDER_PIZZA","confidence":0.99}`)
	p := newTestProvider(srv)

	got, err := p.Classify(context.Background(), nlp.Request{Message: "order a pizza"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Kind != nlp.IntentUnknown {
		t.Errorf("kind: got %s, want %s", got.Kind, nlp.IntentUnknown)
	}
	if got.Confidence != nlp.UnknownIntentConfidence {
		t.Errorf("confidence: got %v, want %v", got.Confidence, nlp.UnknownIntentConfidence)
	}
}

// TestHostedProvider_ParameterClamping verifies out-of-range and malformed
// parameters are clamped or dropped, never fatal.
func TestHostedProvider_ParameterClamping(t *testing.T) {
	srv := chatServer(t, http.StatusOK,
		`{"intent":"UPDATE_PROGRESS","confidence":1.7,"parameters":{"title":"Dune","percent":250,"page":"not-a-number"}}`)
	p := newTestProvider(srv)

	got, err := p.Classify(context.Background(), nlp.Request{Message: "way past the end"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Confidence != 1.0 {
		t.Errorf("confidence: got %v, want clamped to 1.0", got.Confidence)
	}
	if got.Params.Percent != 100 {
		t.Errorf("percent: got %d, want clamped to 100", got.Params.Percent)
	}
	if got.Params.Page != 0 {
		t.Errorf("page: got %d, want 0 (malformed value dropped)", got.Params.Page)
	}
}

// TestHostedProvider_NeedsMoreInfo verifies the required-parameter table
// fills in a follow-up question when the model did not supply one.
func TestHostedProvider_NeedsMoreInfo(t *testing.T) {
	srv := chatServer(t, http.StatusOK,
		`{"intent":"UPDATE_PROGRESS","confidence":0.85,"parameters":{"title":"Dune"}}`)
	p := newTestProvider(srv)

	got, err := p.Classify(context.Background(), nlp.Request{Message: "i read some more of dune"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.NeedsMoreInfo {
		t.Fatal("NeedsMoreInfo: got false, want true")
	}
	if got.FollowUpQuestion == "" {
		t.Error("FollowUpQuestion: got empty, want a question")
	}
}

func TestHostedProvider_ModelFollowUpKept(t *testing.T) {
	srv := chatServer(t, http.StatusOK,
		`{"intent":"RATE_BOOK","confidence":0.8,"parameters":{"title":"Dune"},"followUpQuestion":"How many stars for Dune?"}`)
	p := newTestProvider(srv)

	got, err := p.Classify(context.Background(), nlp.Request{Message: "rate dune"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.NeedsMoreInfo || got.FollowUpQuestion != "How many stars for Dune?" {
		t.Errorf("follow-up: got (%v, %q), want model question kept", got.NeedsMoreInfo, got.FollowUpQuestion)
	}
}

func TestHostedProvider_MalformedReply(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "sorry, I cannot classify that"},
		{"missing confidence", `{"intent":"ADD_BOOK"}`},
		{"wrong types", `{"intent":42,"confidence":"high"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := chatServer(t, http.StatusOK, tc.content)
			p := newTestProvider(srv)

			_, err := p.Classify(context.Background(), nlp.Request{Message: "hi"})
			if !errors.Is(err, nlp.ErrMalformedReply) {
				t.Errorf("error: got %v, want ErrMalformedReply", err)
			}
		})
	}
}

func TestHostedProvider_UpstreamStatus(t *testing.T) {
	srv := chatServer(t, http.StatusTooManyRequests, "")
	p := newTestProvider(srv)

	_, err := p.Classify(context.Background(), nlp.Request{Message: "hi"})
	var ue *nlp.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("error: got %v, want *UpstreamError", err)
	}
	if ue.Status != http.StatusTooManyRequests {
		t.Errorf("status: got %d, want 429", ue.Status)
	}
	if !ue.Retryable() {
		t.Error("Retryable: got false, want true for 429")
	}
}

func TestRetryableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&nlp.UpstreamError{Status: 429}, true},
		{&nlp.UpstreamError{Status: 500}, true},
		{&nlp.UpstreamError{Status: 503}, true},
		{&nlp.UpstreamError{Status: 400}, false},
		{&nlp.UpstreamError{Status: 401}, false},
		{context.DeadlineExceeded, true},
		{nlp.ErrMalformedReply, false},
		{errors.New("boom"), false},
	}
	for _, tc := range tests {
		if got := nlp.RetryableError(tc.err); got != tc.want {
			t.Errorf("RetryableError(%v): got %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestHostedProvider_Unavailable(t *testing.T) {
	p := nlp.NewHostedProvider(nlp.Config{})
	if p.Available() {
		t.Error("Available: got true without API key")
	}
	_, err := p.Classify(context.Background(), nlp.Request{Message: "hi"})
	if !errors.Is(err, nlp.ErrUnavailable) {
		t.Errorf("error: got %v, want ErrUnavailable", err)
	}
}
