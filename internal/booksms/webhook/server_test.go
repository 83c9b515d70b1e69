package webhook_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"booksms/internal/booksms/bot"
	"booksms/internal/booksms/commands"
	"booksms/internal/booksms/convo"
	"booksms/internal/booksms/library"
	"booksms/internal/booksms/nlp"
	"booksms/internal/booksms/ratelimit"
	"booksms/internal/booksms/store"
	"booksms/internal/booksms/webhook"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "booksms-test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	lib := library.New(st)
	router := commands.NewRouter()
	lib.RegisterAll(router)

	b := bot.New(bot.Config{
		Classifier: nlp.NewClassifier(nil),
		Router:     router,
		Library:    lib,
		Convos:     convo.NewStore(convo.StoreConfig{}),
		Limiter:    ratelimit.New(100, time.Minute),
	})

	mux := http.NewServeMux()
	webhook.New(b).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postSMS(t *testing.T, srv *httptest.Server, from, body string) (*http.Response, string) {
	t.Helper()
	form := url.Values{
		"From":       {from},
		"Body":       {body},
		"MessageSid": {"SM0001"},
	}
	resp, err := http.PostForm(srv.URL+"/sms", form)
	if err != nil {
		t.Fatalf("POST /sms: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, string(data)
}

func TestHandleSMS_RepliesWithDocument(t *testing.T) {
	srv := newTestServer(t)

	resp, body := postSMS(t, srv, "+15550001111", "add Dune")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Errorf("content type: got %q, want application/xml", ct)
	}
	if !strings.HasPrefix(body, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Errorf("body: got %q, want XML declaration first", body)
	}
	if !strings.Contains(body, "<Response><Message>") || !strings.Contains(body, "</Message></Response>") {
		t.Errorf("body: got %q, want a Message element", body)
	}
}

// TestHandleSMS_EscapesReply verifies reply text with markup-significant
// characters survives as escaped XML. Book titles carry quotes routinely.
func TestHandleSMS_EscapesReply(t *testing.T) {
	srv := newTestServer(t)

	_, body := postSMS(t, srv, "+15550001111", "add Trains & <Tunnels>")
	if strings.Contains(body, "<Tunnels>") {
		t.Fatalf("body: got %q, raw markup leaked through", body)
	}
	if !strings.Contains(body, "&amp;") || !strings.Contains(body, "&lt;Tunnels&gt;") {
		t.Errorf("body: got %q, want escaped title", body)
	}
	if !strings.Contains(body, "&#34;") {
		t.Errorf("body: got %q, want escaped quotes around the title", body)
	}
}

func TestHandleSMS_InvalidSender(t *testing.T) {
	srv := newTestServer(t)

	for _, from := range []string{"", "abc", "123", "+1555000111122334455", "+1555ABC1111"} {
		resp, _ := postSMS(t, srv, from, "help")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%q: status: got %d, want 400", from, resp.StatusCode)
		}
	}
}

// TestHandleSMS_RateLimitedReply verifies a limited sender still gets a 200
// so the carrier does not retry, with the fixed rejection message.
func TestHandleSMS_RateLimitedReply(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "booksms-test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	lib := library.New(st)
	router := commands.NewRouter()
	lib.RegisterAll(router)
	b := bot.New(bot.Config{
		Classifier: nlp.NewClassifier(nil),
		Router:     router,
		Library:    lib,
		Convos:     convo.NewStore(convo.StoreConfig{}),
		Limiter:    ratelimit.New(1, time.Minute),
	})

	mux := http.NewServeMux()
	webhook.New(b).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	postSMS(t, srv, "+15550001111", "help")
	resp, body := postSMS(t, srv, "+15550001111", "help")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, "too quickly") {
		t.Errorf("body: got %q, want the rate-limit rejection", body)
	}
	if !strings.Contains(body, "<Response></Response>") {
		t.Errorf("body: got %q, want an empty Response", body)
	}
}

func TestHandleSMS_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/sms")
	if err != nil {
		t.Fatalf("GET /sms: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", resp.StatusCode)
	}
}

func TestHealthAndStatus(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status: got %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status status: got %d, want 200", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read status body: %v", err)
	}
	if !strings.Contains(string(data), `"version"`) {
		t.Errorf("status body: got %q, want version info", string(data))
	}
}
