// Package webhook is the carrier-facing HTTP surface: it receives inbound
// SMS form posts and answers with the XML reply document the carrier turns
// back into messages. It stays deliberately thin; message semantics live
// in the bot package.
package webhook

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"booksms/common/redact"
	"booksms/common/version"
	"booksms/internal/booksms/bot"
)

// Handler serves the carrier webhook and the health endpoints.
type Handler struct {
	bot     *bot.Bot
	started time.Time
}

// New creates a webhook handler around b.
func New(b *bot.Bot) *Handler {
	return &Handler{bot: b, started: time.Now()}
}

// Register mounts the routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /sms", h.handleSMS)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("GET /status", h.handleStatus)
}

// handleSMS processes one inbound message. The carrier retries on non-2xx,
// so every processed message answers 200 with a (possibly empty) reply
// document; only malformed requests are rejected.
func (h *Handler) handleSMS(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	from := strings.TrimSpace(r.PostFormValue("From"))
	body := r.PostFormValue("Body")
	sid := r.PostFormValue("MessageSid")

	if !validSender(from) {
		slog.Warn("webhook: invalid sender", "sender", redact.Phone(from), "message_sid", sid)
		http.Error(w, "invalid sender", http.StatusBadRequest)
		return
	}

	segments := h.bot.Handle(r.Context(), from, body)
	writeReply(w, segments)
}

// xmlEscaper covers the five characters the reply document must escape.
var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&#34;",
	"'", "&#39;",
)

// writeReply emits the carrier reply document: one Message element per
// segment, or an empty Response when there is nothing to send.
func writeReply(w http.ResponseWriter, segments []string) {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<Response>")
	for _, s := range segments {
		sb.WriteString("<Message>")
		sb.WriteString(xmlEscaper.Replace(s))
		sb.WriteString("</Message>")
	}
	sb.WriteString("</Response>")

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	fmt.Fprint(w, sb.String())
}

// validSender accepts E.164-style numbers: an optional leading plus and 7
// to 15 digits.
func validSender(from string) bool {
	s := strings.TrimPrefix(from, "+")
	if len(s) < 7 || len(s) > 15 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": version.Info(),
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	})
}
