// Package commands provides intent routing for booksms: the contract
// between the classification pipeline and the library handlers that do the
// actual work.
package commands

import (
	"context"
	"errors"
	"fmt"

	"booksms/internal/booksms/convo"
	"booksms/internal/booksms/nlp"
)

// ErrNoHandler is returned by Route when no handler is registered for the
// intent. Callers should use errors.Is to distinguish this expected case
// from handler failures.
var ErrNoHandler = errors.New("no handler registered for intent")

// Invocation is everything a handler gets for one inbound message. Convo is
// a read-only snapshot of the sender's conversation; handlers communicate
// state changes back through Result, never by mutating the snapshot.
type Invocation struct {
	Kind       nlp.IntentKind
	Params     nlp.Params
	Sender     string
	RawMessage string
	TraceID    string
	Convo      *convo.Context
}

// Result is a handler's reply plus the conversation effects it wants. The
// orchestrator translates these fields into a context update; handlers
// stay ignorant of how conversations are stored.
type Result struct {
	// Message is the reply text, pre-segmentation.
	Message string

	// Book is the single book this reply centers on. It becomes the
	// referent for "it" in the next message.
	Book *convo.BookRef

	// Books is the list shown to the sender, in display order. Ordinal
	// references ("the second one") resolve against it.
	Books []convo.BookRef

	// Page carries pagination state when the full result set does not fit
	// one reply; nil clears any existing cursor.
	Page *convo.Pagination

	// Confirm stages a yes/no confirmation instead of executing now.
	Confirm *convo.PendingConfirm

	// State overrides the conversation state label; empty keeps the
	// orchestrator's default.
	State convo.State
}

// Handler executes one intent.
type Handler func(ctx context.Context, inv *Invocation) (*Result, error)

// Router maps intent kinds to handlers.
type Router struct {
	handlers map[nlp.IntentKind]Handler
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{handlers: make(map[nlp.IntentKind]Handler)}
}

// Register registers a handler for kind, replacing any previous one.
func (r *Router) Register(kind nlp.IntentKind, handler Handler) {
	r.handlers[kind] = handler
}

// Handles reports whether a handler is registered for kind.
func (r *Router) Handles(kind nlp.IntentKind) bool {
	_, ok := r.handlers[kind]
	return ok
}

// Route dispatches inv to its handler. Exactly one handler runs per call;
// an unregistered intent returns ErrNoHandler without side effects.
func (r *Router) Route(ctx context.Context, inv *Invocation) (*Result, error) {
	handler, ok := r.handlers[inv.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, inv.Kind)
	}
	return handler(ctx, inv)
}
