// Package bot orchestrates one inbound SMS through the pipeline: rate
// limit, validation, conversation shortcuts, classification, routing,
// context update, and segmentation. The webhook layer stays a thin
// transport; everything about what a message means happens here.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"booksms/common/redact"
	"booksms/common/trace"
	"booksms/internal/booksms/commands"
	"booksms/internal/booksms/convo"
	"booksms/internal/booksms/library"
	"booksms/internal/booksms/nlp"
	"booksms/internal/booksms/ratelimit"
	"booksms/internal/booksms/segment"
	"booksms/internal/booksms/store"
)

// MaxInboundLen is the longest message body the bot will process. Carriers
// concatenate long messages up to roughly ten segments; anything beyond
// this is either garbage or abuse.
const MaxInboundLen = 1600

// rateLimitMessage is the fixed rejection a limited sender receives. It
// fits a single segment.
const rateLimitMessage = "You're sending messages too quickly. Please wait a minute and try again."

// Config wires the bot's collaborators. Audit is optional; everything else
// is required.
type Config struct {
	Classifier *nlp.Classifier
	Router     *commands.Router
	Library    *library.Service
	Convos     *convo.Store
	Limiter    *ratelimit.Limiter
	Audit      *store.Store

	// MaxSegmentLen overrides the per-SMS length, for tests.
	MaxSegmentLen int
}

// Bot processes inbound messages.
type Bot struct {
	classifier *nlp.Classifier
	router     *commands.Router
	library    *library.Service
	convos     *convo.Store
	limiter    *ratelimit.Limiter
	audit      *store.Store
	maxLen     int
}

// New creates a Bot.
func New(cfg Config) *Bot {
	maxLen := cfg.MaxSegmentLen
	if maxLen <= 0 {
		maxLen = segment.DefaultMaxLen
	}
	return &Bot{
		classifier: cfg.Classifier,
		router:     cfg.Router,
		library:    cfg.Library,
		convos:     cfg.Convos,
		limiter:    cfg.Limiter,
		audit:      cfg.Audit,
		maxLen:     maxLen,
	}
}

// Handle processes one inbound message and returns the reply, already
// segmented for the carrier.
func (b *Bot) Handle(ctx context.Context, sender, body string) []string {
	traceID := trace.GenerateID()
	ctx = trace.WithTraceID(ctx, traceID)
	log := slog.With("trace_id", traceID, "sender", redact.Phone(sender))

	// Every attempt counts against the quota, including messages rejected
	// below. A limited sender gets the fixed rejection; it is returned
	// without an audit row so a flood cannot grow the log.
	if b.limiter.Limited(sender) {
		log.Warn("rate limited")
		return []string{rateLimitMessage}
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return b.reply(ctx, log, sender, nlp.IntentUnknown, 0,
			"I didn't catch that. Text \"help\" to see what I can do.")
	}
	if len(body) > MaxInboundLen {
		log.Warn("message too long", "body_len", len(body))
		return b.reply(ctx, log, sender, nlp.IntentUnknown, 0,
			"That message is too long for me. Try something shorter.")
	}

	c := b.convos.Get(ctx, sender)

	// Shortcut: a staged yes/no confirmation consumes the next message.
	if c != nil && c.Pending != nil {
		if res, handled := b.handleConfirm(ctx, log, c, body); handled {
			return b.finish(ctx, log, sender, c.Pending.Kind, 1.0, res)
		}
		// Anything other than yes/no abandons the confirmation and is
		// processed as a fresh message.
		b.convos.Apply(ctx, sender, convo.Update{ClearPending: true})
		c.Pending = nil
	}

	// Shortcut: pagination, only when a cursor exists. A bare "more" with
	// nothing to page through goes to classification like any other message.
	if isMoreRequest(body) && c != nil && c.Pagination != nil {
		return b.handleMore(ctx, log, sender, c)
	}

	// Shortcut: a follow-up question about the book already on screen is
	// answered from context, with no classification round trip.
	if kind, msg := followUpShortcut(c, body); msg != "" {
		b.logInbound(ctx, log, traceID, sender, body, &nlp.ParsedIntent{
			Kind:       kind,
			Confidence: 1.0,
			RawMessage: body,
		})
		return b.reply(ctx, log, sender, kind, 1.0, msg)
	}

	// Shortcut: a bare reference ("the second one", "it") asks for details
	// about a book already on screen.
	if parsed := referenceShortcut(c, body); parsed != nil {
		b.logInbound(ctx, log, traceID, sender, body, parsed)
		return b.dispatch(ctx, log, sender, c, parsed)
	}

	parsed := commands.ParseAlias(body)
	if parsed == nil {
		parsed = b.classifier.Classify(ctx, nlp.Request{
			Message:   body,
			Sender:    sender,
			PriorTurn: c.TurnSummary(),
		})
	}
	b.logInbound(ctx, log, traceID, sender, body, parsed)

	return b.dispatch(ctx, log, sender, c, parsed)
}

// dispatch routes a classified intent through exactly one handler and
// folds the result back into the conversation.
func (b *Bot) dispatch(ctx context.Context, log *slog.Logger, sender string, c *convo.Context, parsed *nlp.ParsedIntent) []string {
	if parsed.NeedsMoreInfo {
		q := parsed.FollowUpQuestion
		b.convos.Apply(ctx, sender, convo.Update{
			LastIntent:      &parsed.Kind,
			LastParams:      &parsed.Params,
			PendingQuestion: &q,
		})
		return b.reply(ctx, log, sender, parsed.Kind, parsed.Confidence, q)
	}

	if !parsed.Trusted() || !b.router.Handles(parsed.Kind) {
		log.Info("untrusted classification", "intent", parsed.Kind, "confidence", parsed.Confidence)
		// The unknown handler is part of the dispatch table like any other.
		parsed.Kind = nlp.IntentUnknown
	}

	res, err := b.router.Route(ctx, &commands.Invocation{
		Kind:       parsed.Kind,
		Params:     parsed.Params,
		Sender:     sender,
		RawMessage: parsed.RawMessage,
		TraceID:    trace.FromContext(ctx),
		Convo:      c,
	})
	if err != nil {
		log.Error("handler failed", "intent", parsed.Kind, "err", err)
		return b.reply(ctx, log, sender, parsed.Kind, parsed.Confidence,
			"Something went wrong on my end. Try again in a moment.")
	}

	b.applyResult(ctx, sender, parsed, res)
	return b.reply(ctx, log, sender, parsed.Kind, parsed.Confidence, res.Message)
}

// applyResult translates a handler result into a conversation update.
func (b *Bot) applyResult(ctx context.Context, sender string, parsed *nlp.ParsedIntent, res *commands.Result) {
	empty := ""
	u := convo.Update{
		LastIntent:      &parsed.Kind,
		LastParams:      &parsed.Params,
		PendingQuestion: &empty,
	}
	if res.State != "" {
		st := res.State
		u.State = &st
	}
	if res.Book != nil {
		u.LastBook = res.Book
	}
	if res.Books != nil {
		u.LastList = res.Books
	}
	if res.Page != nil {
		u.Pagination = res.Page
	} else if res.Books != nil {
		// A fresh single-page list replaces any older cursor.
		u.ClearPagination = true
	}
	if res.Confirm != nil {
		u.Pending = res.Confirm
	} else {
		u.ClearPending = true
	}
	b.convos.Apply(ctx, sender, u)
}

// handleConfirm interprets a reply to a staged confirmation. Returns
// handled=false when the reply is neither yes nor no.
func (b *Bot) handleConfirm(ctx context.Context, log *slog.Logger, c *convo.Context, body string) (*commands.Result, bool) {
	switch normalizeWord(body) {
	case "yes", "y", "yep", "yeah", "sure", "ok", "okay":
		res, err := b.library.Confirm(ctx, c.Pending)
		if err != nil {
			log.Error("confirm failed", "intent", c.Pending.Kind, "err", err)
			return &commands.Result{Message: "Something went wrong on my end. Try again in a moment."}, true
		}
		return res, true
	case "no", "n", "nope", "cancel":
		return &commands.Result{Message: "Okay, cancelled.", State: convo.StateIdle}, true
	}
	return nil, false
}

// finish applies a confirmation result and replies.
func (b *Bot) finish(ctx context.Context, log *slog.Logger, sender string, kind nlp.IntentKind, confidence float64, res *commands.Result) []string {
	parsed := &nlp.ParsedIntent{Kind: kind, Confidence: confidence}
	b.applyResult(ctx, sender, parsed, res)
	return b.reply(ctx, log, sender, kind, confidence, res.Message)
}

// handleMore advances the pagination cursor.
func (b *Bot) handleMore(ctx context.Context, log *slog.Logger, sender string, c *convo.Context) []string {
	res, err := b.library.NextPage(ctx, c)
	if err != nil {
		log.Error("pagination failed", "err", err)
		return b.reply(ctx, log, sender, nlp.IntentUnknown, 0,
			"Something went wrong on my end. Try again in a moment.")
	}
	if res == nil {
		return b.reply(ctx, log, sender, nlp.IntentUnknown, 0, "Nothing more to show.")
	}

	u := convo.Update{Pagination: res.Page}
	if res.Books != nil {
		u.LastList = res.Books
	}
	if res.State != "" {
		st := res.State
		u.State = &st
	}
	b.convos.Apply(ctx, sender, u)
	return b.reply(ctx, log, sender, nlp.IntentListBooks, 1.0, res.Message)
}

// reply segments the message and records the outbound audit row.
func (b *Bot) reply(ctx context.Context, log *slog.Logger, sender string, kind nlp.IntentKind, confidence float64, message string) []string {
	parts := segment.Split(message, b.maxLen)
	log.Info("reply", "intent", kind, "segments", len(parts), "body_len", redact.BodyLen(message))

	if b.audit != nil {
		err := b.audit.LogMessage(ctx, &store.MessageRecord{
			TraceID:    trace.FromContext(ctx),
			Sender:     sender,
			Direction:  "outbound",
			Intent:     string(kind),
			Confidence: confidence,
			BodyLen:    len(message),
			Segments:   len(parts),
		})
		if err != nil {
			log.Warn("audit log failed", "err", err)
		}
	}
	return parts
}

// logInbound records the inbound audit row once classification has run, so
// the row carries the resolved intent.
func (b *Bot) logInbound(ctx context.Context, log *slog.Logger, traceID, sender, body string, parsed *nlp.ParsedIntent) {
	log.Info("inbound", "intent", parsed.Kind, "confidence", parsed.Confidence,
		"body_len", redact.BodyLen(body))
	if b.audit == nil {
		return
	}
	err := b.audit.LogMessage(ctx, &store.MessageRecord{
		TraceID:    traceID,
		Sender:     sender,
		Direction:  "inbound",
		Intent:     string(parsed.Kind),
		Confidence: parsed.Confidence,
		BodyLen:    len(body),
	})
	if err != nil {
		log.Warn("audit log failed", "err", err)
	}
}

// referenceShortcut turns a bare pronoun or ordinal message into a details
// request when the conversation has something for it to point at.
func referenceShortcut(c *convo.Context, body string) *nlp.ParsedIntent {
	if c == nil {
		return nil
	}
	if _, ok := convo.OrdinalIndex(body); ok && len(c.LastList) > 0 {
		return &nlp.ParsedIntent{
			Kind:       nlp.IntentBookDetails,
			Confidence: 1.0,
			Params:     nlp.Params{Reference: body},
			RawMessage: body,
		}
	}
	if convo.IsPronoun(body) && c.LastBook != nil {
		return &nlp.ParsedIntent{
			Kind:       nlp.IntentBookDetails,
			Confidence: 1.0,
			Params:     nlp.Params{Reference: body},
			RawMessage: body,
		}
	}
	return nil
}

// Follow-up question patterns, matched against the normalized message. They
// ask about an attribute of the book already on screen, so the answer comes
// from context without a classification round trip. "how many pages left"
// stays out: it is its own intent with remaining-page arithmetic.
var (
	followUpPagesRe  = regexp.MustCompile(`^how (?:many pages|long)(?: (?:is|does) (?:it|this|that|the book)(?: have)?)?$`)
	followUpAuthorRe = regexp.MustCompile(`^who(?:'s| is)? (?:wrote (?:it|this|that|the book)?|the author(?: of (?:it|this|that|the book))?)$`)
	followUpWhereRe  = regexp.MustCompile(`^(?:what page am i on|how far (?:along )?am i|where am i)$`)
)

// followUpShortcut answers a follow-up question about the last queried book
// straight from the conversation. An empty message means no pattern applied
// and the message goes through the normal pipeline.
func followUpShortcut(c *convo.Context, body string) (nlp.IntentKind, string) {
	if c == nil || c.LastBook == nil {
		return nlp.IntentUnknown, ""
	}
	book := c.LastBook
	switch q := normalizeWord(body); {
	case followUpPagesRe.MatchString(q):
		if book.Pages <= 0 {
			return nlp.IntentBookDetails, fmt.Sprintf("I don't know how many pages %q has.", book.Title)
		}
		return nlp.IntentBookDetails, fmt.Sprintf("%q has %d pages.", book.Title, book.Pages)
	case followUpAuthorRe.MatchString(q):
		if book.Author == "" {
			return nlp.IntentBookDetails, fmt.Sprintf("I don't have an author recorded for %q.", book.Title)
		}
		return nlp.IntentBookDetails, fmt.Sprintf("%q is by %s.", book.Title, book.Author)
	case followUpWhereRe.MatchString(q):
		return nlp.IntentCurrentlyReading, fmt.Sprintf("You're %d%% through %q.", book.ProgressPercent, book.Title)
	}
	return nlp.IntentUnknown, ""
}

func isMoreRequest(body string) bool {
	switch normalizeWord(body) {
	case "more", "next", "show more", "more please":
		return true
	}
	return false
}

func normalizeWord(body string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(body), ".!?"))
}
