// Package convo implements per-sender conversation state for booksms:
// what was last asked, which book is "it", which result page comes next,
// and whether a yes/no confirmation is pending. The state is what turns a
// sequence of disconnected 160-character messages into a conversation.
package convo

import (
	"time"

	"booksms/internal/booksms/nlp"
)

// State labels where the conversation currently sits. It is advisory — the
// orchestrator keys its shortcuts off the concrete fields below, not the
// label — but it makes audit rows and debugging legible.
type State string

const (
	StateIdle       State = "idle"
	StateSearching  State = "searching"
	StateSelecting  State = "selecting"
	StateConfirming State = "confirming"
	StatePaginating State = "paginating"
)

// BookRef is a lightweight reference to a book, small enough to keep
// per-sender without caring about collection size.
type BookRef struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author,omitempty"`
	Pages           int    `json:"pages,omitempty"`
	ProgressPercent int    `json:"progress_percent,omitempty"`
}

// Pagination holds the cursor over a result set too large for one SMS.
// Invariant: 0 ≤ CurrentOffset ≤ TotalCount, and TotalCount ==
// len(ResultIDs).
type Pagination struct {
	ResultIDs     []int64        `json:"result_ids"`
	TotalCount    int            `json:"total_count"`
	CurrentOffset int            `json:"current_offset"`
	PageSize      int            `json:"page_size"`
	SourceIntent  nlp.IntentKind `json:"source_intent"`
	Params        nlp.Params     `json:"params"`
}

// PendingConfirm stages a destructive operation (finish, remove) until the
// sender replies yes or no. Book is resolved at staging time so a "yes"
// cannot land on a different book than the question named.
type PendingConfirm struct {
	Kind     nlp.IntentKind `json:"kind"`
	Book     *BookRef       `json:"book,omitempty"`
	Question string         `json:"question"`
}

// Context is the per-sender conversation entry, keyed by phone number.
//
// LastList indices are only stable for the lifetime of this entry: any new
// intent that produces a fresh list replaces LastList wholesale, which
// invalidates every prior ordinal reference.
type Context struct {
	Sender          string          `json:"sender"`
	State           State           `json:"state"`
	LastIntent      nlp.IntentKind  `json:"last_intent,omitempty"`
	LastParams      nlp.Params      `json:"last_params"`
	LastBook        *BookRef        `json:"last_book,omitempty"`
	LastList        []BookRef       `json:"last_list,omitempty"`
	Pagination      *Pagination     `json:"pagination,omitempty"`
	ActiveFilters   nlp.Params      `json:"active_filters"`
	Pending         *PendingConfirm `json:"pending,omitempty"`
	PendingQuestion string          `json:"pending_question,omitempty"`
	LastInteraction time.Time       `json:"last_interaction"`
}

// clone returns a deep copy so callers can read and mutate freely without
// racing the store's own copy.
func (c *Context) clone() *Context {
	cp := *c
	if c.LastBook != nil {
		b := *c.LastBook
		cp.LastBook = &b
	}
	if c.LastList != nil {
		cp.LastList = make([]BookRef, len(c.LastList))
		copy(cp.LastList, c.LastList)
	}
	if c.Pagination != nil {
		pg := *c.Pagination
		pg.ResultIDs = make([]int64, len(c.Pagination.ResultIDs))
		copy(pg.ResultIDs, c.Pagination.ResultIDs)
		cp.Pagination = &pg
	}
	if c.Pending != nil {
		p := *c.Pending
		if p.Book != nil {
			b := *p.Book
			p.Book = &b
		}
		cp.Pending = &p
	}
	return &cp
}

// TurnSummary condenses this context into the prior-turn hint handed to the
// hosted classifier.
func (c *Context) TurnSummary() *nlp.TurnSummary {
	if c == nil {
		return nil
	}
	t := &nlp.TurnSummary{
		LastIntent:      c.LastIntent,
		PendingQuestion: c.PendingQuestion,
	}
	if c.LastBook != nil {
		t.LastBookTitle = c.LastBook.Title
	}
	if *t == (nlp.TurnSummary{}) {
		return nil
	}
	return t
}

// Update is a partial context change. Nil fields leave the existing value
// untouched (shallow merge); the Clear flags remove the corresponding field
// outright. Every applied update refreshes LastInteraction.
type Update struct {
	State           *State
	LastIntent      *nlp.IntentKind
	LastParams      *nlp.Params
	LastBook        *BookRef
	LastList        []BookRef
	Pagination      *Pagination
	ClearPagination bool
	Pending         *PendingConfirm
	ClearPending    bool
	PendingQuestion *string
	ActiveFilters   *nlp.Params
}

// apply merges u into c. Must be called with the store's mutex held.
func (u Update) apply(c *Context, now time.Time) {
	if u.State != nil {
		c.State = *u.State
	}
	if u.LastIntent != nil {
		c.LastIntent = *u.LastIntent
	}
	if u.LastParams != nil {
		c.LastParams = *u.LastParams
	}
	if u.LastBook != nil {
		b := *u.LastBook
		c.LastBook = &b
	}
	if u.LastList != nil {
		// A fresh list invalidates all prior ordinal references.
		c.LastList = make([]BookRef, len(u.LastList))
		copy(c.LastList, u.LastList)
	}
	if u.ClearPagination {
		c.Pagination = nil
	} else if u.Pagination != nil {
		pg := *u.Pagination
		c.Pagination = &pg
	}
	if u.ClearPending {
		c.Pending = nil
	} else if u.Pending != nil {
		p := *u.Pending
		c.Pending = &p
	}
	if u.PendingQuestion != nil {
		c.PendingQuestion = *u.PendingQuestion
	}
	if u.ActiveFilters != nil {
		c.ActiveFilters = *u.ActiveFilters
	}
	c.LastInteraction = now
}
