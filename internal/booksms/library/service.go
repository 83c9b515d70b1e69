// Package library implements the intent handlers that operate on the book
// collection. Every handler takes a routed invocation and produces a reply
// plus the conversation effects for it; persistence goes through the store
// package.
package library

import (
	"context"
	"errors"
	"fmt"

	"booksms/internal/booksms/commands"
	"booksms/internal/booksms/convo"
	"booksms/internal/booksms/nlp"
	"booksms/internal/booksms/store"
)

// pageSize is how many books fit one list reply. Ordinal references only
// go up to five, so showing more would create unreferenceable rows.
const pageSize = 5

// Service owns the collection handlers.
type Service struct {
	store *store.Store
}

// New creates the library service.
func New(st *store.Store) *Service {
	return &Service{store: st}
}

// RegisterAll registers every handler on r.
func (s *Service) RegisterAll(r *commands.Router) {
	r.Register(nlp.IntentSearchBooks, s.SearchBooks)
	r.Register(nlp.IntentBookDetails, s.BookDetails)
	r.Register(nlp.IntentAddBook, s.AddBook)
	r.Register(nlp.IntentRemoveBook, s.RemoveBook)
	r.Register(nlp.IntentRateBook, s.RateBook)
	r.Register(nlp.IntentUpdateProgress, s.UpdateProgress)
	r.Register(nlp.IntentStartBook, s.StartBook)
	r.Register(nlp.IntentFinishBook, s.FinishBook)
	r.Register(nlp.IntentCurrentlyReading, s.CurrentlyReading)
	r.Register(nlp.IntentReadingStats, s.ReadingStats)
	r.Register(nlp.IntentRecommend, s.Recommend)
	r.Register(nlp.IntentListBooks, s.ListBooks)
	r.Register(nlp.IntentListGenres, s.ListGenres)
	r.Register(nlp.IntentGenreFilter, s.GenreFilter)
	r.Register(nlp.IntentRatingFilter, s.RatingFilter)
	r.Register(nlp.IntentAuthorFilter, s.AuthorFilter)
	r.Register(nlp.IntentComplexFilter, s.ComplexFilter)
	r.Register(nlp.IntentUnreadBooks, s.UnreadBooks)
	r.Register(nlp.IntentFinishedBooks, s.FinishedBooks)
	r.Register(nlp.IntentFavoriteBooks, s.FavoriteBooks)
	r.Register(nlp.IntentTopRated, s.TopRated)
	r.Register(nlp.IntentRandomPick, s.RandomPick)
	r.Register(nlp.IntentRecentlyAdded, s.RecentlyAdded)
	r.Register(nlp.IntentRecentlyFinished, s.RecentlyFinished)
	r.Register(nlp.IntentPagesLeft, s.PagesLeft)
	r.Register(nlp.IntentBookCount, s.BookCount)
	r.Register(nlp.IntentSetGoal, s.SetGoal)
	r.Register(nlp.IntentReadingGoal, s.ReadingGoal)
	r.Register(nlp.IntentWishlistAdd, s.WishlistAdd)
	r.Register(nlp.IntentGreeting, s.Greeting)
	r.Register(nlp.IntentHelp, s.Help)
	r.Register(nlp.IntentUnknown, s.Unknown)
}

// resolveBook turns an invocation's book reference into a fresh row from
// the store. Resolution order: explicit ordinal into the last shown list,
// then a pronoun/ordinal reference token, then a title lookup. A nil book
// with empty miss means the invocation carried no reference at all (the
// needs-more-info gate normally prevents that).
func (s *Service) resolveBook(ctx context.Context, inv *commands.Invocation) (*store.Book, string, error) {
	if inv.Params.Ordinal > 0 {
		c := inv.Convo
		if c == nil || inv.Params.Ordinal > len(c.LastList) {
			return nil, "I don't have a list to pick from. Try searching first.", nil
		}
		return s.fetchRef(ctx, &c.LastList[inv.Params.Ordinal-1])
	}

	if inv.Params.Reference != "" {
		ref := convo.Resolve(inv.Convo, inv.Params.Reference)
		if ref == nil {
			return nil, "I'm not sure which book you mean. Tell me the title?", nil
		}
		return s.fetchRef(ctx, ref)
	}

	if inv.Params.Title != "" {
		b, err := s.store.FindByTitle(ctx, inv.Params.Title)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Sprintf("I couldn't find %q in your collection.", inv.Params.Title), nil
		}
		if err != nil {
			return nil, "", err
		}
		return b, "", nil
	}

	return nil, "Which book do you mean?", nil
}

// fetchRef re-reads a context reference from the store so stale context
// never masks a removed book.
func (s *Service) fetchRef(ctx context.Context, ref *convo.BookRef) (*store.Book, string, error) {
	b, err := s.store.GetBook(ctx, ref.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Sprintf("%q is no longer in your collection.", ref.Title), nil
	}
	if err != nil {
		return nil, "", err
	}
	return b, "", nil
}

// listResult builds the first page of a list reply along with pagination
// state when the id set exceeds one page.
func (s *Service) listResult(ctx context.Context, inv *commands.Invocation, ids []int64, header, empty string) (*commands.Result, error) {
	if len(ids) == 0 {
		return &commands.Result{Message: empty}, nil
	}

	end := pageSize
	if end > len(ids) {
		end = len(ids)
	}
	books, err := s.store.BooksByIDs(ctx, ids[:end])
	if err != nil {
		return nil, err
	}

	res := &commands.Result{
		Message: formatList(header, books, len(ids)-end),
		Books:   bookRefs(books),
		State:   convo.StateSelecting,
	}
	if len(ids) > end {
		res.Page = &convo.Pagination{
			ResultIDs:     ids,
			TotalCount:    len(ids),
			CurrentOffset: end,
			PageSize:      pageSize,
			SourceIntent:  inv.Kind,
			Params:        inv.Params,
		}
		res.State = convo.StatePaginating
	}
	return res, nil
}

// NextPage renders the next page of the conversation's pagination cursor.
// Returns nil when nothing is left to page through; the orchestrator then
// answers with a hint instead.
func (s *Service) NextPage(ctx context.Context, c *convo.Context) (*commands.Result, error) {
	page := convo.NextPage(c)
	if page == nil {
		return nil, nil
	}
	books, err := s.store.BooksByIDs(ctx, page.IDs)
	if err != nil {
		return nil, err
	}

	pg := *c.Pagination
	pg.CurrentOffset = page.NewOffset

	res := &commands.Result{
		Message: formatList("", books, pg.TotalCount-page.NewOffset),
		Books:   bookRefs(books),
		Page:    &pg,
		State:   convo.StatePaginating,
	}
	if !page.HasMore {
		res.State = convo.StateSelecting
	}
	return res, nil
}

// Confirm executes a previously staged destructive operation after the
// sender replied yes.
func (s *Service) Confirm(ctx context.Context, p *convo.PendingConfirm) (*commands.Result, error) {
	if p == nil || p.Book == nil {
		return &commands.Result{Message: "Nothing is waiting for confirmation."}, nil
	}

	switch p.Kind {
	case nlp.IntentRemoveBook:
		err := s.store.DeleteBook(ctx, p.Book.ID)
		if errors.Is(err, store.ErrNotFound) {
			return &commands.Result{Message: fmt.Sprintf("%q was already removed.", p.Book.Title)}, nil
		}
		if err != nil {
			return nil, err
		}
		return &commands.Result{
			Message: fmt.Sprintf("Removed %q from your collection.", p.Book.Title),
			State:   convo.StateIdle,
		}, nil

	case nlp.IntentFinishBook:
		err := s.store.MarkFinished(ctx, p.Book.ID)
		if errors.Is(err, store.ErrNotFound) {
			return &commands.Result{Message: fmt.Sprintf("%q is no longer in your collection.", p.Book.Title)}, nil
		}
		if err != nil {
			return nil, err
		}
		b, err := s.store.GetBook(ctx, p.Book.ID)
		if err != nil {
			return nil, err
		}
		return &commands.Result{
			Message: fmt.Sprintf("Finished %q! Want to rate it 1-5?", b.Title),
			Book:    bookRef(b),
			State:   convo.StateIdle,
		}, nil
	}

	return &commands.Result{Message: "Nothing is waiting for confirmation."}, nil
}
