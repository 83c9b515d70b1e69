package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"booksms/internal/booksms/commands"
	"booksms/internal/booksms/convo"
	"booksms/internal/booksms/store"
)

// BookDetails describes one book.
func (s *Service) BookDetails(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	b, miss, err := s.resolveBook(ctx, inv)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return &commands.Result{Message: miss}, nil
	}
	return &commands.Result{
		Message: describeBook(b),
		Book:    bookRef(b),
		State:   convo.StateIdle,
	}, nil
}

// PagesLeft reports remaining pages for a book, defaulting to the last
// referenced one.
func (s *Service) PagesLeft(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	// "how many pages left" with no reference means the book being read or
	// last talked about.
	if inv.Params.IsZero() && inv.Convo != nil && inv.Convo.LastBook != nil {
		inv.Params.Reference = "it"
	}

	b, miss, err := s.resolveBook(ctx, inv)
	if err != nil {
		return nil, err
	}
	if b == nil {
		if miss == "Which book do you mean?" {
			miss = "Which book? I don't know what you're reading right now."
		}
		return &commands.Result{Message: miss}, nil
	}

	if b.Status == store.StatusFinished {
		return &commands.Result{
			Message: fmt.Sprintf("You already finished %q.", b.Title),
			Book:    bookRef(b),
		}, nil
	}
	if b.Pages <= 0 {
		return &commands.Result{
			Message: fmt.Sprintf("I don't know how many pages %q has.", b.Title),
			Book:    bookRef(b),
		}, nil
	}

	left := b.Pages - b.CurrentPage
	return &commands.Result{
		Message: fmt.Sprintf("%s left in %q (page %d of %d).",
			plural(left, "page"), b.Title, b.CurrentPage, b.Pages),
		Book:  bookRef(b),
		State: convo.StateIdle,
	}, nil
}

// ReadingStats summarizes the collection, folding in the yearly goal when
// one is set.
func (s *Service) ReadingStats(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	st, err := s.store.CollectionStats(ctx)
	if err != nil {
		return nil, err
	}
	if st.Total == 0 {
		return &commands.Result{Message: "No stats yet, your collection is empty."}, nil
	}

	msg := fmt.Sprintf("%s: %d finished, %d reading, %d unread. %s read",
		plural(st.Total, "book"), st.Finished, st.Reading, st.Unread,
		plural(st.PagesRead, "page"))
	if st.AvgRating > 0 {
		msg += fmt.Sprintf(", avg rating %.1f", st.AvgRating)
	}
	msg += "."

	year := time.Now().Year()
	if target, err := s.store.GetGoal(ctx, year); err == nil {
		msg += fmt.Sprintf(" Goal: %d/%d this year.", st.FinishedThisYear, target)
	}

	return &commands.Result{Message: msg, State: convo.StateIdle}, nil
}

// BookCount answers "how many books do I have".
func (s *Service) BookCount(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	st, err := s.store.CollectionStats(ctx)
	if err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("You have %s: %d finished, %d reading, %d unread.",
		plural(st.Total, "book"), st.Finished, st.Reading, st.Unread)
	if st.Wishlist > 0 {
		msg += fmt.Sprintf(" Plus %d on your wishlist.", st.Wishlist)
	}
	return &commands.Result{Message: msg, State: convo.StateIdle}, nil
}

// SetGoal records the yearly book target.
func (s *Service) SetGoal(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	goal := inv.Params.Goal
	if goal <= 0 {
		return &commands.Result{Message: "How many books? Try \"set a goal of 24 books\"."}, nil
	}

	year := time.Now().Year()
	if err := s.store.SetGoal(ctx, year, goal); err != nil {
		return nil, err
	}
	return &commands.Result{
		Message: fmt.Sprintf("Goal set: %s in %d. Good luck!", plural(goal, "book"), year),
		State:   convo.StateIdle,
	}, nil
}

// ReadingGoal reports progress against the yearly target.
func (s *Service) ReadingGoal(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	year := time.Now().Year()
	target, err := s.store.GetGoal(ctx, year)
	if errors.Is(err, store.ErrNoGoal) {
		return &commands.Result{Message: "No goal set. Try \"set a goal of 24 books\"."}, nil
	}
	if err != nil {
		return nil, err
	}

	st, err := s.store.CollectionStats(ctx)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("%d of %s finished in %d.", st.FinishedThisYear, plural(target, "book"), year)
	if st.FinishedThisYear >= target {
		msg += " Goal reached!"
	} else {
		msg += fmt.Sprintf(" %d to go.", target-st.FinishedThisYear)
	}
	return &commands.Result{Message: msg, State: convo.StateIdle}, nil
}

// Greeting answers hello with a nudge toward something useful.
func (s *Service) Greeting(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	return &commands.Result{
		Message: "Hi! I keep track of your books. Try \"list my books\", \"what am I reading\", or \"help\".",
		State:   convo.StateIdle,
	}, nil
}

// Unknown answers anything the classifiers could not map to an intent. It
// sits in the dispatch table like any other handler so the orchestrator has
// a single routing path.
func (s *Service) Unknown(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	return &commands.Result{
		Message: "I'm not sure what you mean. Text \"help\" to see what I can do.",
	}, nil
}

// Help lists what booksms understands.
func (s *Service) Help(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	return &commands.Result{
		Message: "You can text me things like:\n" +
			"- add Dune by Frank Herbert\n" +
			"- search for dragons\n" +
			"- I'm on page 120 of Dune\n" +
			"- rate it 5 stars\n" +
			"- what am I reading\n" +
			"- show my sci-fi books rated 4+\n" +
			"- recommend something\n" +
			"- set a goal of 24 books",
		State: convo.StateIdle,
	}, nil
}
