package library

import (
	"context"
	"fmt"

	"booksms/internal/booksms/commands"
	"booksms/internal/booksms/convo"
	"booksms/internal/booksms/nlp"
	"booksms/internal/booksms/store"
)

// AddBook inserts a new book into the collection.
func (s *Service) AddBook(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	title := inv.Params.Title
	if title == "" {
		title = inv.Params.Query
	}

	if existing, err := s.store.FindByTitle(ctx, title); err == nil && !existing.Wishlist {
		return &commands.Result{
			Message: fmt.Sprintf("%q is already in your collection.", existing.Title),
			Book:    bookRef(existing),
		}, nil
	}

	id, err := s.store.AddBook(ctx, &store.Book{
		Title:  title,
		Author: inv.Params.Author,
		Genre:  inv.Params.Genre,
	})
	if err != nil {
		return nil, err
	}
	b, err := s.store.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Added %q", b.Title)
	if b.Author != "" {
		msg += " by " + b.Author
	}
	return &commands.Result{
		Message: msg + " to your collection.",
		Book:    bookRef(b),
		State:   convo.StateIdle,
	}, nil
}

// WishlistAdd inserts a book flagged as wishlist: wanted, not yet owned.
func (s *Service) WishlistAdd(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	title := inv.Params.Title
	if title == "" {
		title = inv.Params.Query
	}

	id, err := s.store.AddBook(ctx, &store.Book{
		Title:    title,
		Author:   inv.Params.Author,
		Genre:    inv.Params.Genre,
		Wishlist: true,
	})
	if err != nil {
		return nil, err
	}
	b, err := s.store.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	return &commands.Result{
		Message: fmt.Sprintf("Added %q to your wishlist.", b.Title),
		Book:    bookRef(b),
		State:   convo.StateIdle,
	}, nil
}

// RemoveBook stages a removal for yes/no confirmation.
func (s *Service) RemoveBook(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	b, miss, err := s.resolveBook(ctx, inv)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return &commands.Result{Message: miss}, nil
	}

	question := fmt.Sprintf("Remove %q from your collection? Reply yes or no.", b.Title)
	return &commands.Result{
		Message: question,
		Book:    bookRef(b),
		Confirm: &convo.PendingConfirm{
			Kind:     nlp.IntentRemoveBook,
			Book:     bookRef(b),
			Question: question,
		},
		State: convo.StateConfirming,
	}, nil
}

// RateBook sets a 1-5 rating.
func (s *Service) RateBook(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	b, miss, err := s.resolveBook(ctx, inv)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return &commands.Result{Message: miss}, nil
	}

	rating := inv.Params.Rating
	if rating < 1 || rating > 5 {
		return &commands.Result{
			Message: fmt.Sprintf("What rating for %q? Give me 1 to 5.", b.Title),
			Book:    bookRef(b),
		}, nil
	}

	if err := s.store.SetRating(ctx, b.ID, rating); err != nil {
		return nil, err
	}
	b.Rating = rating
	return &commands.Result{
		Message: fmt.Sprintf("Rated %q %d/5.", b.Title, rating),
		Book:    bookRef(b),
		State:   convo.StateIdle,
	}, nil
}

// UpdateProgress moves the page cursor, accepting either an absolute page
// or a percentage.
func (s *Service) UpdateProgress(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	b, miss, err := s.resolveBook(ctx, inv)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return &commands.Result{Message: miss}, nil
	}

	page := inv.Params.Page
	if page == 0 && inv.Params.Percent > 0 {
		if b.Pages <= 0 {
			return &commands.Result{
				Message: fmt.Sprintf("I don't know how many pages %q has. Tell me the page number instead.", b.Title),
				Book:    bookRef(b),
			}, nil
		}
		page = b.Pages * inv.Params.Percent / 100
	}
	if b.Pages > 0 && page > b.Pages {
		page = b.Pages
	}

	if err := s.store.SetProgress(ctx, b.ID, page); err != nil {
		return nil, err
	}
	b.CurrentPage = page
	if b.Status == store.StatusUnread {
		b.Status = store.StatusReading
	}

	msg := fmt.Sprintf("Got it, %q at page %d", b.Title, page)
	if b.Pages > 0 {
		msg += fmt.Sprintf(" of %d (%d%%). %s left", b.Pages, b.ProgressPercent(),
			plural(b.Pages-page, "page"))
	}
	return &commands.Result{
		Message: msg + ".",
		Book:    bookRef(b),
		State:   convo.StateIdle,
	}, nil
}

// StartBook marks a book as currently reading.
func (s *Service) StartBook(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	b, miss, err := s.resolveBook(ctx, inv)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return &commands.Result{Message: miss}, nil
	}
	if b.Status == store.StatusReading {
		return &commands.Result{
			Message: fmt.Sprintf("You're already reading %q.", b.Title),
			Book:    bookRef(b),
		}, nil
	}

	if err := s.store.MarkStarted(ctx, b.ID); err != nil {
		return nil, err
	}
	b.Status = store.StatusReading
	return &commands.Result{
		Message: fmt.Sprintf("Started %q. Happy reading!", b.Title),
		Book:    bookRef(b),
		State:   convo.StateIdle,
	}, nil
}

// FinishBook stages the finish transition for yes/no confirmation.
func (s *Service) FinishBook(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	b, miss, err := s.resolveBook(ctx, inv)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return &commands.Result{Message: miss}, nil
	}
	if b.Status == store.StatusFinished {
		return &commands.Result{
			Message: fmt.Sprintf("%q is already marked finished.", b.Title),
			Book:    bookRef(b),
		}, nil
	}

	question := fmt.Sprintf("Mark %q as finished? Reply yes or no.", b.Title)
	return &commands.Result{
		Message: question,
		Book:    bookRef(b),
		Confirm: &convo.PendingConfirm{
			Kind:     nlp.IntentFinishBook,
			Book:     bookRef(b),
			Question: question,
		},
		State: convo.StateConfirming,
	}, nil
}
