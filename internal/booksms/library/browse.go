package library

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"booksms/internal/booksms/commands"
	"booksms/internal/booksms/convo"
	"booksms/internal/booksms/store"
)

// SearchBooks matches the query against titles and authors.
func (s *Service) SearchBooks(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	query := inv.Params.Query
	if query == "" {
		query = inv.Params.Title
	}
	if strings.TrimSpace(query) == "" {
		return &commands.Result{Message: "What should I search for?"}, nil
	}

	ids, err := s.store.SearchIDs(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.listResult(ctx, inv, ids,
		fmt.Sprintf("Found %s for %q:", plural(len(ids), "book"), query),
		fmt.Sprintf("No books match %q.", query))
}

// ListBooks shows the whole collection, newest first.
func (s *Service) ListBooks(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	ids, err := s.store.FilterIDs(ctx, store.Filter{})
	if err != nil {
		return nil, err
	}
	return s.listResult(ctx, inv, ids,
		fmt.Sprintf("Your collection (%s):", plural(len(ids), "book")),
		"Your collection is empty. Text me \"add <title>\" to start it.")
}

// GenreFilter lists books in one genre.
func (s *Service) GenreFilter(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	genre := inv.Params.Genre
	ids, err := s.store.FilterIDs(ctx, store.Filter{Genre: genre})
	if err != nil {
		return nil, err
	}
	return s.listResult(ctx, inv, ids,
		fmt.Sprintf("Your %s books:", genre),
		fmt.Sprintf("No %s books in your collection.", genre))
}

// RatingFilter lists books at or above a rating.
func (s *Service) RatingFilter(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	f := store.Filter{Rating: inv.Params.Rating, MinRating: inv.Params.MinRating, OrderBy: "top_rated"}
	label := ""
	switch {
	case f.MinRating > 0:
		label = fmt.Sprintf("rated %d+", f.MinRating)
	case f.Rating > 0:
		label = fmt.Sprintf("rated %d/5", f.Rating)
	default:
		return &commands.Result{Message: "Which rating? Try \"books rated 4 or higher\"."}, nil
	}

	ids, err := s.store.FilterIDs(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.listResult(ctx, inv, ids,
		fmt.Sprintf("Books %s:", label),
		fmt.Sprintf("No books %s yet.", label))
}

// AuthorFilter lists books by one author.
func (s *Service) AuthorFilter(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	author := inv.Params.Author
	if author == "" {
		return &commands.Result{Message: "Which author?"}, nil
	}
	ids, err := s.store.FilterIDs(ctx, store.Filter{Author: author})
	if err != nil {
		return nil, err
	}
	return s.listResult(ctx, inv, ids,
		fmt.Sprintf("Books by %s:", author),
		fmt.Sprintf("No books by %s in your collection.", author))
}

// ComplexFilter combines genre with a rating bound.
func (s *Service) ComplexFilter(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	f := store.Filter{
		Genre:     inv.Params.Genre,
		Author:    inv.Params.Author,
		Rating:    inv.Params.Rating,
		MinRating: inv.Params.MinRating,
		OrderBy:   "top_rated",
	}
	ids, err := s.store.FilterIDs(ctx, f)
	if err != nil {
		return nil, err
	}

	var crit []string
	if f.Genre != "" {
		crit = append(crit, f.Genre)
	}
	if f.Author != "" {
		crit = append(crit, "by "+f.Author)
	}
	if f.MinRating > 0 {
		crit = append(crit, fmt.Sprintf("rated %d+", f.MinRating))
	} else if f.Rating > 0 {
		crit = append(crit, fmt.Sprintf("rated %d/5", f.Rating))
	}
	label := strings.Join(crit, ", ")

	return s.listResult(ctx, inv, ids,
		fmt.Sprintf("Books matching %s:", label),
		fmt.Sprintf("Nothing matches %s.", label))
}

// UnreadBooks lists books not yet started.
func (s *Service) UnreadBooks(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	ids, err := s.store.FilterIDs(ctx, store.Filter{Status: store.StatusUnread})
	if err != nil {
		return nil, err
	}
	return s.listResult(ctx, inv, ids,
		fmt.Sprintf("Unread (%s):", plural(len(ids), "book")),
		"No unread books. Time to add some!")
}

// FinishedBooks lists finished books, most recent first.
func (s *Service) FinishedBooks(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	ids, err := s.store.FilterIDs(ctx, store.Filter{Status: store.StatusFinished, OrderBy: "recently_finished"})
	if err != nil {
		return nil, err
	}
	return s.listResult(ctx, inv, ids,
		fmt.Sprintf("Finished (%s):", plural(len(ids), "book")),
		"You haven't finished any books yet.")
}

// FavoriteBooks lists books rated 4 or above.
func (s *Service) FavoriteBooks(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	ids, err := s.store.FilterIDs(ctx, store.Filter{MinRating: 4, OrderBy: "top_rated"})
	if err != nil {
		return nil, err
	}
	return s.listResult(ctx, inv, ids,
		"Your favorites (rated 4+):",
		"No favorites yet. Rate some books 4 or 5 first.")
}

// TopRated lists the highest-rated books.
func (s *Service) TopRated(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	limit := inv.Params.Limit
	if limit <= 0 {
		limit = pageSize
	}
	ids, err := s.store.FilterIDs(ctx, store.Filter{MinRating: 1, OrderBy: "top_rated", Limit: limit})
	if err != nil {
		return nil, err
	}
	return s.listResult(ctx, inv, ids,
		"Your top rated:",
		"No rated books yet. Rate one with \"rate <title> 5 stars\".")
}

// RecentlyAdded lists the newest additions.
func (s *Service) RecentlyAdded(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	limit := inv.Params.Limit
	if limit <= 0 {
		limit = pageSize
	}
	ids, err := s.store.FilterIDs(ctx, store.Filter{OrderBy: "recently_added", Limit: limit})
	if err != nil {
		return nil, err
	}
	return s.listResult(ctx, inv, ids,
		"Recently added:",
		"Your collection is empty.")
}

// RecentlyFinished lists the latest finished books.
func (s *Service) RecentlyFinished(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	limit := inv.Params.Limit
	if limit <= 0 {
		limit = pageSize
	}
	ids, err := s.store.FilterIDs(ctx, store.Filter{
		Status: store.StatusFinished, OrderBy: "recently_finished", Limit: limit,
	})
	if err != nil {
		return nil, err
	}
	return s.listResult(ctx, inv, ids,
		"Recently finished:",
		"You haven't finished any books yet.")
}

// CurrentlyReading lists in-progress books with their progress.
func (s *Service) CurrentlyReading(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	ids, err := s.store.FilterIDs(ctx, store.Filter{Status: store.StatusReading})
	if err != nil {
		return nil, err
	}
	return s.listResult(ctx, inv, ids,
		"Currently reading:",
		"You're not reading anything right now. Try \"start <title>\".")
}

// RandomPick suggests one book at random.
func (s *Service) RandomPick(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	b, err := s.store.RandomBook(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return &commands.Result{Message: "Your collection is empty, nothing to pick from."}, nil
	}
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("How about %q", b.Title)
	if b.Author != "" {
		msg += " by " + b.Author
	}
	return &commands.Result{
		Message: msg + "?",
		Book:    bookRef(b),
		State:   convo.StateIdle,
	}, nil
}

// Recommend picks unread books, preferring the reader's favorite genre.
func (s *Service) Recommend(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	f := store.Filter{Status: store.StatusUnread, Limit: 3}
	header := "You could try:"

	genre, err := s.store.FavoriteGenre(ctx)
	if err == nil {
		f.Genre = genre
		header = fmt.Sprintf("You seem to like %s. You could try:", genre)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	ids, err := s.store.FilterIDs(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 && f.Genre != "" {
		// Nothing unread in the favorite genre; widen the net.
		f.Genre = ""
		header = "You could try:"
		if ids, err = s.store.FilterIDs(ctx, f); err != nil {
			return nil, err
		}
	}

	return s.listResult(ctx, inv, ids, header,
		"Nothing unread to recommend. Add some books first!")
}

// ListGenres summarizes the genres in the collection.
func (s *Service) ListGenres(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
	genres, err := s.store.Genres(ctx)
	if err != nil {
		return nil, err
	}
	if len(genres) == 0 {
		return &commands.Result{Message: "No genres yet. Books need a genre when you add them."}, nil
	}

	parts := make([]string, len(genres))
	for i, g := range genres {
		parts[i] = fmt.Sprintf("%s (%d)", g.Genre, g.Count)
	}
	return &commands.Result{
		Message: "Your genres: " + strings.Join(parts, ", ") + ".",
		State:   convo.StateIdle,
	}, nil
}
