package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a lookup matches no book. Callers should use
// errors.Is to distinguish this expected case from real errors.
var ErrNotFound = errors.New("book not found")

// BookStatus is the reading lifecycle of a book.
type BookStatus string

const (
	StatusUnread   BookStatus = "unread"
	StatusReading  BookStatus = "reading"
	StatusFinished BookStatus = "finished"
)

// Book is one row of the collection. Rating 0 means unrated.
type Book struct {
	ID          int64
	Title       string
	Author      string
	Genre       string
	Pages       int
	Rating      int
	Status      BookStatus
	CurrentPage int
	Wishlist    bool
	AddedAt     time.Time
	StartedAt   *time.Time
	FinishedAt  *time.Time
}

// ProgressPercent derives completion from the page cursor; 0 when the page
// count is unknown.
func (b *Book) ProgressPercent() int {
	if b.Status == StatusFinished {
		return 100
	}
	if b.Pages <= 0 || b.CurrentPage <= 0 {
		return 0
	}
	pct := b.CurrentPage * 100 / b.Pages
	if pct > 100 {
		pct = 100
	}
	return pct
}

const bookColumns = `id, title, author, genre, pages, rating, status, current_page,
	wishlist, added_at, started_at, finished_at`

func scanBook(row interface{ Scan(...any) error }) (*Book, error) {
	var b Book
	var startedAt, finishedAt sql.NullTime
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Genre, &b.Pages, &b.Rating,
		&b.Status, &b.CurrentPage, &b.Wishlist, &b.AddedAt,
		&startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	if startedAt.Valid {
		b.StartedAt = &startedAt.Time
	}
	if finishedAt.Valid {
		b.FinishedAt = &finishedAt.Time
	}
	return &b, nil
}

// AddBook inserts a book and returns its id.
func (s *Store) AddBook(ctx context.Context, b *Book) (int64, error) {
	if b.Status == "" {
		b.Status = StatusUnread
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO books (title, author, genre, pages, rating, status, current_page, wishlist, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Title, b.Author, b.Genre, b.Pages, b.Rating, b.Status, b.CurrentPage,
		b.Wishlist, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to insert book: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted book id: %w", err)
	}
	return id, nil
}

// GetBook fetches a book by id.
func (s *Store) GetBook(ctx context.Context, id int64) (*Book, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+bookColumns+" FROM books WHERE id = ?", id)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book %d: %w", id, err)
	}
	return b, nil
}

// FindByTitle resolves a title reference to a single book. Exact matches
// (case-insensitive) win over substring matches; among substring matches the
// most recently added wins.
func (s *Store) FindByTitle(ctx context.Context, title string) (*Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrNotFound
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+bookColumns+" FROM books WHERE title = ? COLLATE NOCASE ORDER BY added_at DESC LIMIT 1", title)
	b, err := scanBook(row)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to find book by title: %w", err)
	}

	row = s.db.QueryRowContext(ctx,
		"SELECT "+bookColumns+" FROM books WHERE title LIKE ? COLLATE NOCASE ORDER BY added_at DESC LIMIT 1",
		"%"+title+"%")
	b, err = scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find book by title: %w", err)
	}
	return b, nil
}

// SearchIDs returns the ids of books matching query against title or
// author, in relevance order (title matches before author-only matches,
// then most recently added first).
func (s *Store) SearchIDs(ctx context.Context, query string) ([]int64, error) {
	like := "%" + strings.TrimSpace(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM books
		WHERE (title LIKE ? COLLATE NOCASE OR author LIKE ? COLLATE NOCASE)
		  AND wishlist = 0
		ORDER BY (title LIKE ? COLLATE NOCASE) DESC, added_at DESC`,
		like, like, like)
	if err != nil {
		return nil, fmt.Errorf("failed to search books: %w", err)
	}
	defer rows.Close()
	return collectIDs(rows)
}

// Filter selects a subset of the collection. Zero values are ignored.
type Filter struct {
	Genre     string
	Author    string
	Rating    int // exact
	MinRating int // inclusive lower bound
	Status    BookStatus
	Wishlist  bool

	// OrderBy is a whitelisted sort: "", "top_rated", "recently_added",
	// "recently_finished".
	OrderBy string
	Limit   int
}

// FilterIDs returns the ids of books matching f, ordered per f.OrderBy
// (default: most recently added first).
func (s *Store) FilterIDs(ctx context.Context, f Filter) ([]int64, error) {
	var where []string
	var args []any

	if f.Genre != "" {
		where = append(where, "genre = ? COLLATE NOCASE")
		args = append(args, f.Genre)
	}
	if f.Author != "" {
		where = append(where, "author LIKE ? COLLATE NOCASE")
		args = append(args, "%"+f.Author+"%")
	}
	if f.Rating > 0 {
		where = append(where, "rating = ?")
		args = append(args, f.Rating)
	}
	if f.MinRating > 0 {
		where = append(where, "rating >= ?")
		args = append(args, f.MinRating)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Wishlist {
		where = append(where, "wishlist = 1")
	} else {
		where = append(where, "wishlist = 0")
	}

	query := "SELECT id FROM books WHERE " + strings.Join(where, " AND ")

	switch f.OrderBy {
	case "top_rated":
		query += " ORDER BY rating DESC, added_at DESC"
	case "recently_added":
		query += " ORDER BY added_at DESC"
	case "recently_finished":
		query += " ORDER BY finished_at DESC"
	default:
		query += " ORDER BY added_at DESC"
	}
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to filter books: %w", err)
	}
	defer rows.Close()
	return collectIDs(rows)
}

// BooksByIDs fetches books by id, preserving the order of ids. Missing ids
// are silently skipped (the book may have been removed since the list was
// paginated).
func (s *Store) BooksByIDs(ctx context.Context, ids []int64) ([]*Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+bookColumns+" FROM books WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch books by id: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]*Book, len(ids))
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		byID[b.ID] = b
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate books: %w", err)
	}

	out := make([]*Book, 0, len(ids))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

// DeleteBook removes a book by id.
func (s *Store) DeleteBook(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM books WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete book %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRating sets a book's rating (1–5).
func (s *Store) SetRating(ctx context.Context, id int64, rating int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE books SET rating = ? WHERE id = ?", rating, id)
	if err != nil {
		return fmt.Errorf("failed to rate book %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetProgress moves a book's page cursor. A book not yet marked as reading
// becomes reading.
func (s *Store) SetProgress(ctx context.Context, id int64, page int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE books SET current_page = ?,
			status = CASE WHEN status = 'unread' THEN 'reading' ELSE status END,
			started_at = COALESCE(started_at, ?)
		WHERE id = ?`, page, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update progress for book %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkStarted transitions a book to reading.
func (s *Store) MarkStarted(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE books SET status = 'reading', started_at = COALESCE(started_at, ?), wishlist = 0
		WHERE id = ?`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark book %d started: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFinished transitions a book to finished and pins progress to the end.
func (s *Store) MarkFinished(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE books SET status = 'finished', finished_at = ?,
			current_page = CASE WHEN pages > 0 THEN pages ELSE current_page END
		WHERE id = ?`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark book %d finished: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RandomBook picks one non-wishlist book uniformly at random.
func (s *Store) RandomBook(ctx context.Context) (*Book, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+bookColumns+" FROM books WHERE wishlist = 0 ORDER BY RANDOM() LIMIT 1")
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pick random book: %w", err)
	}
	return b, nil
}

// FavoriteGenre returns the genre the reader rates highest: the one with
// the most books rated 4 or above. ErrNotFound when nothing qualifies.
func (s *Store) FavoriteGenre(ctx context.Context) (string, error) {
	var genre string
	err := s.db.QueryRowContext(ctx, `
		SELECT genre FROM books
		WHERE rating >= 4 AND genre != '' AND wishlist = 0
		GROUP BY genre COLLATE NOCASE ORDER BY COUNT(*) DESC, AVG(rating) DESC LIMIT 1`).Scan(&genre)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to find favorite genre: %w", err)
	}
	return genre, nil
}

// GenreCount is one genre and how many books carry it.
type GenreCount struct {
	Genre string
	Count int
}

// Genres lists the distinct genres in the collection with counts, most
// common first.
func (s *Store) Genres(ctx context.Context) ([]GenreCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT genre, COUNT(*) FROM books
		WHERE genre != '' AND wishlist = 0
		GROUP BY genre COLLATE NOCASE ORDER BY COUNT(*) DESC, genre`)
	if err != nil {
		return nil, fmt.Errorf("failed to list genres: %w", err)
	}
	defer rows.Close()

	var out []GenreCount
	for rows.Next() {
		var gc GenreCount
		if err := rows.Scan(&gc.Genre, &gc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan genre: %w", err)
		}
		out = append(out, gc)
	}
	return out, rows.Err()
}

// Stats summarizes the collection.
type Stats struct {
	Total            int
	Finished         int
	Reading          int
	Unread           int
	Wishlist         int
	PagesRead        int
	AvgRating        float64
	FinishedThisYear int
}

// CollectionStats computes reading statistics in one pass.
func (s *Store) CollectionStats(ctx context.Context) (*Stats, error) {
	yearStart := time.Date(time.Now().Year(), 1, 1, 0, 0, 0, 0, time.Local)
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE wishlist = 0),
			COUNT(*) FILTER (WHERE wishlist = 0 AND status = 'finished'),
			COUNT(*) FILTER (WHERE wishlist = 0 AND status = 'reading'),
			COUNT(*) FILTER (WHERE wishlist = 0 AND status = 'unread'),
			COUNT(*) FILTER (WHERE wishlist = 1),
			COALESCE(SUM(CASE
				WHEN wishlist = 1 THEN 0
				WHEN status = 'finished' AND pages > 0 THEN pages
				ELSE current_page END), 0),
			COALESCE(AVG(CASE WHEN wishlist = 0 AND rating > 0 THEN rating END), 0),
			COUNT(*) FILTER (WHERE wishlist = 0 AND status = 'finished' AND finished_at >= ?)
		FROM books`, yearStart).Scan(
		&st.Total, &st.Finished, &st.Reading, &st.Unread, &st.Wishlist,
		&st.PagesRead, &st.AvgRating, &st.FinishedThisYear)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return &st, nil
}

func collectIDs(rows *sql.Rows) ([]int64, error) {
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
