package library

import (
	"fmt"
	"strings"

	"booksms/internal/booksms/convo"
	"booksms/internal/booksms/store"
)

// Replies stay plain ASCII: SMS falls back to UCS-2 on the first non-GSM
// character, which halves the per-segment capacity.

func bookRef(b *store.Book) *convo.BookRef {
	return &convo.BookRef{
		ID:              b.ID,
		Title:           b.Title,
		Author:          b.Author,
		Pages:           b.Pages,
		ProgressPercent: b.ProgressPercent(),
	}
}

func bookRefs(books []*store.Book) []convo.BookRef {
	refs := make([]convo.BookRef, len(books))
	for i, b := range books {
		refs[i] = *bookRef(b)
	}
	return refs
}

// formatList numbers books 1..n so ordinal references line up with what is
// on screen, and appends a MORE hint when results remain.
func formatList(header string, books []*store.Book, remaining int) string {
	var sb strings.Builder
	if header != "" {
		sb.WriteString(header)
		sb.WriteString("\n")
	}
	for i, b := range books {
		sb.WriteString(bookLine(i+1, b))
		sb.WriteString("\n")
	}
	if remaining > 0 {
		fmt.Fprintf(&sb, "Reply MORE for %d more.", remaining)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func bookLine(n int, b *store.Book) string {
	line := fmt.Sprintf("%d. %s", n, b.Title)
	if b.Author != "" {
		line += " by " + b.Author
	}
	switch {
	case b.Rating > 0:
		line += fmt.Sprintf(" (%d/5)", b.Rating)
	case b.Status == store.StatusReading:
		line += fmt.Sprintf(" (%d%%)", b.ProgressPercent())
	}
	return line
}

// describeBook is the detail view for a single book.
func describeBook(b *store.Book) string {
	var parts []string
	head := b.Title
	if b.Author != "" {
		head += " by " + b.Author
	}
	parts = append(parts, head)

	if b.Genre != "" {
		parts = append(parts, "Genre: "+b.Genre)
	}
	if b.Pages > 0 {
		parts = append(parts, fmt.Sprintf("%d pages", b.Pages))
	}
	if b.Rating > 0 {
		parts = append(parts, fmt.Sprintf("Rated %d/5", b.Rating))
	}

	switch b.Status {
	case store.StatusFinished:
		parts = append(parts, "Finished")
	case store.StatusReading:
		if b.Pages > 0 {
			parts = append(parts, fmt.Sprintf("Reading: page %d of %d (%d%%)",
				b.CurrentPage, b.Pages, b.ProgressPercent()))
		} else {
			parts = append(parts, fmt.Sprintf("Reading: page %d", b.CurrentPage))
		}
	default:
		if b.Wishlist {
			parts = append(parts, "On your wishlist")
		} else {
			parts = append(parts, "Not started")
		}
	}

	return strings.Join(parts, ". ") + "."
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
