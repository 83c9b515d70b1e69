package library_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"booksms/internal/booksms/commands"
	"booksms/internal/booksms/convo"
	"booksms/internal/booksms/library"
	"booksms/internal/booksms/nlp"
	"booksms/internal/booksms/store"
)

func newTestService(t *testing.T) (*library.Service, *store.Store) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "booksms-test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return library.New(st), st
}

func invoke(kind nlp.IntentKind, params nlp.Params) *commands.Invocation {
	return &commands.Invocation{Kind: kind, Params: params, Sender: "+15550001111"}
}

func TestAddBook(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.AddBook(ctx, invoke(nlp.IntentAddBook, nlp.Params{Title: "Dune", Author: "Frank Herbert"}))
	if err != nil {
		t.Fatalf("AddBook: %v", err)
	}
	if !strings.Contains(res.Message, "Dune") || !strings.Contains(res.Message, "Frank Herbert") {
		t.Errorf("message: got %q, want title and author named", res.Message)
	}
	if res.Book == nil || res.Book.Title != "Dune" {
		t.Errorf("book: got %+v, want Dune (becomes the referent for \"it\")", res.Book)
	}

	// Adding the same title again is caught.
	res, err = svc.AddBook(ctx, invoke(nlp.IntentAddBook, nlp.Params{Title: "dune"}))
	if err != nil {
		t.Fatalf("duplicate AddBook: %v", err)
	}
	if !strings.Contains(res.Message, "already") {
		t.Errorf("duplicate: got %q, want already-present reply", res.Message)
	}
}

func TestSearchBooks_Pagination(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	for i := 1; i <= 8; i++ {
		if _, err := st.AddBook(ctx, &store.Book{Title: fmt.Sprintf("Dragon Tale %d", i)}); err != nil {
			t.Fatalf("AddBook: %v", err)
		}
	}

	res, err := svc.SearchBooks(ctx, invoke(nlp.IntentSearchBooks, nlp.Params{Query: "dragon"}))
	if err != nil {
		t.Fatalf("SearchBooks: %v", err)
	}
	if len(res.Books) != 5 {
		t.Errorf("first page: got %d books, want 5", len(res.Books))
	}
	if !strings.Contains(res.Message, "MORE") {
		t.Errorf("message: got %q, want a MORE hint", res.Message)
	}
	if res.Page == nil {
		t.Fatal("pagination: got nil, want cursor state")
	}
	if res.Page.TotalCount != 8 || res.Page.CurrentOffset != 5 {
		t.Errorf("cursor: got total %d offset %d, want 8/5", res.Page.TotalCount, res.Page.CurrentOffset)
	}
	if res.State != convo.StatePaginating {
		t.Errorf("state: got %q, want %q", res.State, convo.StatePaginating)
	}

	// Second page through the conversation cursor.
	c := &convo.Context{Pagination: res.Page}
	next, err := svc.NextPage(ctx, c)
	if err != nil {
		t.Fatalf("NextPage: %v", err)
	}
	if next == nil || len(next.Books) != 3 {
		t.Fatalf("second page: got %+v, want 3 books", next)
	}
	if strings.Contains(next.Message, "MORE") {
		t.Errorf("final page: got %q, want no MORE hint", next.Message)
	}

	// Cursor exhausted.
	c.Pagination = next.Page
	last, err := svc.NextPage(ctx, c)
	if err != nil {
		t.Fatalf("NextPage exhausted: %v", err)
	}
	if last != nil {
		t.Errorf("exhausted cursor: got %+v, want nil", last)
	}
}

func TestSearchBooks_NoResults(t *testing.T) {
	svc, _ := newTestService(t)
	res, err := svc.SearchBooks(context.Background(), invoke(nlp.IntentSearchBooks, nlp.Params{Query: "nothing"}))
	if err != nil {
		t.Fatalf("SearchBooks: %v", err)
	}
	if !strings.Contains(res.Message, "No books match") {
		t.Errorf("message: got %q, want empty-result reply", res.Message)
	}
	if res.Page != nil {
		t.Errorf("pagination: got %+v, want nil", res.Page)
	}
}

// TestRateBook_OrdinalResolution verifies "rate the second one 5 stars"
// resolves against the last shown list.
func TestRateBook_OrdinalResolution(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	a, _ := st.AddBook(ctx, &store.Book{Title: "First Book"})
	b, _ := st.AddBook(ctx, &store.Book{Title: "Second Book"})

	inv := invoke(nlp.IntentRateBook, nlp.Params{Ordinal: 2, Rating: 5})
	inv.Convo = &convo.Context{LastList: []convo.BookRef{
		{ID: a, Title: "First Book"},
		{ID: b, Title: "Second Book"},
	}}

	res, err := svc.RateBook(ctx, inv)
	if err != nil {
		t.Fatalf("RateBook: %v", err)
	}
	if !strings.Contains(res.Message, "Second Book") {
		t.Errorf("message: got %q, want second book rated", res.Message)
	}
	got, _ := st.GetBook(ctx, b)
	if got.Rating != 5 {
		t.Errorf("rating: got %d, want 5", got.Rating)
	}
}

// TestRateBook_PronounResolution verifies "rate it 5 stars" resolves to
// the last referenced book.
func TestRateBook_PronounResolution(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	id, _ := st.AddBook(ctx, &store.Book{Title: "Dune"})

	inv := invoke(nlp.IntentRateBook, nlp.Params{Reference: "it", Rating: 4})
	inv.Convo = &convo.Context{LastBook: &convo.BookRef{ID: id, Title: "Dune"}}

	res, err := svc.RateBook(ctx, inv)
	if err != nil {
		t.Fatalf("RateBook: %v", err)
	}
	if !strings.Contains(res.Message, "Dune") {
		t.Errorf("message: got %q, want Dune rated", res.Message)
	}
}

func TestRateBook_DanglingReference(t *testing.T) {
	svc, _ := newTestService(t)

	inv := invoke(nlp.IntentRateBook, nlp.Params{Reference: "it", Rating: 4})
	inv.Convo = &convo.Context{} // nothing to point at

	res, err := svc.RateBook(context.Background(), inv)
	if err != nil {
		t.Fatalf("RateBook: %v", err)
	}
	if !strings.Contains(res.Message, "which book") && !strings.Contains(res.Message, "Which book") {
		t.Errorf("message: got %q, want a which-book prompt", res.Message)
	}
}

// TestRemoveBook_ConfirmFlow verifies removal stages a confirmation and
// only deletes after Confirm.
func TestRemoveBook_ConfirmFlow(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	id, _ := st.AddBook(ctx, &store.Book{Title: "Dune"})

	res, err := svc.RemoveBook(ctx, invoke(nlp.IntentRemoveBook, nlp.Params{Title: "Dune"}))
	if err != nil {
		t.Fatalf("RemoveBook: %v", err)
	}
	if res.Confirm == nil {
		t.Fatal("confirm: got nil, want staged confirmation")
	}
	if res.Confirm.Kind != nlp.IntentRemoveBook || res.Confirm.Book.ID != id {
		t.Errorf("confirm: got %+v, want remove of book %d", res.Confirm, id)
	}
	if res.State != convo.StateConfirming {
		t.Errorf("state: got %q, want %q", res.State, convo.StateConfirming)
	}
	// Nothing deleted yet.
	if _, err := st.GetBook(ctx, id); err != nil {
		t.Fatalf("book deleted before confirmation: %v", err)
	}

	done, err := svc.Confirm(ctx, res.Confirm)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !strings.Contains(done.Message, "Removed") {
		t.Errorf("message: got %q, want removal reply", done.Message)
	}
	if _, err := st.GetBook(ctx, id); err == nil {
		t.Error("book still present after confirmed removal")
	}
}

func TestFinishBook_ConfirmFlow(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	id, _ := st.AddBook(ctx, &store.Book{Title: "Dune", Pages: 400})

	res, err := svc.FinishBook(ctx, invoke(nlp.IntentFinishBook, nlp.Params{Title: "Dune"}))
	if err != nil {
		t.Fatalf("FinishBook: %v", err)
	}
	if res.Confirm == nil || res.Confirm.Kind != nlp.IntentFinishBook {
		t.Fatalf("confirm: got %+v, want staged finish", res.Confirm)
	}

	done, err := svc.Confirm(ctx, res.Confirm)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !strings.Contains(done.Message, "Finished") {
		t.Errorf("message: got %q, want finish reply", done.Message)
	}
	got, _ := st.GetBook(ctx, id)
	if got.Status != store.StatusFinished {
		t.Errorf("status: got %q, want finished", got.Status)
	}
}

func TestUpdateProgress_PercentToPage(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	id, _ := st.AddBook(ctx, &store.Book{Title: "Dune", Pages: 400})

	res, err := svc.UpdateProgress(ctx, invoke(nlp.IntentUpdateProgress, nlp.Params{Title: "Dune", Percent: 50}))
	if err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	if !strings.Contains(res.Message, "page 200") {
		t.Errorf("message: got %q, want page 200", res.Message)
	}
	got, _ := st.GetBook(ctx, id)
	if got.CurrentPage != 200 {
		t.Errorf("page: got %d, want 200", got.CurrentPage)
	}
}

func TestUpdateProgress_PercentNeedsPageCount(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	st.AddBook(ctx, &store.Book{Title: "Dune"}) // page count unknown

	res, err := svc.UpdateProgress(ctx, invoke(nlp.IntentUpdateProgress, nlp.Params{Title: "Dune", Percent: 50}))
	if err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	if !strings.Contains(res.Message, "page number") {
		t.Errorf("message: got %q, want a page-number prompt", res.Message)
	}
}

func TestStatsAndGoal(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	id, _ := st.AddBook(ctx, &store.Book{Title: "Dune", Pages: 400})
	st.MarkFinished(ctx, id)

	res, err := svc.SetGoal(ctx, invoke(nlp.IntentSetGoal, nlp.Params{Goal: 24}))
	if err != nil {
		t.Fatalf("SetGoal: %v", err)
	}
	if !strings.Contains(res.Message, "24") {
		t.Errorf("message: got %q, want goal named", res.Message)
	}

	res, err = svc.ReadingGoal(ctx, invoke(nlp.IntentReadingGoal, nlp.Params{}))
	if err != nil {
		t.Fatalf("ReadingGoal: %v", err)
	}
	if !strings.Contains(res.Message, "1 of 24 books") {
		t.Errorf("message: got %q, want progress against goal", res.Message)
	}

	res, err = svc.ReadingStats(ctx, invoke(nlp.IntentReadingStats, nlp.Params{}))
	if err != nil {
		t.Fatalf("ReadingStats: %v", err)
	}
	if !strings.Contains(res.Message, "1 finished") || !strings.Contains(res.Message, "Goal: 1/24") {
		t.Errorf("message: got %q, want stats with goal line", res.Message)
	}
}

func TestRecommend_PrefersFavoriteGenre(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	a, _ := st.AddBook(ctx, &store.Book{Title: "Loved Fantasy", Genre: "fantasy"})
	st.MarkFinished(ctx, a)
	st.SetRating(ctx, a, 5)
	st.AddBook(ctx, &store.Book{Title: "Unread Fantasy", Genre: "fantasy"})
	st.AddBook(ctx, &store.Book{Title: "Unread Sci-Fi", Genre: "sci-fi"})

	res, err := svc.Recommend(ctx, invoke(nlp.IntentRecommend, nlp.Params{}))
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if !strings.Contains(res.Message, "fantasy") {
		t.Errorf("message: got %q, want favorite genre named", res.Message)
	}
	if !strings.Contains(res.Message, "Unread Fantasy") {
		t.Errorf("message: got %q, want the unread fantasy book suggested", res.Message)
	}
	if strings.Contains(res.Message, "Loved Fantasy") {
		t.Errorf("message: got %q, finished book must not be recommended", res.Message)
	}
}

func TestBookDetails(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	id, _ := st.AddBook(ctx, &store.Book{Title: "Dune", Author: "Frank Herbert", Genre: "sci-fi", Pages: 412})
	st.SetProgress(ctx, id, 103)

	res, err := svc.BookDetails(ctx, invoke(nlp.IntentBookDetails, nlp.Params{Title: "dune"}))
	if err != nil {
		t.Fatalf("BookDetails: %v", err)
	}
	for _, want := range []string{"Dune", "Frank Herbert", "sci-fi", "412", "page 103", "25%"} {
		if !strings.Contains(res.Message, want) {
			t.Errorf("message: got %q, want %q included", res.Message, want)
		}
	}
}

func TestRegisterAll_CoversCatalogue(t *testing.T) {
	svc, _ := newTestService(t)
	r := commands.NewRouter()
	svc.RegisterAll(r)

	kinds := []nlp.IntentKind{
		nlp.IntentSearchBooks, nlp.IntentBookDetails, nlp.IntentAddBook,
		nlp.IntentRemoveBook, nlp.IntentRateBook, nlp.IntentUpdateProgress,
		nlp.IntentStartBook, nlp.IntentFinishBook, nlp.IntentCurrentlyReading,
		nlp.IntentReadingStats, nlp.IntentRecommend, nlp.IntentListBooks,
		nlp.IntentListGenres, nlp.IntentGenreFilter, nlp.IntentRatingFilter,
		nlp.IntentAuthorFilter, nlp.IntentComplexFilter, nlp.IntentUnreadBooks,
		nlp.IntentFinishedBooks, nlp.IntentFavoriteBooks, nlp.IntentTopRated,
		nlp.IntentRandomPick, nlp.IntentRecentlyAdded, nlp.IntentRecentlyFinished,
		nlp.IntentPagesLeft, nlp.IntentBookCount, nlp.IntentSetGoal,
		nlp.IntentReadingGoal, nlp.IntentWishlistAdd, nlp.IntentGreeting,
		nlp.IntentHelp, nlp.IntentUnknown,
	}
	for _, k := range kinds {
		if !r.Handles(k) {
			t.Errorf("no handler registered for %s", k)
		}
	}
}
