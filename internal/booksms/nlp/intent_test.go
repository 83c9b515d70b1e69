package nlp_test

import (
	"testing"

	"booksms/internal/booksms/nlp"
)

// TestKnownIntent pins the catalogue lookup: every declared kind resolves,
// matching is case-insensitive, and anything else is rejected.
func TestKnownIntent(t *testing.T) {
	for _, kind := range []nlp.IntentKind{
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
	} {
		got, ok := nlp.KnownIntent(string(kind))
		if !ok || got != kind {
			t.Errorf("%s: got (%s, %v), want (%s, true)", kind, got, ok, kind)
		}
	}

	if got, ok := nlp.KnownIntent(" search_books "); !ok || got != nlp.IntentSearchBooks {
		t.Errorf("lowercase lookup: got (%s, %v)", got, ok)
	}
	if _, ok := nlp.KnownIntent("MAKE_COFFEE"); ok {
		t.Error("MAKE_COFFEE: got true, want false")
	}
	if _, ok := nlp.KnownIntent(""); ok {
		t.Error("empty kind: got true, want false")
	}
}

// TestParsedIntent_Trusted checks the confidence floor is inclusive and
// UNKNOWN never counts as trusted.
func TestParsedIntent_Trusted(t *testing.T) {
	tests := []struct {
		kind       nlp.IntentKind
		confidence float64
		want       bool
	}{
		{nlp.IntentSearchBooks, nlp.ConfidenceFloor, true},
		{nlp.IntentSearchBooks, nlp.ConfidenceFloor - 0.01, false},
		{nlp.IntentUnknown, 0.9, false},
	}
	for _, tc := range tests {
		p := &nlp.ParsedIntent{Kind: tc.kind, Confidence: tc.confidence}
		if got := p.Trusted(); got != tc.want {
			t.Errorf("%s at %v: got %v, want %v", tc.kind, tc.confidence, got, tc.want)
		}
	}
	var nilIntent *nlp.ParsedIntent
	if nilIntent.Trusted() {
		t.Error("nil intent: got true, want false")
	}
}
