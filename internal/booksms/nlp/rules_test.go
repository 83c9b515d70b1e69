package nlp_test

import (
	"testing"

	"booksms/internal/booksms/nlp"
)

// TestRules_Classification walks representative messages through the rule
// table and checks intent plus extracted parameters. Matching is done on
// the lowercased message, so extracted titles come back lowercase.
func TestRules_Classification(t *testing.T) {
	c := nlp.NewRuleClassifier()

	tests := []struct {
		msg    string
		kind   nlp.IntentKind
		params nlp.Params
	}{
		{"add Dune by Frank Herbert", nlp.IntentAddBook, nlp.Params{Title: "dune", Author: "frank herbert"}},
		{"add Mistborn", nlp.IntentAddBook, nlp.Params{Title: "mistborn"}},
		{"wishlist Project Hail Mary", nlp.IntentWishlistAdd, nlp.Params{Title: "project hail mary"}},
		{"remove the hobbit", nlp.IntentRemoveBook, nlp.Params{Title: "the hobbit"}},
		{"remove it", nlp.IntentRemoveBook, nlp.Params{Reference: "it"}},
		{"rate Dune 5 stars", nlp.IntentRateBook, nlp.Params{Title: "dune", Rating: 5}},
		{"rate it 4 stars", nlp.IntentRateBook, nlp.Params{Reference: "it", Rating: 4}},
		{"i'm on page 120 of Dune", nlp.IntentUpdateProgress, nlp.Params{Page: 120, Title: "dune"}},
		{"page 200", nlp.IntentUpdateProgress, nlp.Params{Page: 200}},
		{"50% through project hail mary", nlp.IntentUpdateProgress, nlp.Params{Percent: 50, Title: "project hail mary"}},
		{"i just finished Dune", nlp.IntentFinishBook, nlp.Params{Title: "dune"}},
		{"i finished it", nlp.IntentFinishBook, nlp.Params{Reference: "it"}},
		{"started reading mistborn", nlp.IntentStartBook, nlp.Params{Title: "mistborn"}},
		{"tell me about mistborn", nlp.IntentBookDetails, nlp.Params{Title: "mistborn"}},
		{"who wrote it", nlp.IntentBookDetails, nlp.Params{Reference: "it"}},
		{"who wrote mistborn", nlp.IntentBookDetails, nlp.Params{Title: "mistborn"}},
		{"what am I reading", nlp.IntentCurrentlyReading, nlp.Params{}},
		{"how many pages left", nlp.IntentPagesLeft, nlp.Params{}},
		{"reading stats", nlp.IntentReadingStats, nlp.Params{}},
		{"how many books do I have", nlp.IntentBookCount, nlp.Params{}},
		{"recommend something", nlp.IntentRecommend, nlp.Params{}},
		{"set a goal of 24 books", nlp.IntentSetGoal, nlp.Params{Goal: 24}},
		{"what's my reading goal", nlp.IntentReadingGoal, nlp.Params{}},
		{"top rated books", nlp.IntentTopRated, nlp.Params{}},
		{"surprise me", nlp.IntentRandomPick, nlp.Params{}},
		{"recently added books", nlp.IntentRecentlyAdded, nlp.Params{}},
		{"unread books", nlp.IntentUnreadBooks, nlp.Params{}},
		{"what genres do I have", nlp.IntentListGenres, nlp.Params{}},
		{"list my books", nlp.IntentListBooks, nlp.Params{}},
		{"fantasy books", nlp.IntentGenreFilter, nlp.Params{Genre: "fantasy"}},
		{"books rated 4 or higher", nlp.IntentRatingFilter, nlp.Params{MinRating: 4}},
		{"books by brandon sanderson", nlp.IntentAuthorFilter, nlp.Params{Author: "brandon sanderson"}},
		{"search for dragons", nlp.IntentSearchBooks, nlp.Params{Query: "dragons"}},
		{"hello", nlp.IntentGreeting, nlp.Params{}},
		{"help", nlp.IntentHelp, nlp.Params{}},
	}

	for _, tc := range tests {
		got := c.Classify(tc.msg)
		if got == nil {
			t.Errorf("%q: got nil, want %s", tc.msg, tc.kind)
			continue
		}
		if got.Kind != tc.kind {
			t.Errorf("%q: kind: got %s, want %s", tc.msg, got.Kind, tc.kind)
		}
		if got.Params != tc.params {
			t.Errorf("%q: params: got %+v, want %+v", tc.msg, got.Params, tc.params)
		}
		if got.Confidence != nlp.RuleConfidence {
			t.Errorf("%q: confidence: got %v, want %v", tc.msg, got.Confidence, nlp.RuleConfidence)
		}
	}
}

// TestRules_OrderingPins verifies the ambiguous pairs whose outcome depends
// on rule order. These inputs match more than one pattern; the table order
// decides which wins.
func TestRules_OrderingPins(t *testing.T) {
	c := nlp.NewRuleClassifier()

	tests := []struct {
		msg  string
		kind nlp.IntentKind
	}{
		// Multi-criteria must beat the single-criterion patterns.
		{"sci-fi books rated 4+", nlp.IntentComplexFilter},
		{"5-star mystery books", nlp.IntentComplexFilter},
		// List-of-finished must beat the finish-one-title pattern.
		{"recently finished books", nlp.IntentRecentlyFinished},
		{"finished books", nlp.IntentFinishedBooks},
		{"books i've read", nlp.IntentFinishedBooks},
	}

	for _, tc := range tests {
		got := c.Classify(tc.msg)
		if got == nil || got.Kind != tc.kind {
			var kind nlp.IntentKind
			if got != nil {
				kind = got.Kind
			}
			t.Errorf("%q: got %s, want %s", tc.msg, kind, tc.kind)
		}
	}

	got := c.Classify("horror books rated 3 or better")
	if got == nil || got.Kind != nlp.IntentComplexFilter {
		t.Fatalf("complex filter: got %+v", got)
	}
	if got.Params.Genre != "horror" || got.Params.MinRating != 3 {
		t.Errorf("params: got %+v, want genre=horror minRating=3", got.Params)
	}
}

// TestRules_ShortQueryFallback verifies that short unmatched messages
// degrade to a generic search, preserving the original casing.
func TestRules_ShortQueryFallback(t *testing.T) {
	c := nlp.NewRuleClassifier()

	got := c.Classify("Dune Messiah")
	if got == nil {
		t.Fatal("got nil, want search fallback")
	}
	if got.Kind != nlp.IntentSearchBooks {
		t.Errorf("kind: got %s, want %s", got.Kind, nlp.IntentSearchBooks)
	}
	if got.Confidence != nlp.ShortQueryConfidence {
		t.Errorf("confidence: got %v, want %v", got.Confidence, nlp.ShortQueryConfidence)
	}
	if got.Params.Query != "Dune Messiah" {
		t.Errorf("query: got %q, want original casing preserved", got.Params.Query)
	}
}

func TestRules_NoMatch(t *testing.T) {
	c := nlp.NewRuleClassifier()

	for _, msg := range []string{
		"",
		"x",
		"wqlekj zxcvmnb poiuyt alskdjfh qwerty",
	} {
		if got := c.Classify(msg); got != nil {
			t.Errorf("%q: got %+v, want nil", msg, got)
		}
	}
}

// TestRules_Deterministic verifies the same input always yields the same
// classification.
func TestRules_Deterministic(t *testing.T) {
	c := nlp.NewRuleClassifier()

	first := c.Classify("rate Dune 5 stars")
	for i := 0; i < 10; i++ {
		got := c.Classify("rate Dune 5 stars")
		if got.Kind != first.Kind || got.Params != first.Params || got.Confidence != first.Confidence {
			t.Fatalf("run %d: got %+v, want %+v", i, got, first)
		}
	}
}
