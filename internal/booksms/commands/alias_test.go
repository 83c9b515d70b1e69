package commands_test

import (
	"testing"

	"booksms/internal/booksms/commands"
	"booksms/internal/booksms/nlp"
)

func TestParseAlias_Keywords(t *testing.T) {
	tests := []struct {
		msg    string
		kind   nlp.IntentKind
		title  string
		author string
		query  string
	}{
		{"HELP", nlp.IntentHelp, "", "", ""},
		{"help", nlp.IntentHelp, "", "", ""},
		{"LIST", nlp.IntentListBooks, "", "", ""},
		{"STATS", nlp.IntentReadingStats, "", "", ""},
		{"RANDOM", nlp.IntentRandomPick, "", "", ""},
		{"ADD Dune", nlp.IntentAddBook, "Dune", "", ""},
		{"add Dune by Frank Herbert", nlp.IntentAddBook, "Dune", "Frank Herbert", ""},
		{"remove The Hobbit", nlp.IntentRemoveBook, "The Hobbit", "", ""},
		{"SEARCH dragons", nlp.IntentSearchBooks, "", "", "dragons"},
		{"find project hail mary", nlp.IntentSearchBooks, "", "", "project hail mary"},
	}
	for _, tc := range tests {
		got := commands.ParseAlias(tc.msg)
		if got == nil {
			t.Errorf("%q: got nil, want %s", tc.msg, tc.kind)
			continue
		}
		if got.Kind != tc.kind {
			t.Errorf("%q: kind: got %s, want %s", tc.msg, got.Kind, tc.kind)
		}
		if got.Params.Title != tc.title {
			t.Errorf("%q: title: got %q, want %q", tc.msg, got.Params.Title, tc.title)
		}
		if got.Params.Author != tc.author {
			t.Errorf("%q: author: got %q, want %q", tc.msg, got.Params.Author, tc.author)
		}
		if got.Params.Query != tc.query {
			t.Errorf("%q: query: got %q, want %q", tc.msg, got.Params.Query, tc.query)
		}
		if got.Confidence != commands.AliasConfidence {
			t.Errorf("%q: confidence: got %v, want %v", tc.msg, got.Confidence, commands.AliasConfidence)
		}
	}
}

// TestParseAlias_NotACommand verifies ordinary sentences fall through to
// the classifiers even when they open with an alias keyword.
func TestParseAlias_NotACommand(t *testing.T) {
	for _, msg := range []string{
		"I finished Dune yesterday",
		"add some more excitement to my reading list because it got stale",
		"help me figure out what to read next when I have finished this one",
		"what should I read",
		"",
	} {
		if got := commands.ParseAlias(msg); got != nil {
			t.Errorf("%q: got %+v, want nil", msg, got)
		}
	}
}
