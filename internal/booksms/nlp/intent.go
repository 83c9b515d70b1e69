// Package nlp provides the natural-language classification layer for
// booksms.
//
// The NLP layer sits between the raw inbound SMS and the command router.
// Its sole responsibility is translation: convert a free-form sentence into
// a structured ParsedIntent (intent kind + typed parameters) that the
// routing pipeline can dispatch.
//
// Two classifiers exist behind one contract:
//   - a hosted LLM provider (OpenAI-compatible chat API, JSON mode)
//   - a deterministic ordered-rule classifier
//
// The Pipeline in classifier.go always tries the hosted provider first and
// falls through to the rules on any failure, so callers see a single
// Classify call that never errors out of reach of a usable result.
package nlp

import "strings"

// IntentKind identifies what the sender wants booksms to do.
type IntentKind string

// The intent catalogue. Handlers are registered against these keys; the
// hosted classifier is only allowed to produce values from this set and
// anything else is downgraded to IntentUnknown.
const (
	IntentSearchBooks      IntentKind = "SEARCH_BOOKS"
	IntentBookDetails      IntentKind = "BOOK_DETAILS"
	IntentAddBook          IntentKind = "ADD_BOOK"
	IntentRemoveBook       IntentKind = "REMOVE_BOOK"
	IntentRateBook         IntentKind = "RATE_BOOK"
	IntentUpdateProgress   IntentKind = "UPDATE_PROGRESS"
	IntentStartBook        IntentKind = "START_BOOK"
	IntentFinishBook       IntentKind = "FINISH_BOOK"
	IntentCurrentlyReading IntentKind = "CURRENTLY_READING"
	IntentReadingStats     IntentKind = "READING_STATS"
	IntentRecommend        IntentKind = "RECOMMEND"
	IntentListBooks        IntentKind = "LIST_BOOKS"
	IntentListGenres       IntentKind = "LIST_GENRES"
	IntentGenreFilter      IntentKind = "GENRE_FILTER"
	IntentRatingFilter     IntentKind = "RATING_FILTER"
	IntentAuthorFilter     IntentKind = "AUTHOR_FILTER"
	IntentComplexFilter    IntentKind = "COMPLEX_FILTER"
	IntentUnreadBooks      IntentKind = "UNREAD_BOOKS"
	IntentFinishedBooks    IntentKind = "FINISHED_BOOKS"
	IntentFavoriteBooks    IntentKind = "FAVORITE_BOOKS"
	IntentTopRated         IntentKind = "TOP_RATED"
	IntentRandomPick       IntentKind = "RANDOM_PICK"
	IntentRecentlyAdded    IntentKind = "RECENTLY_ADDED"
	IntentRecentlyFinished IntentKind = "RECENTLY_FINISHED"
	IntentPagesLeft        IntentKind = "PAGES_LEFT"
	IntentBookCount        IntentKind = "BOOK_COUNT"
	IntentSetGoal          IntentKind = "SET_GOAL"
	IntentReadingGoal      IntentKind = "READING_GOAL"
	IntentWishlistAdd      IntentKind = "WISHLIST_ADD"
	IntentGreeting         IntentKind = "GREETING"
	IntentHelp             IntentKind = "HELP"
	IntentUnknown          IntentKind = "UNKNOWN"
)

// knownIntents is the closed set of intent kinds the classifiers may emit.
var knownIntents = map[IntentKind]struct{}{
	IntentSearchBooks: {}, IntentBookDetails: {}, IntentAddBook: {},
	IntentRemoveBook: {}, IntentRateBook: {}, IntentUpdateProgress: {},
	IntentStartBook: {}, IntentFinishBook: {}, IntentCurrentlyReading: {},
	IntentReadingStats: {}, IntentRecommend: {}, IntentListBooks: {},
	IntentListGenres: {}, IntentGenreFilter: {}, IntentRatingFilter: {},
	IntentAuthorFilter: {}, IntentComplexFilter: {}, IntentUnreadBooks: {},
	IntentFinishedBooks: {}, IntentFavoriteBooks: {}, IntentTopRated: {},
	IntentRandomPick: {}, IntentRecentlyAdded: {}, IntentRecentlyFinished: {},
	IntentPagesLeft: {}, IntentBookCount: {}, IntentSetGoal: {},
	IntentReadingGoal: {}, IntentWishlistAdd: {}, IntentGreeting: {},
	IntentHelp: {}, IntentUnknown: {},
}

// KnownIntent reports whether kind is part of the intent catalogue.
// Matching is case-insensitive so "search_books" from a sloppy LLM reply
// still resolves.
func KnownIntent(kind string) (IntentKind, bool) {
	k := IntentKind(strings.ToUpper(strings.TrimSpace(kind)))
	_, ok := knownIntents[k]
	return k, ok
}

// Confidence levels assigned by the classifiers and the floor below which
// a classification is not trusted.
const (
	// ConfidenceFloor: classifications below this are treated as
	// IntentUnknown regardless of which classifier produced them.
	ConfidenceFloor = 0.4

	// RuleConfidence is the fixed confidence for any ordered-rule match.
	RuleConfidence = 0.6

	// ShortQueryConfidence is the confidence of the generic-search fallback
	// for very short messages that matched no rule.
	ShortQueryConfidence = 0.5

	// UnknownIntentConfidence is assigned when the hosted provider returns
	// an intent string outside the catalogue.
	UnknownIntentConfidence = 0.3
)

// Params carries the extracted parameters of a classification. It is a
// single flexible record with named optional fields rather than a
// map[string]any, so downstream handler code never needs defensive casts.
// Zero values mean "not provided"; the classifier boundary is the only
// place that validates and coerces raw values into this shape.
type Params struct {
	// Title is an explicit book title reference.
	Title string
	// Author filters or identifies by author name.
	Author string
	// Genre is a single genre filter, lowercase.
	Genre string
	// Query is free-text search input.
	Query string
	// Rating is an exact rating value in [1,5].
	Rating int
	// MinRating is an inclusive lower bound in [1,5].
	MinRating int
	// Page is an absolute page number for progress updates.
	Page int
	// Percent is a completion percentage in [0,100].
	Percent int
	// Limit caps result-set size when the sender asked for "top 3" etc.
	Limit int
	// Ordinal is a 1-based index reference into the last shown list.
	Ordinal int
	// Goal is a yearly book-count target for SET_GOAL.
	Goal int
	// Reference is a raw pronoun/ordinal token awaiting resolution
	// ("it", "the second one").
	Reference string
}

// IsZero reports whether no parameter was extracted at all.
func (p Params) IsZero() bool {
	return p == Params{}
}

// ParsedIntent is the unit of work produced fresh for every inbound
// message. It is never persisted beyond the current request except via the
// summarized fields the orchestrator copies into the conversation context.
type ParsedIntent struct {
	Kind       IntentKind
	Confidence float64
	Params     Params
	RawMessage string

	// NeedsMoreInfo is set when the intent is understood but a required
	// parameter is missing; FollowUpQuestion then carries the question to
	// send back instead of routing the intent.
	NeedsMoreInfo    bool
	FollowUpQuestion string
}

// Trusted reports whether the classification clears the confidence floor
// and names a real intent. Untrusted intents take the unknown-handler path.
func (p *ParsedIntent) Trusted() bool {
	return p != nil && p.Kind != IntentUnknown && p.Confidence >= ConfidenceFloor
}

// TurnSummary is the condensed prior-turn state handed to the hosted
// classifier for multi-turn disambiguation (e.g. the sender answering
// "page 200" after being asked what page they are on).
type TurnSummary struct {
	// LastIntent is the intent kind of the previous successful turn.
	LastIntent IntentKind
	// LastBookTitle is the title of the most recently referenced book.
	LastBookTitle string
	// PendingQuestion is a follow-up question booksms asked and has not
	// yet received an answer to.
	PendingQuestion string
}
