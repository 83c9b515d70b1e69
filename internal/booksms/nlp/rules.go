package nlp

import (
	"regexp"
	"strconv"
	"strings"
)

// rule is one entry in the ordered rule table. The first rule whose pattern
// matches wins, so declaration order encodes classification priority:
// multi-criteria patterns (genre + rating) MUST precede the single-criterion
// patterns that would otherwise shadow them. Reordering this table changes
// classification results silently — rules_test.go pins the canonical
// ordering of the known ambiguous pairs.
type rule struct {
	name    string
	re      *regexp.Regexp
	kind    IntentKind
	extract func(m []string) Params
}

// rules is the ordered pattern table used by RuleClassifier.
var rules = []rule{
	// --- combined multi-criteria filters (most specific first) --------------
	{
		name: "genre+rating (genre first)",
		re:   regexp.MustCompile(`\b([a-z][a-z-]+)\s+books?\s+(?:rated\s+)?([1-5])\s*(?:\+|stars?|or\s+(?:better|higher|more))`),
		kind: IntentComplexFilter,
		extract: func(m []string) Params {
			return Params{Genre: m[1], MinRating: atoiClamped(m[2], 1, 5)}
		},
	},
	{
		name: "genre+rating (rating first)",
		re:   regexp.MustCompile(`\b([1-5])[\s-]star\s+([a-z][a-z-]+)\s+books?`),
		kind: IntentComplexFilter,
		extract: func(m []string) Params {
			return Params{Genre: m[2], MinRating: atoiClamped(m[1], 1, 5)}
		},
	},

	// --- single-criterion filters -------------------------------------------
	{
		name: "rating filter",
		re:   regexp.MustCompile(`\b(?:books?\s+)?rated\s+([1-5])\s*(?:\+|stars?|or\s+(?:better|higher|more))?`),
		kind: IntentRatingFilter,
		extract: func(m []string) Params {
			return Params{MinRating: atoiClamped(m[1], 1, 5)}
		},
	},
	{
		name: "star filter",
		re:   regexp.MustCompile(`\b([1-5])[\s-]star\s+books?`),
		kind: IntentRatingFilter,
		extract: func(m []string) Params {
			return Params{MinRating: atoiClamped(m[1], 1, 5)}
		},
	},
	{
		name: "author filter",
		re:   regexp.MustCompile(`\bbooks?\s+by\s+(.+)$`),
		kind: IntentAuthorFilter,
		extract: func(m []string) Params {
			return Params{Author: strings.TrimSpace(m[1])}
		},
	},

	// --- progress and lifecycle ---------------------------------------------
	{
		name: "progress page of title",
		re:   regexp.MustCompile(`\b(?:i'?m\s+)?on\s+page\s+(\d+)\s+of\s+(.+)$`),
		kind: IntentUpdateProgress,
		extract: func(m []string) Params {
			return Params{Page: atoi(m[1]), Title: strings.TrimSpace(m[2])}
		},
	},
	{
		name: "progress percent of title",
		re:   regexp.MustCompile(`\b(\d{1,3})\s*%\s+(?:through|into|done\s+with)\s+(.+)$`),
		kind: IntentUpdateProgress,
		extract: func(m []string) Params {
			return Params{Percent: atoiClamped(m[1], 0, 100), Title: strings.TrimSpace(m[2])}
		},
	},
	{
		name: "bare page number",
		re:   regexp.MustCompile(`^(?:i'?m\s+)?(?:on\s+)?page\s+(\d+)$`),
		kind: IntentUpdateProgress,
		extract: func(m []string) Params {
			return Params{Page: atoi(m[1])}
		},
	},
	{
		name: "recently finished",
		re:   regexp.MustCompile(`\brecent(?:ly)?\s+finished\b`),
		kind: IntentRecentlyFinished,
		extract: func([]string) Params { return Params{} },
	},
	{
		name: "finished list",
		re:   regexp.MustCompile(`\b(?:finished|completed)\s+books\b|\bbooks\s+i(?:'ve)?\s+(?:read|finished)\b`),
		kind: IntentFinishedBooks,
		extract: func([]string) Params { return Params{} },
	},
	{
		name: "finished title",
		re:   regexp.MustCompile(`\b(?:i\s+)?(?:just\s+)?finished\s+(?:reading\s+)?(.+)$`),
		kind: IntentFinishBook,
		extract: func(m []string) Params {
			return titleOrReference(m[1])
		},
	},
	{
		name: "started title",
		re:   regexp.MustCompile(`\b(?:i\s+)?(?:just\s+)?start(?:ed)?\s+(?:reading\s+)?(.+)$`),
		kind: IntentStartBook,
		extract: func(m []string) Params {
			return titleOrReference(m[1])
		},
	},
	{
		name: "rate title",
		re:   regexp.MustCompile(`\brate\s+(.+?)\s+([1-5])\s*(?:stars?|/5)?$`),
		kind: IntentRateBook,
		extract: func(m []string) Params {
			p := titleOrReference(m[1])
			p.Rating = atoiClamped(m[2], 1, 5)
			return p
		},
	},

	// --- collection mutations -----------------------------------------------
	{
		name: "add title by author",
		re:   regexp.MustCompile(`\badd\s+(.+?)\s+by\s+(.+)$`),
		kind: IntentAddBook,
		extract: func(m []string) Params {
			return Params{Title: strings.TrimSpace(m[1]), Author: strings.TrimSpace(m[2])}
		},
	},
	{
		name: "add title",
		re:   regexp.MustCompile(`\badd\s+(.+)$`),
		kind: IntentAddBook,
		extract: func(m []string) Params {
			return Params{Title: strings.TrimSpace(m[1])}
		},
	},
	{
		name: "wishlist",
		re:   regexp.MustCompile(`\bwishlist\s+(.+)$`),
		kind: IntentWishlistAdd,
		extract: func(m []string) Params {
			return Params{Title: strings.TrimSpace(m[1])}
		},
	},
	{
		name: "remove title",
		re:   regexp.MustCompile(`\b(?:remove|delete)\s+(.+)$`),
		kind: IntentRemoveBook,
		extract: func(m []string) Params {
			return titleOrReference(m[1])
		},
	},

	// --- queries -------------------------------------------------------------
	{
		name: "details about title",
		re:   regexp.MustCompile(`\b(?:tell\s+me\s+about|details\s+(?:on|about|for)|what\s+about)\s+(.+)$`),
		kind: IntentBookDetails,
		extract: func(m []string) Params {
			return titleOrReference(m[1])
		},
	},
	{
		name: "who wrote",
		re:   regexp.MustCompile(`\bwho\s+(?:wrote|is\s+the\s+author\s+of)\s+(.+)$`),
		kind: IntentBookDetails,
		extract: func(m []string) Params {
			return titleOrReference(m[1])
		},
	},
	{
		name: "currently reading",
		re:   regexp.MustCompile(`\b(?:what\s+am\s+i\s+reading|currently\s+reading|current\s+books?)\b`),
		kind: IntentCurrentlyReading,
		extract: func([]string) Params { return Params{} },
	},
	{
		name: "pages left",
		re:   regexp.MustCompile(`\b(?:pages?\s+left|how\s+much\s+(?:is\s+)?left|how\s+far)\b`),
		kind: IntentPagesLeft,
		extract: func([]string) Params { return Params{} },
	},
	{
		name: "stats",
		re:   regexp.MustCompile(`\b(?:reading\s+)?stat(?:s|istics)\b|\bhow\s+many\s+books\s+have\s+i\s+read\b`),
		kind: IntentReadingStats,
		extract: func([]string) Params { return Params{} },
	},
	{
		name: "book count",
		re:   regexp.MustCompile(`\bhow\s+many\s+books\b`),
		kind: IntentBookCount,
		extract: func([]string) Params { return Params{} },
	},
	{
		name: "recommend",
		re:   regexp.MustCompile(`\b(?:recommend|suggest(?:ion)?s?|what\s+should\s+i\s+read)\b`),
		kind: IntentRecommend,
		extract: func([]string) Params { return Params{} },
	},
	{
		name: "set goal",
		re:   regexp.MustCompile(`\b(?:set\s+(?:my\s+)?goal\s+(?:to\s+)?|goal\s+of\s+)(\d+)\b`),
		kind: IntentSetGoal,
		extract: func(m []string) Params {
			return Params{Goal: atoi(m[1])}
		},
	},
	{
		name: "reading goal",
		re:   regexp.MustCompile(`\b(?:reading\s+)?goal\b`),
		kind: IntentReadingGoal,
		extract: func([]string) Params { return Params{} },
	},
	{
		name: "top rated",
		re:   regexp.MustCompile(`\b(?:top|best|highest)[\s-]rated\b|\bbest\s+books\b|\bfavou?rites?\b`),
		kind: IntentTopRated,
		extract: func([]string) Params { return Params{} },
	},
	{
		name: "random pick",
		re:   regexp.MustCompile(`\b(?:random|surprise\s+me|pick\s+(?:one|a\s+book)\s+for\s+me)\b`),
		kind: IntentRandomPick,
		extract: func([]string) Params { return Params{} },
	},
	{
		name: "recently added",
		re:   regexp.MustCompile(`\b(?:recent(?:ly)?\s+added|new(?:est)?\s+books?)\b`),
		kind: IntentRecentlyAdded,
		extract: func([]string) Params { return Params{} },
	},
	{
		name: "unread",
		re:   regexp.MustCompile(`\b(?:unread|haven'?t\s+(?:read|started)|to[\s-]read|tbr)\b`),
		kind: IntentUnreadBooks,
		extract: func([]string) Params { return Params{} },
	},
	{
		name: "list genres",
		re:   regexp.MustCompile(`\b(?:list\s+|what\s+|which\s+)?genres\b`),
		kind: IntentListGenres,
		extract: func([]string) Params { return Params{} },
	},
	{
		name: "list books",
		re:   regexp.MustCompile(`\b(?:list|show)\s+(?:me\s+)?(?:all\s+|my\s+)?books\b|\bmy\s+library\b|\bmy\s+collection\b`),
		kind: IntentListBooks,
		extract: func([]string) Params { return Params{} },
	},
	{
		name: "genre filter",
		re:   regexp.MustCompile(`^(?:show\s+me\s+|list\s+|any\s+)?([a-z][a-z-]+(?:\s+fiction)?)\s+books?\??$`),
		kind: IntentGenreFilter,
		extract: func(m []string) Params {
			return Params{Genre: strings.TrimSpace(m[1])}
		},
	},
	{
		name: "search for",
		re:   regexp.MustCompile(`\b(?:search|find|look(?:ing)?\s+(?:for|up))\s+(?:for\s+)?(.+)$`),
		kind: IntentSearchBooks,
		extract: func(m []string) Params {
			return Params{Query: strings.TrimSpace(m[1])}
		},
	},

	// --- conversational ------------------------------------------------------
	{
		name: "greeting",
		re:   regexp.MustCompile(`^(?:hi|hello|hey|yo|howdy|good\s+(?:morning|afternoon|evening))[!.\s]*$`),
		kind: IntentGreeting,
		extract: func([]string) Params { return Params{} },
	},
	{
		name: "help",
		re:   regexp.MustCompile(`^(?:help|\?|what\s+can\s+you\s+do|commands)[!.\s]*$`),
		kind: IntentHelp,
		extract: func([]string) Params { return Params{} },
	},
}

// RuleClassifier maps raw text to an intent using the ordered rule table.
// It is deterministic and has no external dependencies, which is exactly
// why it is the fallback when the hosted provider is slow, wrong, or
// unavailable.
type RuleClassifier struct{}

// NewRuleClassifier returns a RuleClassifier. The rule table is shared and
// immutable, so the zero value works too; the constructor exists for
// symmetry with the hosted provider.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

// Classify matches text against the rule table and returns the first hit at
// RuleConfidence. When nothing matches, very short messages (at most three
// words, at least two characters) degrade to a generic search at
// ShortQueryConfidence — a two-word SMS is almost always a title or author.
// Returns nil when no interpretation exists; the caller maps nil to
// IntentUnknown.
func (c *RuleClassifier) Classify(text string) *ParsedIntent {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return nil
	}

	for _, r := range rules {
		m := r.re.FindStringSubmatch(normalized)
		if m == nil {
			continue
		}
		return &ParsedIntent{
			Kind:       r.kind,
			Confidence: RuleConfidence,
			Params:     r.extract(m),
			RawMessage: text,
		}
	}

	if words := strings.Fields(normalized); len(words) <= 3 && len(normalized) >= 2 {
		return &ParsedIntent{
			Kind:       IntentSearchBooks,
			Confidence: ShortQueryConfidence,
			Params:     Params{Query: strings.TrimSpace(text)},
			RawMessage: text,
		}
	}

	return nil
}

// pronouns are the reference tokens that resolve against the conversation
// context rather than naming a book outright.
var pronouns = map[string]struct{}{
	"it": {}, "this": {}, "that": {},
	"this book": {}, "that book": {}, "the book": {},
}

// isPronoun reports whether token is a context reference.
func isPronoun(token string) bool {
	_, ok := pronouns[strings.ToLower(strings.TrimSpace(token))]
	return ok
}

// trimReference strips trailing punctuation and surrounding whitespace from
// a captured title fragment.
func trimReference(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ".!?")
	return strings.TrimSpace(s)
}

// titleOrReference classifies a captured fragment as either an explicit
// title or a pronoun reference awaiting context resolution.
func titleOrReference(fragment string) Params {
	ref := trimReference(fragment)
	if isPronoun(ref) {
		return Params{Reference: ref}
	}
	return Params{Title: ref}
}

// atoi parses a non-negative integer, returning 0 on failure. The rule
// patterns only capture digit runs, so failure means overflow-scale input.
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// atoiClamped parses an integer and clamps it into [lo, hi].
func atoiClamped(s string, lo, hi int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return lo
	}
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
