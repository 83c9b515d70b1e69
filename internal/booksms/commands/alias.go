package commands

import (
	"strings"

	"booksms/internal/booksms/nlp"
)

// AliasConfidence is assigned to legacy keyword commands. A bare keyword is
// unambiguous, so it ranks above any rule match.
const AliasConfidence = 0.9

// aliases maps legacy leading keywords to intents. These predate the
// natural-language pipeline and are kept so long-time senders' muscle
// memory keeps working.
var aliases = map[string]nlp.IntentKind{
	"help":    nlp.IntentHelp,
	"list":    nlp.IntentListBooks,
	"search":  nlp.IntentSearchBooks,
	"find":    nlp.IntentSearchBooks,
	"add":     nlp.IntentAddBook,
	"remove":  nlp.IntentRemoveBook,
	"stats":   nlp.IntentReadingStats,
	"reading": nlp.IntentCurrentlyReading,
	"random":  nlp.IntentRandomPick,
	"genres":  nlp.IntentListGenres,
	"goal":    nlp.IntentReadingGoal,
}

// ParseAlias recognizes legacy keyword commands: a known keyword as the
// entire message, or a known keyword followed by an argument ("ADD dune").
// Returns nil when the message is not an alias, which is the common case —
// ordinary sentences fall through to the classifiers.
func ParseAlias(text string) *nlp.ParsedIntent {
	trimmed := strings.TrimSpace(text)
	keyword, rest, _ := strings.Cut(trimmed, " ")

	kind, ok := aliases[strings.ToLower(keyword)]
	if !ok {
		return nil
	}

	// A keyword opening a longer sentence ("add some excitement to my
	// life") is not a command; aliases take at most one short argument.
	rest = strings.TrimSpace(rest)
	if len(strings.Fields(rest)) > 6 {
		return nil
	}

	p := &nlp.ParsedIntent{
		Kind:       kind,
		Confidence: AliasConfidence,
		RawMessage: text,
	}
	if rest == "" {
		return p
	}

	switch kind {
	case nlp.IntentSearchBooks:
		p.Params.Query = rest
	case nlp.IntentAddBook:
		if title, author, ok := strings.Cut(rest, " by "); ok {
			p.Params.Title = strings.TrimSpace(title)
			p.Params.Author = strings.TrimSpace(author)
		} else {
			p.Params.Title = rest
		}
	case nlp.IntentRemoveBook:
		p.Params.Title = rest
	default:
		// Argument makes no sense for this keyword; treat the whole
		// message as natural language instead.
		return nil
	}
	return p
}
