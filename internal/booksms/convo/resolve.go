package convo

import "strings"

// ordinalTokens maps the accepted ordinal words and digits to a 1-based
// list index. Only 1–5 are supported: a result page never shows more than
// five books, so higher ordinals cannot refer to anything on screen.
var ordinalTokens = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"1": 1, "2": 2, "3": 3, "4": 4, "5": 5,
	"1st": 1, "2nd": 2, "3rd": 3, "4th": 4, "5th": 5,
}

// pronounTokens are the references that mean "the book we were just
// talking about".
var pronounTokens = map[string]struct{}{
	"it": {}, "this": {}, "that": {},
	"this book": {}, "that book": {}, "the book": {},
}

// OrdinalIndex parses token as an ordinal reference, returning the 1-based
// index and whether the token is an ordinal at all. Filler is tolerated:
// "the second one" and "2nd" both resolve to 2.
func OrdinalIndex(token string) (int, bool) {
	t := basicNormalize(token)
	t = strings.TrimPrefix(t, "the ")
	t = strings.TrimSuffix(t, " one")
	t = strings.TrimSuffix(t, " book")
	n, ok := ordinalTokens[strings.TrimSpace(t)]
	return n, ok
}

// IsPronoun reports whether token refers to the last queried book.
func IsPronoun(token string) bool {
	_, ok := pronounTokens[basicNormalize(token)]
	return ok
}

// Resolve is a pure lookup mapping a reference token to a book from the
// conversation context. Ordinals resolve against the last shown list;
// pronouns resolve to the last queried book. Returns nil when the token is
// not a reference or the context has nothing for it to point at.
//
// Token classification (which messages count as references) happens
// upstream in the orchestrator's shortcut patterns — by the time Resolve
// runs, token is already known to be a candidate reference.
func Resolve(c *Context, token string) *BookRef {
	if c == nil {
		return nil
	}

	if idx, ok := OrdinalIndex(token); ok {
		if idx < 1 || idx > len(c.LastList) {
			return nil
		}
		b := c.LastList[idx-1]
		return &b
	}

	if IsPronoun(token) {
		if c.LastBook == nil {
			return nil
		}
		b := *c.LastBook
		return &b
	}

	return nil
}

// basicNormalize lowercases and strips surrounding whitespace and trailing
// punctuation.
func basicNormalize(token string) string {
	t := strings.ToLower(strings.TrimSpace(token))
	return strings.TrimRight(t, ".!?")
}
