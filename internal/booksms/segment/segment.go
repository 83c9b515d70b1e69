// Package segment splits an arbitrary-length reply into carrier-safe SMS
// parts. The carrier enforces a hard per-message length; choosing where to
// break and how to label the parts is this package's job.
package segment

import (
	"fmt"
	"strings"
)

const (
	// DefaultMaxLen is the hard single-message limit.
	DefaultMaxLen = 160

	// markerReserve is the room held back for the " (i/N)" part marker
	// appended when a reply needs more than one message.
	markerReserve = 7
)

// Split breaks text into parts no longer than maxLen. Text that fits is
// returned unchanged as a single element. Longer text is broken preferring
// paragraph boundaries, then sentence boundaries, then word boundaries as
// a last resort; when more than one part results, every part carries a
// " (i/N)" marker, with content truncated rather than ever exceeding
// maxLen.
func Split(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{""}
	}
	if len(text) <= maxLen {
		return []string{text}
	}

	budget := maxLen - markerReserve
	if budget < 1 {
		budget = maxLen
	}

	var pieces []string
	for _, para := range splitParagraphs(text) {
		if len(para) <= budget {
			pieces = append(pieces, para)
			continue
		}
		pieces = append(pieces, splitSentences(para, budget)...)
	}
	pieces = packGreedy(pieces, budget)

	if len(pieces) == 1 {
		return pieces
	}

	out := make([]string, len(pieces))
	for i, p := range pieces {
		marker := fmt.Sprintf(" (%d/%d)", i+1, len(pieces))
		if len(p)+len(marker) > maxLen {
			p = strings.TrimRight(p[:maxLen-len(marker)], " ")
		}
		out[i] = p + marker
	}
	return out
}

// splitParagraphs breaks text on blank lines.
func splitParagraphs(text string) []string {
	var paras []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

// splitSentences breaks a paragraph on sentence terminators into pieces no
// longer than budget, recursing into word splitting for any single
// sentence that is itself too long.
func splitSentences(para string, budget int) []string {
	var pieces []string
	for _, s := range sentenceBoundaries(para) {
		if len(s) <= budget {
			pieces = append(pieces, s)
			continue
		}
		pieces = append(pieces, splitWords(s, budget)...)
	}
	return pieces
}

// sentenceBoundaries splits after '.', '!' or '?' followed by whitespace.
func sentenceBoundaries(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if (c == '.' || c == '!' || c == '?') && i+1 < len(text) && text[i+1] == ' ' {
			out = append(out, strings.TrimSpace(text[start:i+1]))
			start = i + 2
		}
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

// splitWords greedily packs words into pieces no longer than budget. A
// single word longer than the budget is hard-cut; there is no boundary
// left to prefer.
func splitWords(text string, budget int) []string {
	var pieces []string
	var cur strings.Builder
	for _, w := range strings.Fields(text) {
		for len(w) > budget {
			if cur.Len() > 0 {
				pieces = append(pieces, cur.String())
				cur.Reset()
			}
			pieces = append(pieces, w[:budget])
			w = w[budget:]
		}
		switch {
		case cur.Len() == 0:
			cur.WriteString(w)
		case cur.Len()+1+len(w) <= budget:
			cur.WriteByte(' ')
			cur.WriteString(w)
		default:
			pieces = append(pieces, cur.String())
			cur.Reset()
			cur.WriteString(w)
		}
	}
	if cur.Len() > 0 {
		pieces = append(pieces, cur.String())
	}
	return pieces
}

// packGreedy merges adjacent pieces back together while they still fit
// under budget, so a reply with many short paragraphs does not fan out
// into many near-empty messages.
func packGreedy(pieces []string, budget int) []string {
	var out []string
	var cur string
	for _, p := range pieces {
		switch {
		case cur == "":
			cur = p
		case len(cur)+1+len(p) <= budget:
			cur = cur + "\n" + p
		default:
			out = append(out, cur)
			cur = p
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}
