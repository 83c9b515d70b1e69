// Package redact provides helpers for keeping subscriber data out of log
// output.
//
// # Privacy model
//
// Phone numbers identify real people, so they must never appear in full in
// log lines emitted by the service or in error messages returned to the
// carrier. Message bodies may contain anything the subscriber typed and are
// never logged verbatim; callers log the body length instead.
package redact

import "strings"

const placeholder = "[REDACTED]"

// phoneSuffixLen is how many trailing digits of a phone number survive
// masking. Four digits are enough to tell senders apart in logs without
// reconstructing the number.
const phoneSuffixLen = 4

// Phone masks a phone-number-like sender identifier, keeping only the last
// four characters. Short values are masked entirely.
//
// Example:
//
//	redact.Phone("+15551234567") → "…4567"
func Phone(sender string) string {
	sender = strings.TrimSpace(sender)
	if len(sender) <= phoneSuffixLen {
		return placeholder
	}
	return "…" + sender[len(sender)-phoneSuffixLen:]
}

// BodyLen returns the value loggable in place of a message body: its length
// in bytes. Defined as a function so call sites read as intent, not as a
// stray len().
func BodyLen(body string) int {
	return len(body)
}

// String replaces every occurrence of each sensitive value in s with
// [REDACTED]. Values shorter than 4 characters are skipped to avoid
// spurious redaction of common substrings.
func String(s string, sensitiveValues ...string) string {
	for _, v := range sensitiveValues {
		if len(v) < 4 {
			continue
		}
		s = strings.ReplaceAll(s, v, placeholder)
	}
	return s
}
