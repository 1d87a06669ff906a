package main

import "strings"

// NormalizeText folds full-width punctuation (U+FF01..U+FF5E) to its
// half-width form, maps the ideographic space to an ordinary space, drops the
// U+2E80..U+2FFF band entirely and strips surrounding whitespace.
//
// The second return value is false when there is no text at all: empty input,
// or input that strips down to nothing. Reporting strip-to-empty as absent is
// what makes the function idempotent.
func NormalizeText(text string) (string, bool) {
	if text == "" {
		return "", false
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r >= 0xFF01 && r <= 0xFF5E:
			b.WriteRune(r - 0xFEE0)
		case r == 0x3000:
			b.WriteRune(' ')
		case r >= 0x2E80 && r <= 0x2FFF:
			// Unwanted band, dropped.
		default:
			b.WriteRune(r)
		}
	}

	normalized := strings.TrimSpace(b.String())
	if normalized == "" {
		return "", false
	}
	return normalized, true
}
