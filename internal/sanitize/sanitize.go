// Package sanitize maps raw XML tag and attribute names to identifiers
// that are safe for unquoted use in SQL.
package sanitize

import "strings"

// MaxIdentifierLen is the PostgreSQL identifier length cap in bytes.
const MaxIdentifierLen = 63

// Name sanitizes a raw XML name into a SQL identifier: trims whitespace,
// replaces every character outside [A-Za-z0-9_] with an underscore,
// collapses underscore runs, prefixes an underscore when the first
// character is a digit, and lowercases the result.
//
// The result is either empty or matches [a-z_][a-z0-9_]*. Callers treat an
// empty result as a skippable element. Length truncation is a separate
// concern; see Truncate.
func Name(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s) + 1)
	lastUnderscore := false
	for _, r := range s {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
		if !ok {
			r = '_'
		}
		if r == '_' {
			if lastUnderscore {
				continue
			}
			lastUnderscore = true
		} else {
			lastUnderscore = false
		}
		b.WriteRune(r)
	}

	out := b.String()
	if out == "" {
		return ""
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return strings.ToLower(out)
}

// Truncate caps an identifier at MaxIdentifierLen bytes. Sanitized names
// are single-byte characters, so byte truncation never splits a rune.
func Truncate(name string) string {
	if len(name) > MaxIdentifierLen {
		return name[:MaxIdentifierLen]
	}
	return name
}
