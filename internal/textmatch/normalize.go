package textmatch

import (
	"sort"
	"strings"
	"unicode"
)

// Normalize lowercases s, removes punctuation, collapses whitespace runs to a
// single space and trims the result. Only letters, digits, underscores and
// whitespace survive; combining marks are dropped like punctuation.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	stripped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			return r
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, strings.ToLower(s))
	return strings.Join(strings.Fields(stripped), " ")
}

// fullProcess prepares a string for scoring: non-ASCII runes are dropped,
// anything that is not an ASCII letter, digit or underscore becomes a space,
// and the result is lowercased and trimmed.
func fullProcess(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r > unicode.MaxASCII:
			continue
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteByte(' ')
		}
	}
	return strings.TrimSpace(b.String())
}

// sortTokens returns the whitespace separated tokens of s in lexical order,
// joined by single spaces.
func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
