package expr

import (
	"fmt"
	"strings"
)

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

func isStructural(c byte) bool {
	return c == '[' || c == ']' || c == '(' || c == ')'
}

// precheck validates bracket balance and operator/bracket adjacency outside
// quoted regions. It only counts; ordering mistakes are left to the parser.
func precheck(s string) error {
	var squareOpen, squareClose, roundOpen, roundClose int
	inQuote := false
	quoteStart := -1

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' {
			i++
			continue
		}
		if c == '"' {
			inQuote = !inQuote
			quoteStart = i
			continue
		}
		if inQuote {
			continue
		}
		switch c {
		case '[':
			squareOpen++
		case ']':
			squareClose++
		case '(':
			roundOpen++
		case ')':
			roundClose++
		case '&', '|':
			end := i + 1
			if end < len(s) && s[end] == c {
				end++
			}
			j := end
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j >= len(s) || s[j] != '[' {
				return &FormatError{
					Reason: fmt.Sprintf("operator %q must be followed by '['", s[i:end]),
					Pos:    i,
				}
			}
			i = end - 1
		}
	}

	if inQuote {
		return &FormatError{Reason: "unterminated quoted argument", Pos: quoteStart}
	}
	if squareOpen != squareClose {
		return &FormatError{
			Reason: fmt.Sprintf("unbalanced brackets: %d '[' vs %d ']'", squareOpen, squareClose),
			Pos:    -1,
		}
	}
	if roundOpen != roundClose {
		return &FormatError{
			Reason: fmt.Sprintf("unbalanced parentheses: %d '(' vs %d ')'", roundOpen, roundClose),
			Pos:    -1,
		}
	}
	return nil
}

// normalize puts single spaces around structural characters and collapses
// whitespace runs outside quoted regions. Leading and trailing space is dropped.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/2)

	pending := false
	emit := func(c byte) {
		if pending && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pending = false
		b.WriteByte(c)
	}

	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			emit(c)
			if i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			}
		case c == '"':
			emit(c)
			inQuote = !inQuote
		case inQuote:
			emit(c)
		case isSpace(c):
			pending = true
		case isStructural(c):
			pending = true
			emit(c)
			pending = true
		default:
			emit(c)
		}
	}
	return b.String()
}
