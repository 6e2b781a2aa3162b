// Package facts defines the read-only external fact source consulted by the
// quality gate's contradiction check. Facts are plain {content, category}
// entries queried by keyword overlap, not by semantic match.
package facts

import (
	"context"
	"strings"
	"unicode"
)

// Fact is one reference entry from an external fact store.
type Fact struct {
	// Content is the fact text
	Content string `json:"content"`

	// Category is a coarse topical label ("travel", "diet", "work", ...)
	Category string `json:"category"`
}

// Source is a read-only provider of reference facts.
type Source interface {
	// Search returns the facts sharing at least one of the given keywords
	// in their content or category.
	Search(ctx context.Context, keywords []string) ([]Fact, error)
}

// Matches reports whether the fact shares a keyword with the given set. The
// comparison is token-based on the fact's content and category, lowercased
// with punctuation stripped.
func Matches(f Fact, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}

	tokens := make(map[string]struct{})
	for _, field := range []string{f.Content, f.Category} {
		for _, tok := range Tokenize(field) {
			tokens[tok] = struct{}{}
		}
	}

	for _, kw := range keywords {
		if _, ok := tokens[strings.ToLower(kw)]; ok {
			return true
		}
	}
	return false
}

// Tokenize lowercases s, strips punctuation, and splits on whitespace.
func Tokenize(s string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, strings.ToLower(s))
	return strings.Fields(cleaned)
}
