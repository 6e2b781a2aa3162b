// Package static provides an in-memory facts.Source backed by a fixed slice.
// Useful for tests and for configurations that inline their reference facts.
package static

import (
	"context"

	"github.com/lexlapax/memvault/pkg/facts"
)

// Source is an immutable, in-memory fact source.
type Source struct {
	entries []facts.Fact
}

// NewSource creates a static source over the given facts. The slice is copied.
func NewSource(entries []facts.Fact) *Source {
	copied := make([]facts.Fact, len(entries))
	copy(copied, entries)
	return &Source{entries: copied}
}

// Search returns the facts sharing a keyword with the given set.
func (s *Source) Search(ctx context.Context, keywords []string) ([]facts.Fact, error) {
	var out []facts.Fact
	for _, f := range s.entries {
		if facts.Matches(f, keywords) {
			out = append(out, f)
		}
	}
	return out, nil
}
