package testutil

import (
	"testing"

	chromem "github.com/philippgille/chromem-go"
)

// NewChromemDB returns a fresh in-memory chromem-go instance for isolated
// tests. Nothing to release; the instance is garbage collected.
func NewChromemDB(t *testing.T) *chromem.DB {
	t.Helper()
	return chromem.NewDB()
}
