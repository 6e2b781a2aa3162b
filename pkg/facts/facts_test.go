package facts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatches(t *testing.T) {
	f := Fact{Content: "Loves traveling to Japan every spring", Category: "travel"}

	assert.True(t, Matches(f, []string{"travel"}))          // category hit
	assert.True(t, Matches(f, []string{"japan", "boxing"})) // content hit
	assert.True(t, Matches(f, []string{"JAPAN"}))           // case-insensitive
	assert.False(t, Matches(f, []string{"cooking"}))
	assert.False(t, Matches(f, nil))
}

func TestMatchesStripsPunctuation(t *testing.T) {
	f := Fact{Content: "Allergic to shellfish, especially shrimp."}
	assert.True(t, Matches(f, []string{"shrimp"}))
	assert.True(t, Matches(f, []string{"shellfish"}))
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"hello", "world"}, Tokenize("Hello, World!"))
	assert.Empty(t, Tokenize("..."))
	assert.Empty(t, Tokenize(""))
}
