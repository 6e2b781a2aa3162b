package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExactMatch(t *testing.T) {
	assert.True(t, IsNearDuplicate("Hello World", "  hello world  ", Options{}))
	assert.False(t, IsNearDuplicate("hello world", "goodbye world everyone now", Options{}))
}

func TestContainment(t *testing.T) {
	// a has more than 2 words and appears verbatim inside b
	assert.True(t, IsNearDuplicate(
		"the quarterly budget review",
		"I finished the quarterly budget review yesterday afternoon",
		Options{},
	))

	// a with only 2 words is not containment-matched
	assert.False(t, IsNearDuplicate(
		"budget review",
		"I finished the thing called budget review yesterday",
		Options{},
	))
}

func TestPrefixMatch(t *testing.T) {
	assert.True(t, IsNearDuplicate(
		"let me know",
		"let me know when you land, and call me after",
		Options{},
	))

	// single-word prefixes do not count
	assert.False(t, IsNearDuplicate(
		"letters",
		"letters arrived from the agency on tuesday",
		Options{},
	))
}

func TestBoundaryChunkMatch(t *testing.T) {
	a := "planning the team offsite for early october near the coast"
	// b repeats a's first 20 characters somewhere in the middle
	b := "she mentioned planning the team offsite again in her note"
	assert.True(t, IsNearDuplicate(a, b, Options{}))

	// b repeats a's last 20 characters
	c := "somewhere quiet early october near the coast she said"
	assert.True(t, IsNearDuplicate(a, c, Options{}))
}

func TestBoundaryChunkMultibyteRunes(t *testing.T) {
	// The 20th character lands inside a multi-byte rune; chunks are cut on
	// character boundaries, so the echo is still caught.
	a := "café rendezvous près du vieux port"
	b := "they suggested café rendezvous près for lunch"
	assert.True(t, IsNearDuplicate(a, b, Options{}))
}

func TestSentenceContainment(t *testing.T) {
	a := "We should move. The contract expires in March next year. Call them."
	b := "He told me twice that the contract expires in March next year, which worries me. Nothing else."
	assert.True(t, IsNearDuplicate(a, b, Options{}))
}

func TestJaccardThresholdBoundary(t *testing.T) {
	// 7 shared tokens, 10 in the union: similarity is exactly 0.70,
	// which must NOT be flagged (strict > comparison).
	a := "alpha bravo charlie delta echo foxtrot golf hotel india"
	b := "golf foxtrot echo delta charlie bravo alpha juliet"
	assert.InDelta(t, 0.70, JaccardSimilarity(a, b), 1e-9)
	assert.False(t, IsNearDuplicate(a, b, Options{}))

	// 5 shared tokens, 7 in the union: ~0.714 IS flagged.
	c := "alpha bravo charlie delta echo hotel"
	d := "echo delta charlie bravo alpha juliet"
	assert.Greater(t, JaccardSimilarity(c, d), 0.70)
	assert.True(t, IsNearDuplicate(c, d, Options{}))
}

func TestJaccardEmailThreshold(t *testing.T) {
	// 4 shared tokens, 7 in the union: ~0.571, above the scaled email
	// threshold of 0.56 but below the default 0.70.
	a := "alpha bravo charlie delta echo foxtrot"
	b := "delta charlie bravo alpha golf"
	sim := JaccardSimilarity(a, b)
	assert.Greater(t, sim, 0.56)
	assert.Less(t, sim, 0.70)
	assert.True(t, IsNearDuplicate(a, b, Options{Email: true}))
	assert.False(t, IsNearDuplicate(a, b, Options{}))

	// 6 shared tokens, 11 in the union: ~0.545, below even the email
	// threshold.
	c := "alpha bravo charlie delta echo foxtrot golf hotel india"
	d := "foxtrot echo delta charlie bravo alpha juliet kilo"
	assert.Less(t, JaccardSimilarity(c, d), 0.56)
	assert.False(t, IsNearDuplicate(c, d, Options{Email: true}))
}

func TestCustomThreshold(t *testing.T) {
	a := "alpha bravo charlie delta echo foxtrot golf hotel india"
	b := "golf foxtrot echo delta charlie bravo alpha juliet"
	// exactly 0.70; a lower configured threshold flags it
	assert.True(t, IsNearDuplicate(a, b, Options{Threshold: 0.5}))
}

func TestEmptyTokenSets(t *testing.T) {
	assert.Equal(t, 0.0, JaccardSimilarity("", "some words here"))
	assert.Equal(t, 0.0, JaccardSimilarity("...", "!!!"))
	assert.False(t, IsNearDuplicate("", "", Options{}))
	assert.False(t, IsNearDuplicate("...", "some words entirely unlike", Options{}))
}

func TestJaccardIgnoresPunctuationAndCase(t *testing.T) {
	assert.InDelta(t, 1.0, JaccardSimilarity("Hello, world!", "hello world"), 1e-9)
}

func TestEmailOpenerEcho(t *testing.T) {
	message := "Could you send the signed lease agreement before Friday?"
	response := "Thank you for could you send along, I will get to it as time permits, weather and scheduling allowing, best regards from me"

	// opener followed by an echo of the message's first words is flagged
	// even though lexical overlap is low
	assert.Less(t, JaccardSimilarity(message, response), 0.56)
	assert.True(t, IsNearDuplicate(message, response, Options{Email: true}))

	// same response on a non-email channel is not opener-checked
	assert.False(t, IsNearDuplicate(message, response, Options{}))
}

func TestEmailOpenerEchoWithSubjectHeader(t *testing.T) {
	message := "Please confirm the new shipping address for the warehouse move"
	response := "Subject: Re: warehouse\n\nThank you for please confirm the timeline, consider everything entirely handled on our side going forward, speak soon"

	assert.True(t, IsNearDuplicate(message, response, Options{Email: true}))
}

func TestEmailOpenerNoEcho(t *testing.T) {
	message := "Please confirm the new shipping address for the warehouse move"
	response := "Thank you for waiting patiently, everything differs here completely, nothing matches whatsoever, truly unrelated reply body"

	assert.False(t, IsNearDuplicate(message, response, Options{Email: true}))
}
