// Package similarity implements the textual near-duplicate heuristics used by
// the quality gate. All functions are pure and never return errors: absence of
// a match is a normal false result.
package similarity

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultThreshold is the token-Jaccard similarity above which two texts are
// considered near-duplicates.
const DefaultThreshold = 0.7

// emailThresholdScale downscales the Jaccard threshold for email responses.
// Formal phrasing naturally echoes the incoming message, so emails tolerate
// less lexical overlap before being flagged.
const emailThresholdScale = 0.8

// openerPhrases are common formal email openers. A response that begins with
// one of these and then echoes the triggering message's opening words is
// flagged regardless of its Jaccard score.
var openerPhrases = []string{
	"thank you for",
	"thanks for",
	"i appreciate your",
	"i appreciate you",
	"regarding your",
	"in response to your",
	"it's great to hear",
}

// Options configures a near-duplicate comparison for one call site.
type Options struct {
	// Threshold overrides DefaultThreshold when > 0
	Threshold float64

	// Email scales the threshold down and enables the opener-echo check
	Email bool
}

// IsNearDuplicate reports whether b is a near-duplicate of a. The checks run
// in precedence order; the first positive wins. a is the earlier text (the
// prompt or triggering message), b the candidate response.
func IsNearDuplicate(a, b string, opts Options) bool {
	la := strings.ToLower(strings.TrimSpace(a))
	lb := strings.ToLower(strings.TrimSpace(b))

	// Exact match after lowercasing and trimming.
	if la == lb && la != "" {
		return true
	}

	// Containment: a multi-word a appearing verbatim inside b.
	if wordCount(la) > 2 && strings.Contains(lb, la) {
		return true
	}

	// Prefix match.
	if wordCount(la) > 1 && strings.HasPrefix(lb, la) {
		return true
	}

	// Boundary-chunk match: the opening and closing 20-character slices of a.
	if runes := []rune(la); len(runes) > 20 {
		head := string(runes[:20])
		tail := string(runes[len(runes)-20:])
		if strings.Contains(lb, head) || strings.Contains(lb, tail) {
			return true
		}
	}

	// Sentence containment.
	if sentenceOverlap(la, lb) {
		return true
	}

	// Email opener echo, independent of the Jaccard score.
	if opts.Email && openerEcho(la, lb) {
		return true
	}

	threshold := DefaultThreshold
	if opts.Threshold > 0 {
		threshold = opts.Threshold
	}
	if opts.Email {
		threshold *= emailThresholdScale
	}

	return JaccardSimilarity(a, b) > threshold
}

// JaccardSimilarity computes token-set Jaccard similarity in [0,1]. Tokens are
// whitespace-separated after punctuation stripping and lowercasing. If either
// text tokenizes to the empty set the result is 0.
func JaccardSimilarity(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	intersection := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection

	return float64(intersection) / float64(union)
}

// sentenceOverlap splits both texts on '.' and reports whether any long-enough
// sentence fragment of a is a substring of a sentence fragment of b.
func sentenceOverlap(a, b string) bool {
	fragsA := fragments(a, 15)
	if len(fragsA) == 0 {
		return false
	}
	fragsB := fragments(b, 10)

	for _, fa := range fragsA {
		for _, fb := range fragsB {
			if strings.Contains(fb, fa) {
				return true
			}
		}
	}
	return false
}

// fragments returns the trimmed '.'-separated pieces of s longer than min
// characters.
func fragments(s string, min int) []string {
	var out []string
	for _, frag := range strings.Split(s, ".") {
		frag = strings.TrimSpace(frag)
		if utf8.RuneCountInString(frag) > min {
			out = append(out, frag)
		}
	}
	return out
}

// openerEcho checks whether an email response opens with a stock phrase and
// then repeats the triggering message's opening words. Both inputs are
// expected lowercased.
func openerEcho(message, response string) bool {
	response = stripSubjectHeader(response)

	for _, opener := range openerPhrases {
		if !strings.HasPrefix(response, opener) {
			continue
		}

		rest := strings.TrimSpace(strings.TrimPrefix(response, opener))
		echo := firstWords(rest, 3)
		lead := firstWords(message, 3)
		if echo == "" || lead == "" {
			return false
		}
		if strings.Contains(echo, lead) || strings.Contains(lead, echo) {
			return true
		}
		return false
	}
	return false
}

// stripSubjectHeader removes a leading "subject: ...\n\n" block if present.
func stripSubjectHeader(s string) string {
	if !strings.HasPrefix(s, "subject:") {
		return s
	}
	if idx := strings.Index(s, "\n\n"); idx >= 0 {
		return strings.TrimSpace(s[idx+2:])
	}
	return s
}

// firstWords returns the first n whitespace-separated words of s joined by
// single spaces, with punctuation stripped.
func firstWords(s string, n int) string {
	words := strings.Fields(stripPunctuation(s))
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(stripPunctuation(strings.ToLower(s))) {
		set[tok] = struct{}{}
	}
	return set
}

func stripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, s)
}
