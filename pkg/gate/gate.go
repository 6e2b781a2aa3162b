// Package gate implements the quality gate deciding whether a candidate
// record is fit to enter a memory store, and whether already stored records
// should be retired. It composes the similarity heuristics, the temporal
// tagger, static lexicons, and an external fact source.
package gate

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lexlapax/memvault/pkg/facts"
	"github.com/lexlapax/memvault/pkg/log"
	"github.com/lexlapax/memvault/pkg/memory"
	"github.com/lexlapax/memvault/pkg/similarity"
	"github.com/lexlapax/memvault/pkg/temporal"
)

// Reason explains why a record was rejected or quarantined.
type Reason string

// Rejection reasons, in evaluation order.
const (
	ReasonTooShort              Reason = "too_short"
	ReasonLexiconMatch          Reason = "lexicon_match"
	ReasonNearDuplicateOfPrompt Reason = "near_duplicate_of_prompt"
	ReasonContradictsKnownFact  Reason = "contradicts_known_fact"
	ReasonSelfReferentialMeta   Reason = "self_referential_meta"
)

// Verdict is the outcome class of an evaluation.
type Verdict string

const (
	// Accept admits the record into the store
	Accept Verdict = "accept"

	// Reject refuses the record; nothing is stored
	Reject Verdict = "reject"

	// Quarantine keeps an already stored record but flags it as a bad
	// example, preserving an audit trail before a human-reviewed purge
	Quarantine Verdict = "quarantine"
)

// Decision is the result of evaluating one record.
type Decision struct {
	Verdict Verdict

	// Reason is set when Verdict is Reject or Quarantine
	Reason Reason
}

// Context carries the evaluation surroundings for one call.
type Context struct {
	// PromptText is the message this record was generated in response to,
	// if any
	PromptText string

	// PromptFor, when set, resolves the prompt per record during batch
	// evaluation and takes precedence over PromptText
	PromptFor func(memory.Record) string

	// Existing marks records that are already stored (batch cleanup).
	// Near-duplicate and self-referential failures then quarantine
	// instead of rejecting outright.
	Existing bool

	// Now is the reference instant for temporal corrections; zero means
	// time.Now
	Now time.Time
}

func (c Context) promptFor(rec memory.Record) string {
	if c.PromptFor != nil {
		return c.PromptFor(rec)
	}
	return c.PromptText
}

func (c Context) reference() time.Time {
	if c.Now.IsZero() {
		return time.Now().UTC()
	}
	return c.Now
}

// Config holds the gate's tunable policy knobs.
type Config struct {
	// MinLength is the minimum trimmed text length; shorter records carry
	// negligible signal
	MinLength int `yaml:"min_length"`

	// LowValueLexicon lists texts rejected on exact (trimmed, lowercased)
	// match: pure greetings, single-word acknowledgements
	LowValueLexicon []string `yaml:"low_value_lexicon"`

	// ContradictionLexicon lists phrases that, combined with a topically
	// overlapping reference fact, indicate the record contradicts what is
	// already known
	ContradictionLexicon []string `yaml:"contradiction_lexicon"`
}

// DefaultConfig returns the default gate policy.
func DefaultConfig() Config {
	return Config{
		MinLength: 10,
		LowValueLexicon: []string{
			"hi", "hello", "hey", "thanks", "thank you", "ok", "okay",
			"sure", "yes", "no", "got it", "sounds good", "good morning",
			"good night", "lol", "haha",
		},
		ContradictionLexicon: []string{
			"never traveled",
			"never been to",
			"don't eat meat",
			"have no pets",
			"have no siblings",
			"never married",
			"don't drink coffee",
		},
	}
}

// selfReferentialPatterns match a generator describing itself as an
// assistant or model rather than speaking in character.
var selfReferentialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bas an ai\b`),
	regexp.MustCompile(`(?i)\bas a language model\b`),
	regexp.MustCompile(`(?i)\bas an assistant\b`),
	regexp.MustCompile(`(?i)\bi am an? (ai|artificial intelligence|language model|assistant)\b`),
	regexp.MustCompile(`(?i)\bi'?m an? (ai|artificial intelligence|language model|assistant)\b`),
	regexp.MustCompile(`(?i)\bi don'?t have personal (experiences|feelings|opinions|preferences)\b`),
	regexp.MustCompile(`(?i)\bmy training data\b`),
	regexp.MustCompile(`(?i)\bi cannot browse\b`),
}

// stopwords are excluded when deriving topical keywords from a
// contradiction phrase.
var stopwords = map[string]struct{}{
	"i": {}, "a": {}, "an": {}, "the": {}, "to": {}, "of": {}, "in": {},
	"on": {}, "at": {}, "am": {}, "is": {}, "are": {}, "been": {},
	"be": {}, "have": {}, "has": {}, "had": {}, "do": {}, "dont": {},
	"don't": {}, "not": {}, "no": {}, "any": {}, "never": {}, "my": {},
	"me": {}, "ever": {},
}

// Gate evaluates records against the configured policy. It is stateless
// beyond its configuration and safe for concurrent use.
type Gate struct {
	cfg    Config
	source facts.Source
}

// NewGate creates a gate. source may be nil, in which case the
// contradiction check is skipped.
func NewGate(cfg Config, source facts.Source) *Gate {
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultConfig().MinLength
	}
	return &Gate{cfg: cfg, source: source}
}

// EvaluateForIngestion applies the rejection checks in order,
// short-circuiting on the first failure. An error is only returned when
// the external fact source fails; heuristic misses are normal outcomes.
func (g *Gate) EvaluateForIngestion(ctx context.Context, rec memory.Record, gctx Context) (Decision, error) {
	trimmed := strings.TrimSpace(rec.Text)

	// Length is measured in characters, not bytes, so short non-ASCII
	// texts are still caught.
	if utf8.RuneCountInString(trimmed) < g.cfg.MinLength {
		return Decision{Verdict: Reject, Reason: ReasonTooShort}, nil
	}

	lowered := strings.ToLower(trimmed)
	for _, entry := range g.cfg.LowValueLexicon {
		if lowered == strings.ToLower(strings.TrimSpace(entry)) {
			return Decision{Verdict: Reject, Reason: ReasonLexiconMatch}, nil
		}
	}

	if prompt := gctx.promptFor(rec); prompt != "" {
		opts := similarity.Options{Email: rec.IsEmail()}
		if similarity.IsNearDuplicate(prompt, rec.Text, opts) {
			return g.flag(gctx, ReasonNearDuplicateOfPrompt), nil
		}
	}

	contradicts, err := g.contradictsKnownFact(ctx, lowered)
	if err != nil {
		return Decision{}, fmt.Errorf("contradiction check failed: %w", err)
	}
	if contradicts {
		return Decision{Verdict: Reject, Reason: ReasonContradictsKnownFact}, nil
	}

	for _, pattern := range selfReferentialPatterns {
		if pattern.MatchString(rec.Text) {
			return g.flag(gctx, ReasonSelfReferentialMeta), nil
		}
	}

	return Decision{Verdict: Accept}, nil
}

// flag maps a near-duplicate or self-referential failure to Quarantine for
// already stored records and Reject for fresh candidates.
func (g *Gate) flag(gctx Context, reason Reason) Decision {
	if gctx.Existing {
		return Decision{Verdict: Quarantine, Reason: reason}
	}
	return Decision{Verdict: Reject, Reason: reason}
}

// contradictsKnownFact reports whether the text contains a contradiction
// phrase that topically overlaps at least one reference fact. The keyword
// overlap is deliberately coarse: it only prevents retiring unrelated
// mentions of the same trigger words, it is not a semantic entailment check.
func (g *Gate) contradictsKnownFact(ctx context.Context, lowered string) (bool, error) {
	if g.source == nil {
		return false, nil
	}

	for _, phrase := range g.cfg.ContradictionLexicon {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase == "" || !strings.Contains(lowered, phrase) {
			continue
		}

		keywords := topicalKeywords(phrase)
		if len(keywords) == 0 {
			continue
		}

		matched, err := g.source.Search(ctx, keywords)
		if err != nil {
			return false, err
		}
		if len(matched) > 0 {
			log.DebugContext(ctx, "contradiction phrase overlaps known facts",
				"phrase", phrase, "facts", len(matched))
			return true, nil
		}
	}

	return false, nil
}

// topicalKeywords derives the content words of a contradiction phrase.
func topicalKeywords(phrase string) []string {
	var out []string
	for _, tok := range facts.Tokenize(phrase) {
		if _, ok := stopwords[tok]; ok {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// NormalizeFact corrects the leading Past/Future tag of a personal-info
// record when the date mentioned in its text disagrees with the tag. The
// boolean result reports whether the record was modified.
func (g *Gate) NormalizeFact(rec memory.Record, reference time.Time) (memory.Record, bool) {
	if rec.Kind != memory.KindPersonalInfo {
		return rec, false
	}

	text, changed := temporal.RetagFact(rec.Text, reference)
	if !changed {
		return rec, false
	}

	rec.Text = text
	rec.UpdatedAt = time.Now().UTC()
	return rec, true
}

// BatchResult partitions records after a batch evaluation. Quarantined
// records are kept but flagged; conversion to deletion is a separate,
// explicitly invoked purge step.
type BatchResult struct {
	ToKeep       []memory.Record
	ToQuarantine []memory.Record
	ToDelete     []memory.Record

	// Retagged counts kept records whose temporal tag was corrected
	Retagged int
}

// EvaluateBatch drives the cleanup tools over already stored records.
// Near-duplicate and self-referential hits land in ToQuarantine; hard
// failures (too short, lexicon, contradiction) land in ToDelete; everything
// else is kept, with fact tags corrected where a date disagrees.
func (g *Gate) EvaluateBatch(ctx context.Context, records []memory.Record, gctx Context) (BatchResult, error) {
	gctx.Existing = true
	reference := gctx.reference()

	var result BatchResult
	for _, rec := range records {
		decision, err := g.EvaluateForIngestion(ctx, rec, gctx)
		if err != nil {
			return BatchResult{}, err
		}

		switch decision.Verdict {
		case Quarantine:
			result.ToQuarantine = append(result.ToQuarantine, rec)
		case Reject:
			result.ToDelete = append(result.ToDelete, rec)
		default:
			kept, changed := g.NormalizeFact(rec, reference)
			if changed {
				result.Retagged++
			}
			result.ToKeep = append(result.ToKeep, kept)
		}
	}

	log.DebugContext(ctx, "batch evaluation complete",
		"total", len(records),
		"keep", len(result.ToKeep),
		"quarantine", len(result.ToQuarantine),
		"delete", len(result.ToDelete),
		"retagged", result.Retagged,
	)

	return result, nil
}
