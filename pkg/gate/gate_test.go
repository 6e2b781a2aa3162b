package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lexlapax/memvault/pkg/facts"
	"github.com/lexlapax/memvault/pkg/facts/adapters/static"
	"github.com/lexlapax/memvault/pkg/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSource struct{}

func (failingSource) Search(ctx context.Context, keywords []string) ([]facts.Fact, error) {
	return nil, errors.New("fact store unreachable")
}

func newTestGate(t *testing.T, entries []facts.Fact) *Gate {
	t.Helper()
	return NewGate(DefaultConfig(), static.NewSource(entries))
}

func TestRejectTooShort(t *testing.T) {
	g := newTestGate(t, nil)

	decision, err := g.EvaluateForIngestion(context.Background(),
		memory.NewMessage("hi there", memory.Metadata{}), Context{})
	require.NoError(t, err)
	assert.Equal(t, Reject, decision.Verdict)
	assert.Equal(t, ReasonTooShort, decision.Reason)
}

func TestRejectTooShortCountsCharacters(t *testing.T) {
	g := newTestGate(t, nil)

	// Five characters across fifteen bytes; length is measured in
	// characters, so this is still too short.
	decision, err := g.EvaluateForIngestion(context.Background(),
		memory.NewMessage("こんにちは", memory.Metadata{}), Context{})
	require.NoError(t, err)
	assert.Equal(t, Reject, decision.Verdict)
	assert.Equal(t, ReasonTooShort, decision.Reason)
}

func TestRejectLexiconMatch(t *testing.T) {
	g := newTestGate(t, nil)

	// exact match after trimming and lowercasing
	decision, err := g.EvaluateForIngestion(context.Background(),
		memory.NewMessage("  Good Morning  ", memory.Metadata{}), Context{})
	require.NoError(t, err)
	assert.Equal(t, Reject, decision.Verdict)
	assert.Equal(t, ReasonLexiconMatch, decision.Reason)

	// a lexicon entry embedded in a longer text is not an exact match
	decision, err = g.EvaluateForIngestion(context.Background(),
		memory.NewMessage("good morning, I rescheduled the dentist to Thursday", memory.Metadata{}), Context{})
	require.NoError(t, err)
	assert.Equal(t, Accept, decision.Verdict)
}

func TestRejectNearDuplicateOfPrompt(t *testing.T) {
	g := newTestGate(t, nil)
	prompt := "What time does the pharmacy on Main Street close tonight?"

	// identical to the prompt text
	decision, err := g.EvaluateForIngestion(context.Background(),
		memory.NewMessage(prompt, memory.Metadata{}), Context{PromptText: prompt})
	require.NoError(t, err)
	assert.Equal(t, Reject, decision.Verdict)
	assert.Equal(t, ReasonNearDuplicateOfPrompt, decision.Reason)

	// same failure on an already stored record quarantines instead
	decision, err = g.EvaluateForIngestion(context.Background(),
		memory.NewMessage(prompt, memory.Metadata{}), Context{PromptText: prompt, Existing: true})
	require.NoError(t, err)
	assert.Equal(t, Quarantine, decision.Verdict)
	assert.Equal(t, ReasonNearDuplicateOfPrompt, decision.Reason)
}

func TestRejectContradictsKnownFact(t *testing.T) {
	g := newTestGate(t, []facts.Fact{
		{Content: "Traveled to Japan and Korea in 2019", Category: "travel"},
	})

	decision, err := g.EvaluateForIngestion(context.Background(),
		memory.NewMessage("I have never traveled anywhere outside my hometown", memory.Metadata{}),
		Context{})
	require.NoError(t, err)
	assert.Equal(t, Reject, decision.Verdict)
	assert.Equal(t, ReasonContradictsKnownFact, decision.Reason)
}

func TestContradictionRequiresTopicalOverlap(t *testing.T) {
	// a trigger phrase alone is not enough: no stored fact shares a
	// keyword with it, so unrelated mentions survive
	g := newTestGate(t, []facts.Fact{
		{Content: "Plays chess on Sunday evenings", Category: "hobbies"},
	})

	decision, err := g.EvaluateForIngestion(context.Background(),
		memory.NewMessage("I have never traveled anywhere outside my hometown", memory.Metadata{}),
		Context{})
	require.NoError(t, err)
	assert.Equal(t, Accept, decision.Verdict)
}

func TestContradictionSourceError(t *testing.T) {
	g := NewGate(DefaultConfig(), failingSource{})

	_, err := g.EvaluateForIngestion(context.Background(),
		memory.NewMessage("I have never traveled anywhere outside my hometown", memory.Metadata{}),
		Context{})
	assert.Error(t, err)
}

func TestRejectSelfReferentialMeta(t *testing.T) {
	g := newTestGate(t, nil)

	texts := []string{
		"As an AI assistant, I cannot really taste food",
		"I'm a language model and don't have personal preferences",
		"Based on my training data, that restaurant closed",
	}

	for _, text := range texts {
		decision, err := g.EvaluateForIngestion(context.Background(),
			memory.NewMessage(text, memory.Metadata{}), Context{})
		require.NoError(t, err)
		assert.Equal(t, Reject, decision.Verdict, text)
		assert.Equal(t, ReasonSelfReferentialMeta, decision.Reason, text)
	}

	// quarantined rather than rejected for stored records
	decision, err := g.EvaluateForIngestion(context.Background(),
		memory.NewMessage(texts[0], memory.Metadata{}), Context{Existing: true})
	require.NoError(t, err)
	assert.Equal(t, Quarantine, decision.Verdict)
}

func TestAccept(t *testing.T) {
	g := newTestGate(t, nil)

	decision, err := g.EvaluateForIngestion(context.Background(),
		memory.NewMessage("The lease renewal paperwork is due on the 15th", memory.Metadata{}),
		Context{PromptText: "Did you hear back from the landlord?"})
	require.NoError(t, err)
	assert.Equal(t, Accept, decision.Verdict)
	assert.Empty(t, decision.Reason)
}

func TestNormalizeFact(t *testing.T) {
	g := newTestGate(t, nil)
	ref := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	rec := memory.NewPersonalInfo("Future trip to Lebanon on January 23, 2025", memory.Metadata{})
	fixed, changed := g.NormalizeFact(rec, ref)
	assert.True(t, changed)
	assert.Equal(t, "Past trip to Lebanon on January 23, 2025", fixed.Text)

	// messages are never retagged
	msg := memory.NewMessage("Future trip to Lebanon on January 23, 2025", memory.Metadata{})
	_, changed = g.NormalizeFact(msg, ref)
	assert.False(t, changed)
}

func TestEvaluateBatch(t *testing.T) {
	g := newTestGate(t, nil)
	ref := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	prompt := "Can you pick up the dry cleaning before six?"

	records := []memory.Record{
		memory.NewMessage("Sure, I'll grab the dry cleaning on my way home tonight", memory.Metadata{}),
		memory.NewMessage(prompt, memory.Metadata{}),
		memory.NewMessage("As an AI, I cannot pick things up", memory.Metadata{}),
		memory.NewMessage("ok", memory.Metadata{}),
		memory.NewPersonalInfo("Future trip to Lebanon on January 23, 2025", memory.Metadata{}),
	}

	result, err := g.EvaluateBatch(context.Background(), records, Context{
		PromptText: prompt,
		Now:        ref,
	})
	require.NoError(t, err)

	assert.Len(t, result.ToKeep, 2)
	assert.Len(t, result.ToQuarantine, 2)
	assert.Len(t, result.ToDelete, 1)
	assert.Equal(t, 1, result.Retagged)

	// the fact in ToKeep carries the corrected tag
	var foundRetagged bool
	for _, rec := range result.ToKeep {
		if rec.Kind == memory.KindPersonalInfo {
			assert.Equal(t, "Past trip to Lebanon on January 23, 2025", rec.Text)
			foundRetagged = true
		}
	}
	assert.True(t, foundRetagged)
}
