package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExtractDate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want time.Time
		ok   bool
	}{
		{
			name: "full month name",
			text: "Trip to Lebanon on January 23, 2025 with family",
			want: date(2025, time.January, 23),
			ok:   true,
		},
		{
			name: "abbreviated month name",
			text: "meeting moved to Sep 4, 2024",
			want: date(2024, time.September, 4),
			ok:   true,
		},
		{
			name: "ordinal suffix stripped",
			text: "the wedding is on June 3rd, 2026",
			want: date(2026, time.June, 3),
			ok:   true,
		},
		{
			name: "no comma before year",
			text: "started the job on March 12 2020",
			want: date(2020, time.March, 12),
			ok:   true,
		},
		{
			name: "slash numeric format",
			text: "flight booked for 07/19/2025 departing early",
			want: date(2025, time.July, 19),
			ok:   true,
		},
		{
			name: "dash numeric format",
			text: "contract ends 11-30-2024",
			want: date(2024, time.November, 30),
			ok:   true,
		},
		{
			name: "range resolves to end date",
			text: "Conference from June 3 to June 9, 2025 in Berlin",
			want: date(2025, time.June, 9),
			ok:   true,
		},
		{
			name: "range with ordinals",
			text: "Vacation May 1st to May 14th, 2025",
			want: date(2025, time.May, 14),
			ok:   true,
		},
		{
			name: "named format preferred over numeric",
			text: "rescheduled from 01/02/2024 to February 10, 2024",
			want: date(2024, time.February, 10),
			ok:   true,
		},
		{
			name: "no date",
			text: "loves hiking and strong coffee",
			ok:   false,
		},
		{
			name: "invalid day falls through",
			text: "weird note about January 45, 2025",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractDate(tt.text)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	ref := date(2025, time.June, 1)

	assert.Equal(t, Past, Classify(date(2025, time.January, 23), ref))
	assert.Equal(t, Future, Classify(date(2025, time.December, 25), ref))

	// reference instant itself is not in the past
	assert.Equal(t, Future, Classify(ref, ref))
}

func TestRetagFact(t *testing.T) {
	ref := date(2025, time.June, 1)

	text, changed := RetagFact("Future trip to Lebanon on January 23, 2025", ref)
	assert.True(t, changed)
	assert.Equal(t, "Past trip to Lebanon on January 23, 2025", text)

	text, changed = RetagFact("Past concert on August 9, 2025", ref)
	assert.True(t, changed)
	assert.Equal(t, "Future concert on August 9, 2025", text)
}

func TestRetagFactUnchanged(t *testing.T) {
	ref := date(2025, time.June, 1)

	// tag already agrees with the date
	text, changed := RetagFact("Past trip to Lebanon on January 23, 2025", ref)
	assert.False(t, changed)
	assert.Equal(t, "Past trip to Lebanon on January 23, 2025", text)

	// no extractable date: left untouched even with a leading tag
	text, changed = RetagFact("Future plans to learn the cello", ref)
	assert.False(t, changed)
	assert.Equal(t, "Future plans to learn the cello", text)

	// no leading tag token
	_, changed = RetagFact("Visited Lisbon on January 23, 2025", ref)
	assert.False(t, changed)
}
