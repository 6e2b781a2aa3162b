// Package temporal extracts calendar dates from free text and classifies them
// as past or future relative to a reference instant. It is used to correct
// mislabeled fact records whose leading tag token disagrees with the date the
// text actually mentions.
package temporal

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Tense classifies a date relative to a reference instant.
type Tense string

const (
	// Past means the date precedes the reference instant
	Past Tense = "Past"

	// Future means the date is at or after the reference instant
	Future Tense = "Future"
)

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sept": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

const monthAlt = `(january|february|march|april|june|july|august|september|october|november|december|jan|feb|mar|apr|may|jun|jul|aug|sept|sep|oct|nov|dec)`

// Day numbers may carry an ordinal suffix ("23rd"), which is stripped.
const dayPart = `(\d{1,2})(?:st|nd|rd|th)?`

var (
	// "Month D to Month D, YYYY" ranges resolve to the range's end date.
	rangeRe = regexp.MustCompile(`(?i)\b` + monthAlt + `\.?\s+` + dayPart + `\s+to\s+` + monthAlt + `\.?\s+` + dayPart + `,?\s+(\d{4})\b`)

	// "Month D, YYYY" with full or abbreviated month name.
	namedRe = regexp.MustCompile(`(?i)\b` + monthAlt + `\.?\s+` + dayPart + `,?\s+(\d{4})\b`)

	// Explicit numeric formats, tried after named-month formats.
	slashRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	dashRe  = regexp.MustCompile(`\b(\d{1,2})-(\d{1,2})-(\d{4})\b`)
)

// ExtractDate scans text for the first recognizable calendar date, trying
// patterns in order of specificity. The boolean result is false when no
// recognizable date exists; that is a normal outcome, not an error.
func ExtractDate(text string) (time.Time, bool) {
	if m := rangeRe.FindStringSubmatch(text); m != nil {
		if d, ok := makeDate(m[5], m[3], m[4]); ok {
			return d, true
		}
	}

	if m := namedRe.FindStringSubmatch(text); m != nil {
		if d, ok := makeDate(m[3], m[1], m[2]); ok {
			return d, true
		}
	}

	if m := slashRe.FindStringSubmatch(text); m != nil {
		if d, ok := makeNumericDate(m[3], m[1], m[2]); ok {
			return d, true
		}
	}

	if m := dashRe.FindStringSubmatch(text); m != nil {
		if d, ok := makeNumericDate(m[3], m[1], m[2]); ok {
			return d, true
		}
	}

	return time.Time{}, false
}

// Classify reports whether date falls before the reference instant.
func Classify(date time.Time, reference time.Time) Tense {
	if date.Before(reference) {
		return Past
	}
	return Future
}

// RetagFact corrects the leading "Past"/"Future" tag token of a fact text when
// the date the text mentions disagrees with the tag, relative to reference.
// The first occurrence of the tag word is swapped in place. Facts without an
// extractable date are left untouched: absence of a date is not evidence of a
// wrong tag. The boolean result reports whether the text was modified.
func RetagFact(text string, reference time.Time) (string, bool) {
	date, ok := ExtractDate(text)
	if !ok {
		return text, false
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return text, false
	}

	current := Tense(fields[0])
	if current != Past && current != Future {
		return text, false
	}

	correct := Classify(date, reference)
	if current == correct {
		return text, false
	}

	return strings.Replace(text, string(current), string(correct), 1), true
}

func makeDate(year, monthName, day string) (time.Time, bool) {
	month, ok := months[strings.ToLower(monthName)]
	if !ok {
		return time.Time{}, false
	}
	return buildDate(year, int(month), day)
}

func makeNumericDate(year, month, day string) (time.Time, bool) {
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, false
	}
	return buildDate(year, m, day)
}

func buildDate(year string, month int, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return time.Time{}, false
	}
	return time.Date(y, time.Month(month), d, 0, 0, 0, 0, time.UTC), true
}
