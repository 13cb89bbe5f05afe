package domain

import (
	"strings"
	"time"
)

// CanonicalLayout is the external representation of a reading timestamp.
const CanonicalLayout = "2006-01-02 15:04:05.000000"

// Accepted input layouts, tried in order. The first match wins.
// RFC 3339 allows a space for the T separator and either offset spelling
// after a space.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -0700",
	"2006-01-02 15:04:05.999999999 -07:00",
}

// Layouts without an offset are read as UTC.
var naiveLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// now is swapped in tests
var now = time.Now

// Normalize parses a textual timestamp into a UTC instant with microsecond
// precision. When no layout matches it returns the current time and false;
// the caller is responsible for logging the substitution.
func Normalize(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	// The T and Z markers are case-insensitive; no layout has other letters.
	upper := strings.ToUpper(s)

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, upper); err == nil {
			return canonicalInstant(t), true
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return canonicalInstant(t), true
		}
	}

	return canonicalInstant(now()), false
}

// FormatCanonical renders t in CanonicalLayout, always in UTC.
func FormatCanonical(t time.Time) string {
	return t.UTC().Format(CanonicalLayout)
}

func canonicalInstant(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
