package domain

import (
	"testing"
	"time"
)

func TestNormalize_Formats(t *testing.T) {
	want := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{name: "rfc3339 zulu", raw: "2024-01-01T12:00:00Z", want: want},
		{name: "rfc3339 offset", raw: "2024-01-01T14:00:00+02:00", want: want},
		{name: "rfc3339 fraction", raw: "2024-01-01T12:00:00.000001Z", want: want.Add(time.Microsecond)},
		{name: "fraction with offset", raw: "2024-01-01 13:00:00.000001 +0100", want: want.Add(time.Microsecond)},
		{name: "fraction naive", raw: "2024-01-01 12:00:00.000002", want: want.Add(2 * time.Microsecond)},
		{name: "seconds naive", raw: "2024-01-01 12:00:00", want: want},
		{name: "surrounding whitespace", raw: "  2024-01-01 12:00:00 ", want: want},
		{name: "rfc3339 space separator", raw: "2024-01-01 14:00:00+02:00", want: want},
		{name: "rfc3339 space separator zulu", raw: "2024-01-01 12:00:00Z", want: want},
		{name: "rfc3339 lowercase markers", raw: "2024-01-01t12:00:00z", want: want},
		{name: "rfc3339 lowercase with offset", raw: "2024-01-01t14:00:00.5+02:00", want: want.Add(500 * time.Millisecond)},
		{name: "fraction with colon offset", raw: "2024-01-01 14:00:00.5 +02:00", want: want.Add(500 * time.Millisecond)},
		{name: "seconds with compact offset", raw: "2024-01-01 14:00:00 +0200", want: want},
		{name: "nanoseconds truncated", raw: "2024-01-01T12:00:00.000001999Z", want: want.Add(time.Microsecond)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.raw)
			if !ok {
				t.Fatalf("Normalize(%q) fell back to now", tt.raw)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Normalize(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			if got.Location() != time.UTC {
				t.Errorf("expected UTC location, got %v", got.Location())
			}
		})
	}
}

// Every supported spelling of one instant normalizes to the same value.
func TestNormalize_RoundTrip(t *testing.T) {
	instant := time.Date(2024, 6, 30, 23, 59, 58, 123456000, time.UTC)
	east := time.FixedZone("east", 5*3600+30*60)

	inputs := []string{
		instant.Format(time.RFC3339Nano),
		instant.In(east).Format(time.RFC3339Nano),
		instant.In(east).Format("2006-01-02 15:04:05.000000 -0700"),
		instant.Format("2006-01-02 15:04:05.000000"),
	}
	for _, raw := range inputs {
		got, ok := Normalize(raw)
		if !ok || !got.Equal(instant) {
			t.Errorf("Normalize(%q) = %v (ok=%v), want %v", raw, got, ok, instant)
		}
	}

	// The seconds-only layout agrees up to its own precision.
	got, ok := Normalize(instant.Format("2006-01-02 15:04:05"))
	if !ok || !got.Equal(instant.Truncate(time.Second)) {
		t.Errorf("seconds layout = %v, want %v", got, instant.Truncate(time.Second))
	}

	// Canonical output parses back to the same instant.
	again, ok := Normalize(FormatCanonical(instant))
	if !ok || !again.Equal(instant) {
		t.Errorf("canonical round trip = %v, want %v", again, instant)
	}
}

func TestNormalize_FallsBackToNow(t *testing.T) {
	fixed := time.Date(2025, 3, 4, 5, 6, 7, 891011121, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	for _, raw := range []string{"not-a-date", "", "2024-13-01 00:00:00", "01/02/2024"} {
		got, ok := Normalize(raw)
		if ok {
			t.Errorf("Normalize(%q) should not match any layout", raw)
		}
		if !got.Equal(fixed.Truncate(time.Microsecond)) {
			t.Errorf("Normalize(%q) = %v, want %v", raw, got, fixed)
		}
	}
}

func TestFormatCanonical(t *testing.T) {
	tests := []struct {
		in   time.Time
		want string
	}{
		{in: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), want: "2024-01-01 12:00:00.000000"},
		{in: time.Date(2024, 1, 1, 12, 0, 0, 1000, time.UTC), want: "2024-01-01 12:00:00.000001"},
		{in: time.Date(2024, 1, 1, 14, 0, 0, 0, time.FixedZone("", 2*3600)), want: "2024-01-01 12:00:00.000000"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatCanonical(tt.in); got != tt.want {
				t.Errorf("FormatCanonical() = %q, want %q", got, tt.want)
			}
		})
	}
}
