package dateparse

import (
	"testing"
	"time"
)

func TestParseKeywords(t *testing.T) {
	est, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	now := time.Date(2024, 3, 14, 15, 30, 0, 0, time.UTC) // 11:30 in New York

	tests := []struct {
		expr     string
		loc      *time.Location
		expected time.Time
	}{
		{"midnight", nil, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"", nil, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"Today", nil, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"now", nil, now},
		{"tomorrow", nil, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"midnight", est, time.Date(2024, 3, 14, 4, 0, 0, 0, time.UTC)},
		{"2024-01-01", nil, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-01-01", est, time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC)},
		{"2024-06-01T12:00:00+02:00", est, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := Parse(tt.expr, now, tt.loc)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", tt.expr, err)
			continue
		}
		if !got.Equal(tt.expected) {
			t.Errorf("Parse(%q) = %s, want %s", tt.expr, got, tt.expected)
		}
		if got.Location() != time.UTC {
			t.Errorf("Parse(%q) location = %s, want UTC", tt.expr, got.Location())
		}
	}
}

func TestParseNaturalLanguage(t *testing.T) {
	now := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)

	got, err := Parse("in 3 days", now, time.UTC)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got.Before(now.Add(48*time.Hour)) || got.After(now.Add(96*time.Hour)) {
		t.Errorf("Parse(in 3 days) = %s, want about three days after %s", got, now)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse("purple monkey dishwasher", time.Now(), time.UTC); err == nil {
		t.Fatal("expected error for unrecognized expression")
	}
}
