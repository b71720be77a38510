package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		env      string
		level    string
		expected zerolog.Level
	}{
		{"development", "", zerolog.DebugLevel},
		{"production", "", zerolog.InfoLevel},
		{"production", "warn", zerolog.WarnLevel},
		{"development", "ERROR", zerolog.ErrorLevel},
		{"production", "bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.env, tt.level); got != tt.expected {
			t.Errorf("ParseLevel(%q, %q) = %v, want %v", tt.env, tt.level, got, tt.expected)
		}
	}
}

func TestProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWithWriter("production", "", &buf)
	logger.Info().Int("plays", 8).Msg("schedule built")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if line["message"] != "schedule built" {
		t.Errorf("message = %v", line["message"])
	}
	if line["plays"] != float64(8) {
		t.Errorf("plays = %v", line["plays"])
	}
}

func TestDevelopmentWritesConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWithWriter("development", "", &buf)
	logger.Debug().Msg("probing")

	out := buf.String()
	if !strings.Contains(out, "probing") {
		t.Fatalf("debug line missing: %q", out)
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("expected console output, got JSON: %q", out)
	}
}
