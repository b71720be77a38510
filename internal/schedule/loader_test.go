/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDecodeMetadata(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		check   func(t *testing.T, m Metadata)
	}{
		{
			name: "numeric year",
			input: `{"intro": {"title": "Intro", "creator": "Jane", "year": 1987,
				"description": "Opening bump", "filename": "intro.mp4"}}`,
			check: func(t *testing.T, m Metadata) {
				if m["intro"].Year != "1987" {
					t.Errorf("year = %q, want 1987", m["intro"].Year)
				}
				if m["intro"].Filename != "intro.mp4" {
					t.Errorf("filename = %q", m["intro"].Filename)
				}
			},
		},
		{
			name: "string year",
			input: `{"intro": {"title": "Intro", "creator": "Jane", "year": "c. 1990",
				"description": "", "filename": "intro.mp4"}}`,
			check: func(t *testing.T, m Metadata) {
				if m["intro"].Year != "c. 1990" {
					t.Errorf("year = %q, want c. 1990", m["intro"].Year)
				}
			},
		},
		{
			name: "unknown field",
			input: `{"intro": {"title": "Intro", "creator": "Jane", "year": 1987,
				"description": "", "filename": "intro.mp4", "rating": 5}}`,
			wantErr: true,
		},
		{
			name:    "missing fields",
			input:   `{"intro": {"title": "Intro", "filename": "intro.mp4"}}`,
			wantErr: true,
		},
		{
			name:    "empty filename",
			input:   `{"intro": {"title": "Intro", "creator": "", "year": 1, "description": "", "filename": ""}}`,
			wantErr: true,
		},
		{
			name:    "not an object",
			input:   `["intro"]`,
			wantErr: true,
		},
		{
			name:    "null document",
			input:   `null`,
			wantErr: true,
		},
		{
			name:    "no entries",
			input:   `{}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := DecodeMetadata(strings.NewReader(tt.input))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidMetadata) {
					t.Fatalf("err = %v, want ErrInvalidMetadata", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			tt.check(t, m)
		})
	}
}

func TestDecodeKeys(t *testing.T) {
	keys, err := DecodeKeys(strings.NewReader(`["b", "a", "b"]`))
	if err != nil {
		t.Fatalf("decode keys: %v", err)
	}
	want := []string{"b", "a", "b"}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Fatalf("keys = %v, want %v", keys, want)
	}

	if _, err := DecodeKeys(strings.NewReader(`{"a": 1}`)); err == nil {
		t.Fatal("expected error for non-array schedule")
	}
}

func writeVideoFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestLoadVideosJoinsDirectory(t *testing.T) {
	dir := t.TempDir()
	writeVideoFiles(t, dir, "one.mp4", "two.mp4")

	meta := Metadata{
		"one": {Title: "One", Filename: "one.mp4"},
		"two": {Title: "Two", Filename: "two.mp4"},
	}
	videos, err := LoadVideos(meta, dir, nil)
	if err != nil {
		t.Fatalf("load videos: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("videos len = %d, want 2", len(videos))
	}
	if got, want := videos["one"].Filename, filepath.Join(dir, "one.mp4"); got != want {
		t.Fatalf("filename = %q, want %q", got, want)
	}
	if videos["two"].Key != "two" || videos["two"].Title != "Two" {
		t.Fatalf("unexpected video: %+v", videos["two"])
	}
}

func TestLoadVideosMissingAsset(t *testing.T) {
	dir := t.TempDir()
	writeVideoFiles(t, dir, "one.mp4")

	meta := Metadata{
		"one":  {Filename: "one.mp4"},
		"gone": {Filename: "gone.mp4"},
	}
	_, err := LoadVideos(meta, dir, nil)
	var notFound *AssetNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want *AssetNotFoundError", err)
	}
	if notFound.Key != "gone" {
		t.Fatalf("missing key = %q, want gone", notFound.Key)
	}
}

func TestLoadSchedule(t *testing.T) {
	dir := t.TempDir()
	writeVideoFiles(t, dir, "one.mp4", "two.mp4")
	videos, err := LoadVideos(Metadata{
		"one": {Filename: "one.mp4"},
		"two": {Filename: "two.mp4"},
	}, dir, nil)
	if err != nil {
		t.Fatalf("load videos: %v", err)
	}

	t.Run("keeps order and duplicates", func(t *testing.T) {
		s, err := LoadSchedule([]string{"two", "one", "two"}, videos, testStart, 3)
		if err != nil {
			t.Fatalf("load schedule: %v", err)
		}
		if len(s.Videos) != 3 {
			t.Fatalf("videos len = %d, want 3", len(s.Videos))
		}
		if s.Videos[0] != videos["two"] || s.Videos[1] != videos["one"] || s.Videos[2] != videos["two"] {
			t.Fatal("schedule order does not match key order")
		}
		if !s.Start.Equal(testStart) || s.Days != 3 {
			t.Fatalf("unexpected window: %v %d", s.Start, s.Days)
		}
		if !s.End().Equal(testStart.Add(72 * time.Hour)) {
			t.Fatalf("end = %v", s.End())
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := LoadSchedule([]string{"one", "three", "two"}, videos, testStart, 3)
		var unknown *UnknownVideoKeyError
		if !errors.As(err, &unknown) {
			t.Fatalf("err = %v, want *UnknownVideoKeyError", err)
		}
		if unknown.Key != "three" || unknown.Position != 1 {
			t.Fatalf("unknown = %+v", unknown)
		}
		if !errors.Is(err, ErrUnknownVideoKey) {
			t.Fatal("expected errors.Is(err, ErrUnknownVideoKey)")
		}
	})
}
