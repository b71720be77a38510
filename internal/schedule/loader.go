/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Year is a release year as written in the metadata. Both JSON strings and
// numbers are accepted and kept verbatim.
type Year string

// UnmarshalJSON accepts "1987" as well as 1987.
func (y *Year) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("year must not be null")
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*y = Year(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("year must be a string or number: %w", err)
	}
	*y = Year(n.String())
	return nil
}

// VideoMetadata is the display metadata of one video as stored in the
// metadata file. Filename is relative to the videos directory.
type VideoMetadata struct {
	Title       string `json:"title"`
	Creator     string `json:"creator"`
	Year        Year   `json:"year"`
	Description string `json:"description"`
	Filename    string `json:"filename"`
}

// Metadata maps video keys to their metadata.
type Metadata map[string]VideoMetadata

// metadataRecord detects fields that are absent from the input.
type metadataRecord struct {
	Title       *string `json:"title"`
	Creator     *string `json:"creator"`
	Year        *Year   `json:"year"`
	Description *string `json:"description"`
	Filename    *string `json:"filename"`
}

// DecodeMetadata strictly decodes a metadata document. Unknown or missing
// fields are rejected.
func DecodeMetadata(r io.Reader) (Metadata, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, &MetadataError{Reason: fmt.Sprintf("decode: %v", err)}
	}
	if raw == nil {
		return nil, &MetadataError{Reason: "metadata must be a JSON object"}
	}
	if len(raw) == 0 {
		return nil, &MetadataError{Reason: "metadata has no entries"}
	}

	meta := make(Metadata, len(raw))
	for key, body := range raw {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.DisallowUnknownFields()

		var rec metadataRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, &MetadataError{Key: key, Reason: err.Error()}
		}

		var missing []string
		if rec.Title == nil {
			missing = append(missing, "title")
		}
		if rec.Creator == nil {
			missing = append(missing, "creator")
		}
		if rec.Year == nil {
			missing = append(missing, "year")
		}
		if rec.Description == nil {
			missing = append(missing, "description")
		}
		if rec.Filename == nil || *rec.Filename == "" {
			missing = append(missing, "filename")
		}
		if len(missing) > 0 {
			return nil, &MetadataError{Key: key, Reason: "missing fields: " + strings.Join(missing, ", ")}
		}

		meta[key] = VideoMetadata{
			Title:       *rec.Title,
			Creator:     *rec.Creator,
			Year:        *rec.Year,
			Description: *rec.Description,
			Filename:    *rec.Filename,
		}
	}
	return meta, nil
}

// DecodeKeys decodes the ordered list of video keys of a schedule file.
func DecodeKeys(r io.Reader) ([]string, error) {
	var keys []string
	if err := json.NewDecoder(r).Decode(&keys); err != nil {
		return nil, fmt.Errorf("decode schedule keys: %w", err)
	}
	return keys, nil
}

// LoadVideos builds one Video per metadata entry, resolving filenames against
// dir. Keys are visited in sorted order.
func LoadVideos(meta Metadata, dir string, prober Prober) (map[string]*Video, error) {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	videos := make(map[string]*Video, len(meta))
	for _, key := range keys {
		m := meta[key]
		v, err := NewVideo(key, m, filepath.Join(dir, m.Filename), prober)
		if err != nil {
			return nil, err
		}
		videos[key] = v
	}
	return videos, nil
}

// LoadSchedule assembles a schedule from an ordered key list. Every key must
// be present in videos.
func LoadSchedule(keys []string, videos map[string]*Video, start time.Time, days int) (*Schedule, error) {
	s := New(start, days)
	for i, key := range keys {
		v, ok := videos[key]
		if !ok {
			return nil, &UnknownVideoKeyError{Key: key, Position: i}
		}
		s.Append(v)
	}
	return s, nil
}
