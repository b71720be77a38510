/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ScanReport is the JSON document produced by a videos directory scan.
type ScanReport struct {
	ScannedAt time.Time   `json:"scanned_at"`
	Dir       string      `json:"dir"`
	Files     []ScanEntry `json:"files"`
	Unlisted  []string    `json:"unlisted,omitempty"` // files no metadata entry points at
	Missing   []string    `json:"missing,omitempty"`  // metadata filenames with no file
	Stats     ScanStats   `json:"stats"`
}

// ScanEntry describes a single video file.
type ScanEntry struct {
	Filename        string    `json:"filename"` // relative to the scanned dir, slash separated
	Key             string    `json:"key,omitempty"`
	Size            int64     `json:"size"`
	ModifiedAt      time.Time `json:"modified_at"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	Error           string    `json:"error,omitempty"`
}

// ScanStats holds aggregate scan statistics.
type ScanStats struct {
	TotalFiles      int     `json:"total_files"`
	TotalSize       int64   `json:"total_size"`
	TotalDuration   float64 `json:"total_duration_seconds"`
	Errors          int     `json:"errors"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Scanner probes every video below a directory with a bounded worker pool.
// Probing through a cached Service warms the duration cache for later builds.
type Scanner struct {
	prober  Prober
	workers int
	logger  zerolog.Logger
}

// NewScanner creates a scanner. workers below one means one.
func NewScanner(prober Prober, workers int, logger zerolog.Logger) *Scanner {
	if workers < 1 {
		workers = 1
	}
	return &Scanner{
		prober:  prober,
		workers: workers,
		logger:  logger.With().Str("component", "scanner").Logger(),
	}
}

type scanJob struct {
	fullPath string
	relPath  string
	info     fs.FileInfo
}

// Scan walks dir. known maps metadata filenames (relative to dir) to their
// keys and drives the Unlisted and Missing reports.
func (s *Scanner) Scan(ctx context.Context, dir string, known map[string]string) (*ScanReport, error) {
	startTime := time.Now()

	jobs := make(chan scanJob, s.workers*2)
	results := make(chan ScanEntry, s.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- s.processFile(ctx, job)
			}
		}()
	}

	var entries []ScanEntry
	collectDone := make(chan struct{})
	go func() {
		defer close(collectDone)
		for r := range results {
			entries = append(entries, r)
		}
	}()

	walkErr := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !IsVideoFile(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		jobs <- scanJob{fullPath: p, relPath: filepath.ToSlash(rel), info: info}
		return nil
	})

	close(jobs)
	wg.Wait()
	close(results)
	<-collectDone

	if walkErr != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, walkErr)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Filename < entries[j].Filename })

	report := &ScanReport{
		ScannedAt: startTime.UTC(),
		Dir:       dir,
		Files:     entries,
	}
	seen := make(map[string]bool, len(entries))
	for i := range entries {
		e := &entries[i]
		seen[e.Filename] = true
		if key, ok := known[e.Filename]; ok {
			e.Key = key
		} else {
			report.Unlisted = append(report.Unlisted, e.Filename)
		}
		report.Stats.TotalSize += e.Size
		report.Stats.TotalDuration += e.DurationSeconds
		if e.Error != "" {
			report.Stats.Errors++
		}
	}
	for filename := range known {
		if !seen[filepath.ToSlash(filepath.Clean(filename))] {
			report.Missing = append(report.Missing, filename)
		}
	}
	sort.Strings(report.Missing)

	report.Stats.TotalFiles = len(entries)
	report.Stats.DurationSeconds = time.Since(startTime).Seconds()

	s.logger.Info().
		Str("dir", dir).
		Int("files", report.Stats.TotalFiles).
		Int("errors", report.Stats.Errors).
		Int("unlisted", len(report.Unlisted)).
		Int("missing", len(report.Missing)).
		Msg("scan complete")
	return report, nil
}

func (s *Scanner) processFile(ctx context.Context, job scanJob) ScanEntry {
	entry := ScanEntry{
		Filename:   job.relPath,
		Size:       job.info.Size(),
		ModifiedAt: job.info.ModTime().UTC(),
	}

	d, err := s.prober.Duration(ctx, job.fullPath)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn().Err(err).Str("path", job.fullPath).Msg("probe failed")
		}
		entry.Error = err.Error()
		return entry
	}
	entry.DurationSeconds = d.Seconds()
	return entry
}

// IsVideoFile reports whether name has a video container extension.
func IsVideoFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp4", ".m4v", ".mkv", ".webm", ".mov", ".avi", ".mpg", ".mpeg", ".ts":
		return true
	default:
		return false
	}
}
