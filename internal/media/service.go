/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Prober resolves the playback duration of a media file.
type Prober interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// DurationCache stores probe results keyed by file fingerprint.
type DurationCache interface {
	GetDuration(ctx context.Context, fingerprint string) (time.Duration, bool)
	SetDuration(ctx context.Context, fingerprint string, d time.Duration) error
}

// Observer receives the outcome of every probe.
type Observer interface {
	ObserveProbe(elapsed time.Duration, cached bool, err error)
}

// Service probes media durations through an optional cache.
type Service struct {
	prober   Prober
	cache    DurationCache
	observer Observer
	logger   zerolog.Logger
}

// NewService wraps prober. cache and observer may be nil.
func NewService(prober Prober, cache DurationCache, observer Observer, logger zerolog.Logger) *Service {
	return &Service{
		prober:   prober,
		cache:    cache,
		observer: observer,
		logger:   logger.With().Str("component", "media").Logger(),
	}
}

// Duration returns the duration of the file at path, consulting the cache
// first. Cache failures never fail the probe.
func (s *Service) Duration(ctx context.Context, path string) (time.Duration, error) {
	started := time.Now()

	var fingerprint string
	if s.cache != nil {
		fp, err := Fingerprint(path)
		if err != nil {
			s.logger.Debug().Err(err).Str("path", path).Msg("fingerprint failed, skipping cache")
		} else {
			fingerprint = fp
			if d, ok := s.cache.GetDuration(ctx, fingerprint); ok {
				s.observe(time.Since(started), true, nil)
				s.logger.Debug().Str("path", path).Dur("duration", d).Msg("duration cache hit")
				return d, nil
			}
		}
	}

	d, err := s.prober.Duration(ctx, path)
	s.observe(time.Since(started), false, err)
	if err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("media probe failed")
		return 0, fmt.Errorf("probe %s: %w", filepath.Base(path), err)
	}

	if fingerprint != "" && d > 0 {
		if err := s.cache.SetDuration(ctx, fingerprint, d); err != nil {
			s.logger.Debug().Err(err).Str("path", path).Msg("failed to cache duration")
		}
	}
	return d, nil
}

func (s *Service) observe(elapsed time.Duration, cached bool, err error) {
	if s.observer != nil {
		s.observer.ObserveProbe(elapsed, cached, err)
	}
}

// Fingerprint identifies a file version by absolute path, size and
// modification time.
func Fingerprint(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00%d", abs, info.Size(), info.ModTime().UnixNano())
	return hex.EncodeToString(h.Sum(nil)), nil
}
