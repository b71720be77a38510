/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

// Prober resolves the playback duration of a media file.
type Prober interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// ProberFunc adapts a plain function to the Prober interface.
type ProberFunc func(ctx context.Context, path string) (time.Duration, error)

// Duration calls f.
func (f ProberFunc) Duration(ctx context.Context, path string) (time.Duration, error) {
	return f(ctx, path)
}

// Video is one playable asset of the channel.
type Video struct {
	Key         string
	Title       string
	Creator     string
	Year        Year
	Description string
	Filename    string

	prober Prober

	mu       sync.Mutex
	probed   bool
	duration time.Duration
}

// NewVideo constructs a video and verifies that its backing file exists.
func NewVideo(key string, meta VideoMetadata, filename string, prober Prober) (*Video, error) {
	info, err := os.Stat(filename)
	if err != nil {
		return nil, &AssetNotFoundError{Key: key, Path: filename, Err: err}
	}
	if info.IsDir() {
		return nil, &AssetNotFoundError{Key: key, Path: filename, Err: fmt.Errorf("%s is a directory", filename)}
	}

	return &Video{
		Key:         key,
		Title:       meta.Title,
		Creator:     meta.Creator,
		Year:        meta.Year,
		Description: meta.Description,
		Filename:    filename,
		prober:      prober,
	}, nil
}

// Duration returns the playback duration, probing the file on first use.
// Failed probes are not cached.
func (v *Video) Duration(ctx context.Context) (time.Duration, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.probed {
		return v.duration, nil
	}
	if v.prober == nil {
		return 0, &ProbeError{Key: v.Key, Path: v.Filename, Err: fmt.Errorf("no prober configured")}
	}

	d, err := v.prober.Duration(ctx, v.Filename)
	if err != nil {
		return 0, &ProbeError{Key: v.Key, Path: v.Filename, Err: err}
	}

	v.duration = d
	v.probed = true
	return d, nil
}
