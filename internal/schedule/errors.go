/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by the typed errors below via errors.Is.
var (
	ErrAssetNotFound      = errors.New("video asset not found")
	ErrUnknownVideoKey    = errors.New("unknown video key")
	ErrProbeFailed        = errors.New("duration probe failed")
	ErrDegenerateSchedule = errors.New("degenerate schedule")
	ErrInvalidMetadata    = errors.New("invalid metadata")
)

// AssetNotFoundError reports a video whose backing file is missing.
type AssetNotFoundError struct {
	Key  string
	Path string
	Err  error
}

func (e *AssetNotFoundError) Error() string {
	return fmt.Sprintf("couldn't find video file %q for video %q", e.Path, e.Key)
}

func (e *AssetNotFoundError) Unwrap() error { return e.Err }

func (e *AssetNotFoundError) Is(target error) bool { return target == ErrAssetNotFound }

// UnknownVideoKeyError reports a schedule entry that references a key absent
// from the metadata. Position is the 0-based index in the schedule list.
type UnknownVideoKeyError struct {
	Key      string
	Position int
}

func (e *UnknownVideoKeyError) Error() string {
	return fmt.Sprintf("video with key %q in schedule (position %d) not found in metadata", e.Key, e.Position)
}

func (e *UnknownVideoKeyError) Is(target error) bool { return target == ErrUnknownVideoKey }

// ProbeError wraps a failure of the duration prober.
type ProbeError struct {
	Key  string
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe duration of %q (video %q): %v", e.Path, e.Key, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

func (e *ProbeError) Is(target error) bool { return target == ErrProbeFailed }

// DegenerateScheduleError is returned when a schedule cannot make forward
// progress: no videos, or a video with a non-positive duration.
type DegenerateScheduleError struct {
	Reason string
	Key    string
}

func (e *DegenerateScheduleError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("degenerate schedule: %s (video %q)", e.Reason, e.Key)
	}
	return "degenerate schedule: " + e.Reason
}

func (e *DegenerateScheduleError) Is(target error) bool { return target == ErrDegenerateSchedule }

// MetadataError reports a malformed metadata entry.
type MetadataError struct {
	Key    string
	Reason string
}

func (e *MetadataError) Error() string {
	if e.Key == "" {
		return "invalid metadata: " + e.Reason
	}
	return fmt.Sprintf("invalid metadata for %q: %s", e.Key, e.Reason)
}

func (e *MetadataError) Is(target error) bool { return target == ErrInvalidMetadata }
