/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package schedule turns an ordered list of videos into a looped, timestamped
// broadcast schedule and renders it.
package schedule

import (
	"context"
	"iter"
	"time"
)

// Play is a single scheduled airing of a video.
type Play struct {
	Index    int
	StartsAt time.Time
	Duration time.Duration
	Video    *Video
}

// EndsAt is the instant the play finishes.
func (p Play) EndsAt() time.Time {
	return p.StartsAt.Add(p.Duration)
}

// Schedule is an ordered playlist looped to cover at least Days days from Start.
type Schedule struct {
	Start  time.Time
	Days   int
	Videos []*Video
}

// New creates an empty schedule.
func New(start time.Time, days int) *Schedule {
	return &Schedule{Start: start, Days: days}
}

// Append adds a video to the end of the play order.
func (s *Schedule) Append(v *Video) {
	s.Videos = append(s.Videos, v)
}

// End returns the end of the requested coverage window.
func (s *Schedule) End() time.Time {
	return s.Start.AddDate(0, 0, s.Days)
}

// UnloopedDuration is the total duration of a single pass through the videos.
func (s *Schedule) UnloopedDuration(ctx context.Context) (time.Duration, error) {
	var total time.Duration
	for _, v := range s.Videos {
		d, err := v.Duration(ctx)
		if err != nil {
			return 0, err
		}
		total += d
	}
	return total, nil
}

// Programming validates the schedule and returns the looped sequence of plays.
//
// The sequence starts over from Start on every range. It emits a play, advances
// by the play's duration and stops once the cursor is past End, so the last
// play may run beyond the coverage window.
func (s *Schedule) Programming(ctx context.Context) (iter.Seq[Play], error) {
	durations, err := s.durations(ctx)
	if err != nil {
		return nil, err
	}

	start := s.Start
	end := s.End()
	videos := s.Videos

	return func(yield func(Play) bool) {
		t := start
		for i := 0; ; i++ {
			n := i % len(videos)
			if !yield(Play{Index: i, StartsAt: t, Duration: durations[n], Video: videos[n]}) {
				return
			}
			t = t.Add(durations[n])
			if t.After(end) {
				return
			}
		}
	}, nil
}

// Plays materializes the full looped programming.
func (s *Schedule) Plays(ctx context.Context) ([]Play, error) {
	seq, err := s.Programming(ctx)
	if err != nil {
		return nil, err
	}

	var plays []Play
	for p := range seq {
		plays = append(plays, p)
	}
	return plays, nil
}

// durations resolves every video's duration up front so that the generation
// loop is guaranteed to make progress.
func (s *Schedule) durations(ctx context.Context) ([]time.Duration, error) {
	if len(s.Videos) == 0 {
		return nil, &DegenerateScheduleError{Reason: "schedule has no videos"}
	}

	out := make([]time.Duration, len(s.Videos))
	for i, v := range s.Videos {
		d, err := v.Duration(ctx)
		if err != nil {
			return nil, err
		}
		if d <= 0 {
			return nil, &DegenerateScheduleError{Reason: "video duration must be positive", Key: v.Key}
		}
		out[i] = d
	}
	return out, nil
}
