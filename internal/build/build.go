/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package build turns metadata and schedule files into a publishable build
// directory: the static site, the looped timeline and its renderings.
package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/friendsincode/bumptv/internal/eventbus"
	"github.com/friendsincode/bumptv/internal/schedule"
	"github.com/friendsincode/bumptv/internal/storage"
	"github.com/friendsincode/bumptv/internal/telemetry"
)

// Output object names inside the build directory.
const (
	MetadataObject = "metadata.json"
	TimelineObject = "schedule.json"
	HTMLObject     = "schedule.html"
	ICalObject     = "schedule.ics"
)

// Options describe one build.
type Options struct {
	MetadataFile string
	ScheduleFile string
	VideosDir    string
	StaticDir    string
	BuildDir     string
	Start        time.Time
	Days         int
	Location     *time.Location // display zone for the readable and HTML renderings
	Title        string
}

// Result summarizes a successful build.
type Result struct {
	BuildID  string
	Start    time.Time
	End      time.Time
	Videos   int
	Plays    int
	Unlooped time.Duration
	Coverage time.Duration // start to the end of the last play
	Readable string
	Objects  []string
}

// Builder runs builds. It is not safe for concurrent use; callers serialize.
type Builder struct {
	prober    schedule.Prober
	metrics   *telemetry.Metrics
	publisher eventbus.Publisher
	logger    zerolog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithMetrics records build gauges and counters on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithPublisher announces every successful build on p.
func WithPublisher(p eventbus.Publisher) Option {
	return func(b *Builder) { b.publisher = p }
}

// New creates a Builder probing durations with prober.
func New(prober schedule.Prober, logger zerolog.Logger, opts ...Option) *Builder {
	b := &Builder{
		prober: prober,
		logger: logger.With().Str("component", "build").Logger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type rendered struct {
	metadata []byte
	timeline []byte
	html     []byte
	ical     []byte
	readable string
}

// Build loads the inputs, renders every output in memory and only then
// replaces the build directory. A failed build leaves the previous build
// directory untouched.
func (b *Builder) Build(ctx context.Context, opts Options) (res *Result, err error) {
	started := time.Now()
	buildID := uuid.NewString()
	logger := b.logger.With().Str("build_id", buildID).Logger()

	ctx, end := telemetry.StartStep(ctx, "bumptv.build",
		attribute.String("build.id", buildID),
		attribute.Int("schedule.days", opts.Days),
	)
	defer func() {
		end(err)
		if b.metrics != nil {
			b.metrics.ObserveBuild(time.Since(started), err)
		}
		if err != nil {
			logger.Error().Err(err).Dur("elapsed", time.Since(started)).Msg("build failed")
		}
	}()

	if err := checkBuildDir(opts); err != nil {
		return nil, err
	}

	sched, rawMeta, videos, err := b.load(ctx, opts)
	if err != nil {
		return nil, err
	}

	out, stats, err := b.render(ctx, sched, opts)
	if err != nil {
		return nil, err
	}
	out.metadata = rawMeta

	objects, err := b.write(ctx, opts, out)
	if err != nil {
		return nil, err
	}

	res = &Result{
		BuildID:  buildID,
		Start:    sched.Start,
		End:      sched.End(),
		Videos:   videos,
		Plays:    stats.plays,
		Unlooped: stats.unlooped,
		Coverage: stats.coverage,
		Readable: out.readable,
		Objects:  objects,
	}

	if b.metrics != nil {
		b.metrics.VideosLoaded.Set(float64(res.Videos))
		b.metrics.PlaysGenerated.Set(float64(res.Plays))
		b.metrics.CoverageSeconds.Set(res.Coverage.Seconds())
		b.metrics.UnloopedSeconds.Set(res.Unlooped.Seconds())
	}

	logger.Info().
		Time("start", res.Start).
		Int("days", opts.Days).
		Int("videos", res.Videos).
		Int("plays", res.Plays).
		Str("coverage", schedule.FormatSpan(res.Coverage)).
		Str("build_dir", opts.BuildDir).
		Dur("elapsed", time.Since(started)).
		Msg("schedule built")

	if b.publisher != nil {
		ev := eventbus.ScheduleBuilt{
			BuildID:         res.BuildID,
			Start:           res.Start,
			End:             res.End,
			Days:            opts.Days,
			Videos:          res.Videos,
			Plays:           res.Plays,
			CoverageSeconds: res.Coverage.Seconds(),
			BuildDir:        opts.BuildDir,
		}
		if err := b.publisher.PublishBuilt(ctx, ev); err != nil {
			return res, fmt.Errorf("notify build: %w", err)
		}
	}

	return res, nil
}

func (b *Builder) load(ctx context.Context, opts Options) (_ *schedule.Schedule, rawMeta []byte, videos int, err error) {
	_, end := telemetry.StartStep(ctx, "bumptv.build.load")
	defer func() { end(err) }()

	rawMeta, err = os.ReadFile(opts.MetadataFile)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("read metadata file: %w", err)
	}
	meta, err := schedule.DecodeMetadata(bytes.NewReader(rawMeta))
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%s: %w", opts.MetadataFile, err)
	}

	f, err := os.Open(opts.ScheduleFile)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("open schedule file: %w", err)
	}
	defer f.Close()
	keys, err := schedule.DecodeKeys(f)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%s: %w", opts.ScheduleFile, err)
	}

	byKey, err := schedule.LoadVideos(meta, opts.VideosDir, b.prober)
	if err != nil {
		return nil, nil, 0, err
	}
	sched, err := schedule.LoadSchedule(keys, byKey, opts.Start, opts.Days)
	if err != nil {
		return nil, nil, 0, err
	}

	b.logger.Debug().
		Int("videos", len(byKey)).
		Int("scheduled", len(keys)).
		Msg("inputs loaded")
	return sched, rawMeta, len(byKey), nil
}

type renderStats struct {
	plays    int
	unlooped time.Duration
	coverage time.Duration
}

func (b *Builder) render(ctx context.Context, sched *schedule.Schedule, opts Options) (_ *rendered, stats renderStats, err error) {
	ctx, end := telemetry.StartStep(ctx, "bumptv.build.render")
	defer func() { end(err) }()

	plays, err := sched.Plays(ctx)
	if err != nil {
		return nil, stats, err
	}
	stats.plays = len(plays)
	if n := len(plays); n > 0 {
		stats.coverage = plays[n-1].EndsAt().Sub(sched.Start)
	}
	if stats.unlooped, err = sched.UnloopedDuration(ctx); err != nil {
		return nil, stats, err
	}

	var readable, timeline, html, ical bytes.Buffer
	if err := sched.Readable(ctx, &readable, opts.Location); err != nil {
		return nil, stats, fmt.Errorf("render readable schedule: %w", err)
	}
	if err := sched.WriteTimeline(ctx, &timeline); err != nil {
		return nil, stats, fmt.Errorf("render timeline: %w", err)
	}
	if err := sched.WriteHTML(ctx, &html, opts.Location, opts.Title); err != nil {
		return nil, stats, fmt.Errorf("render html: %w", err)
	}
	if err := sched.WriteICal(ctx, &ical, opts.Title); err != nil {
		return nil, stats, fmt.Errorf("render ical: %w", err)
	}

	return &rendered{
		timeline: timeline.Bytes(),
		html:     html.Bytes(),
		ical:     ical.Bytes(),
		readable: readable.String(),
	}, stats, nil
}

// write wipes the build directory, copies the static tree into it and adds
// the rendered objects.
func (b *Builder) write(ctx context.Context, opts Options, out *rendered) (objects []string, err error) {
	ctx, end := telemetry.StartStep(ctx, "bumptv.build.write")
	defer func() { end(err) }()

	if err := os.RemoveAll(opts.BuildDir); err != nil {
		return nil, fmt.Errorf("wipe build dir: %w", err)
	}
	if err := os.MkdirAll(opts.BuildDir, 0o755); err != nil {
		return nil, fmt.Errorf("create build dir: %w", err)
	}

	store := storage.NewFilesystemStore(opts.BuildDir, b.logger)

	if opts.StaticDir != "" {
		if _, err := os.Stat(opts.StaticDir); errors.Is(err, os.ErrNotExist) {
			b.logger.Warn().Str("static_dir", opts.StaticDir).Msg("static dir missing, build will contain generated files only")
		} else {
			if _, err := storage.PublishDir(ctx, store, opts.StaticDir, b.logger); err != nil {
				return nil, fmt.Errorf("copy static files: %w", err)
			}
		}
	}

	for _, obj := range []struct {
		key  string
		data []byte
	}{
		{MetadataObject, out.metadata},
		{TimelineObject, out.timeline},
		{HTMLObject, out.html},
		{ICalObject, out.ical},
	} {
		if err := store.Put(ctx, obj.key, obj.data, storage.ContentTypeFor(obj.key)); err != nil {
			return nil, fmt.Errorf("write %s: %w", obj.key, err)
		}
		objects = append(objects, obj.key)
	}
	return objects, nil
}

// checkBuildDir refuses build directories whose removal would take inputs or
// the working tree with them.
func checkBuildDir(opts Options) error {
	if strings.TrimSpace(opts.BuildDir) == "" {
		return fmt.Errorf("build dir must be set")
	}
	buildAbs, err := filepath.Abs(opts.BuildDir)
	if err != nil {
		return fmt.Errorf("resolve build dir: %w", err)
	}
	if buildAbs == filepath.Dir(buildAbs) {
		return fmt.Errorf("refusing to use filesystem root %s as build dir", buildAbs)
	}

	for _, in := range []string{opts.MetadataFile, opts.ScheduleFile, opts.VideosDir, opts.StaticDir, "."} {
		if in == "" {
			continue
		}
		inAbs, err := filepath.Abs(in)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", in, err)
		}
		if within(inAbs, buildAbs) {
			return fmt.Errorf("build dir %s contains input %s", opts.BuildDir, in)
		}
	}
	if opts.StaticDir != "" {
		staticAbs, err := filepath.Abs(opts.StaticDir)
		if err != nil {
			return fmt.Errorf("resolve static dir: %w", err)
		}
		if within(buildAbs, staticAbs) {
			return fmt.Errorf("build dir %s lies inside static dir %s", opts.BuildDir, opts.StaticDir)
		}
	}
	return nil
}

// within reports whether path is dir or lies below it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
