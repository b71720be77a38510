/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package build

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/friendsincode/bumptv/internal/eventbus"
	"github.com/friendsincode/bumptv/internal/schedule"
	"github.com/friendsincode/bumptv/internal/telemetry"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

const testMetadata = `{
  "a": {"title": "Alpha", "creator": "Ann", "year": 1999, "description": "First", "filename": "a.mp4"},
  "b": {"title": "Beta", "creator": "Bob", "year": "2001", "description": "Second", "filename": "b.mp4"},
  "c": {"title": "Gamma", "creator": "Cid", "year": 2003, "description": "Third", "filename": "c.mp4"}
}`

type fixture struct {
	opts Options
	dir  string
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newFixture(t *testing.T, keys string) fixture {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "metadata.json"), testMetadata)
	writeFile(t, filepath.Join(dir, "schedule.json"), keys)
	for _, name := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		writeFile(t, filepath.Join(dir, "videos", name), "")
	}
	writeFile(t, filepath.Join(dir, "static", "index.html"), "<html></html>")
	writeFile(t, filepath.Join(dir, "static", "js", "app.js"), "void 0")
	writeFile(t, filepath.Join(dir, "build", "stale.txt"), "old")

	return fixture{
		dir: dir,
		opts: Options{
			MetadataFile: filepath.Join(dir, "metadata.json"),
			ScheduleFile: filepath.Join(dir, "schedule.json"),
			VideosDir:    filepath.Join(dir, "videos"),
			StaticDir:    filepath.Join(dir, "static"),
			BuildDir:     filepath.Join(dir, "build"),
			Start:        testStart,
			Days:         7,
			Location:     time.UTC,
			Title:        "BUMP TV",
		},
	}
}

func dayProber() schedule.Prober {
	return schedule.ProberFunc(func(ctx context.Context, path string) (time.Duration, error) {
		return 24 * time.Hour, nil
	})
}

type recordingPublisher struct {
	events []eventbus.ScheduleBuilt
	err    error
}

func (p *recordingPublisher) PublishBuilt(ctx context.Context, ev eventbus.ScheduleBuilt) error {
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func TestBuildWritesOutputs(t *testing.T) {
	fx := newFixture(t, `["a", "b", "c"]`)
	metrics := telemetry.NewMetrics()
	pub := &recordingPublisher{}

	res, err := New(dayProber(), zerolog.Nop(), WithMetrics(metrics), WithPublisher(pub)).Build(context.Background(), fx.opts)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if res.Plays != 8 {
		t.Errorf("Plays = %d, want 8", res.Plays)
	}
	if res.Videos != 3 {
		t.Errorf("Videos = %d, want 3", res.Videos)
	}
	if res.Unlooped != 72*time.Hour {
		t.Errorf("Unlooped = %s, want 72h", res.Unlooped)
	}
	if res.Coverage != 8*24*time.Hour {
		t.Errorf("Coverage = %s, want 192h", res.Coverage)
	}
	if !strings.HasPrefix(res.Readable, "Total schedule programming: 3 days 0 hours 0 minutes 0 seconds\n") {
		t.Errorf("unexpected readable header: %q", res.Readable)
	}
	if res.BuildID == "" {
		t.Error("expected a build id")
	}

	build := fx.opts.BuildDir
	if _, err := os.Stat(filepath.Join(build, "stale.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("stale file survived the rebuild: %v", err)
	}
	for _, rel := range []string{"index.html", "js/app.js", HTMLObject, ICalObject} {
		if _, err := os.Stat(filepath.Join(build, filepath.FromSlash(rel))); err != nil {
			t.Errorf("missing %s: %v", rel, err)
		}
	}

	meta, err := os.ReadFile(filepath.Join(build, MetadataObject))
	if err != nil {
		t.Fatalf("read metadata copy: %v", err)
	}
	if string(meta) != testMetadata {
		t.Error("metadata.json is not a verbatim copy of the input")
	}

	data, err := os.ReadFile(filepath.Join(build, TimelineObject))
	if err != nil {
		t.Fatalf("read timeline: %v", err)
	}
	var timeline []schedule.TimelineEntry
	if err := json.Unmarshal(data, &timeline); err != nil {
		t.Fatalf("decode timeline: %v", err)
	}
	want := []string{"a", "b", "c", "a", "b", "c", "a", "b"}
	if len(timeline) != len(want) {
		t.Fatalf("timeline has %d entries, want %d", len(timeline), len(want))
	}
	for i, e := range timeline {
		if e.Key != want[i] {
			t.Errorf("timeline[%d].Key = %q, want %q", i, e.Key, want[i])
		}
		if wantTS := schedule.EpochSeconds(testStart.AddDate(0, 0, i)); e.Timestamp != wantTS {
			t.Errorf("timeline[%d].Timestamp = %v, want %v", i, e.Timestamp, wantTS)
		}
	}

	if len(pub.events) != 1 || pub.events[0].BuildID != res.BuildID || pub.events[0].Plays != 8 {
		t.Errorf("unexpected notifications: %+v", pub.events)
	}

	if got := testutil.ToFloat64(metrics.PlaysGenerated); got != 8 {
		t.Errorf("plays gauge = %v, want 8", got)
	}
	if got := testutil.ToFloat64(metrics.BuildsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("successful builds = %v, want 1", got)
	}
}

func TestBuildFailuresLeaveBuildDirUntouched(t *testing.T) {
	tests := []struct {
		name   string
		keys   string
		target error
	}{
		{"empty schedule", `[]`, schedule.ErrDegenerateSchedule},
		{"unknown key", `["a", "zzz"]`, schedule.ErrUnknownVideoKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, tt.keys)
			metrics := telemetry.NewMetrics()

			_, err := New(dayProber(), zerolog.Nop(), WithMetrics(metrics)).Build(context.Background(), fx.opts)
			if !errors.Is(err, tt.target) {
				t.Fatalf("Build() error = %v, want %v", err, tt.target)
			}

			if _, err := os.Stat(filepath.Join(fx.opts.BuildDir, "stale.txt")); err != nil {
				t.Errorf("previous build was wiped: %v", err)
			}
			if _, err := os.Stat(filepath.Join(fx.opts.BuildDir, TimelineObject)); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("timeline written on failure: %v", err)
			}
			if got := testutil.ToFloat64(metrics.BuildsTotal.WithLabelValues("failure")); got != 1 {
				t.Errorf("failed builds = %v, want 1", got)
			}
		})
	}
}

func TestBuildMissingAsset(t *testing.T) {
	fx := newFixture(t, `["a"]`)
	if err := os.Remove(filepath.Join(fx.opts.VideosDir, "b.mp4")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	_, err := New(dayProber(), zerolog.Nop()).Build(context.Background(), fx.opts)
	var notFound *schedule.AssetNotFoundError
	if !errors.As(err, &notFound) || notFound.Key != "b" {
		t.Fatalf("Build() error = %v, want missing asset for b", err)
	}
}

func TestBuildProbeFailure(t *testing.T) {
	fx := newFixture(t, `["a", "b"]`)
	prober := schedule.ProberFunc(func(ctx context.Context, path string) (time.Duration, error) {
		return 0, errors.New("moov atom not found")
	})

	_, err := New(prober, zerolog.Nop()).Build(context.Background(), fx.opts)
	if !errors.Is(err, schedule.ErrProbeFailed) {
		t.Fatalf("Build() error = %v, want probe failure", err)
	}
}

func TestBuildWithoutStaticDir(t *testing.T) {
	fx := newFixture(t, `["a"]`)
	fx.opts.StaticDir = filepath.Join(fx.dir, "no-static")

	res, err := New(dayProber(), zerolog.Nop()).Build(context.Background(), fx.opts)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(res.Objects) != 4 {
		t.Errorf("Objects = %v, want the four generated files", res.Objects)
	}
}

func TestBuildNotifyFailureIsReported(t *testing.T) {
	fx := newFixture(t, `["a"]`)
	pub := &recordingPublisher{err: errors.New("nats: timeout")}

	res, err := New(dayProber(), zerolog.Nop(), WithPublisher(pub)).Build(context.Background(), fx.opts)
	if err == nil {
		t.Fatal("expected notify error")
	}
	if res == nil {
		t.Fatal("expected the result of the completed build")
	}
	if _, statErr := os.Stat(filepath.Join(fx.opts.BuildDir, TimelineObject)); statErr != nil {
		t.Errorf("build output missing: %v", statErr)
	}
}

func TestCheckBuildDir(t *testing.T) {
	dir := t.TempDir()
	base := Options{
		MetadataFile: filepath.Join(dir, "in", "metadata.json"),
		ScheduleFile: filepath.Join(dir, "in", "schedule.json"),
		VideosDir:    filepath.Join(dir, "videos"),
		StaticDir:    filepath.Join(dir, "static"),
		BuildDir:     filepath.Join(dir, "build"),
	}

	if err := checkBuildDir(base); err != nil {
		t.Fatalf("checkBuildDir() error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"empty", func(o *Options) { o.BuildDir = "" }},
		{"root", func(o *Options) { o.BuildDir = string(filepath.Separator) }},
		{"contains inputs", func(o *Options) { o.BuildDir = filepath.Join(dir, "in") }},
		{"equals videos", func(o *Options) { o.BuildDir = o.VideosDir }},
		{"inside static", func(o *Options) { o.BuildDir = filepath.Join(o.StaticDir, "build") }},
		{"working directory", func(o *Options) { o.BuildDir = "." }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := base
			tt.mutate(&opts)
			if err := checkBuildDir(opts); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
