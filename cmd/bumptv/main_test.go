package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/friendsincode/bumptv/internal/config"
)

func TestBuildFlagsOverrideOnlyChangedValues(t *testing.T) {
	c := config.Default()
	c.BuildDir = "from-config"

	var f buildFlags
	fs := pflag.NewFlagSet("build", pflag.ContinueOnError)
	addBuildFlags(fs, &f)
	if err := fs.Parse([]string{"-l", "3", "--schedule-file", "mine.json", "-d", "2024-01-01"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if err := f.apply(fs, c); err != nil {
		t.Fatalf("apply() error: %v", err)
	}

	if c.Days != 3 {
		t.Errorf("Days = %d, want 3", c.Days)
	}
	if c.ScheduleFile != "mine.json" {
		t.Errorf("ScheduleFile = %q", c.ScheduleFile)
	}
	if c.StartDate != "2024-01-01" {
		t.Errorf("StartDate = %q", c.StartDate)
	}
	if c.BuildDir != "from-config" {
		t.Errorf("BuildDir = %q, unset flag must not override", c.BuildDir)
	}
	if c.MetadataFile != "sample_metadata.json" {
		t.Errorf("MetadataFile = %q", c.MetadataFile)
	}
}

func TestBuildFlagsRejectNegativeDays(t *testing.T) {
	var f buildFlags
	fs := pflag.NewFlagSet("build", pflag.ContinueOnError)
	addBuildFlags(fs, &f)
	if err := fs.Parse([]string{"--days", "-2"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if err := f.apply(fs, config.Default()); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestBuildOptionsResolvesStartInZone(t *testing.T) {
	c := config.Default()
	c.Timezone = "UTC"
	now := time.Date(2024, 5, 5, 13, 0, 0, 0, time.UTC)

	opts, err := buildOptions(c, now)
	if err != nil {
		t.Fatalf("buildOptions() error: %v", err)
	}
	if want := time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC); !opts.Start.Equal(want) {
		t.Errorf("Start = %s, want %s", opts.Start, want)
	}
	if opts.Days != 7 || opts.Location != time.UTC {
		t.Errorf("unexpected options: %+v", opts)
	}

	c.StartDate = "purple monkey dishwasher"
	if _, err := buildOptions(c, now); err == nil {
		t.Error("expected error for unparseable start date")
	}
}

func TestObjectStoreSelection(t *testing.T) {
	c := config.Default()
	if _, _, err := objectStore(context.Background(), c); err == nil {
		t.Error("expected error without a publish target")
	}

	c.PublishDir = filepath.Join(t.TempDir(), "www")
	_, target, err := objectStore(context.Background(), c)
	if err != nil {
		t.Fatalf("objectStore() error: %v", err)
	}
	if target != c.PublishDir {
		t.Errorf("target = %q, want %q", target, c.PublishDir)
	}
}

func TestMetadataStubs(t *testing.T) {
	stubs := metadataStubs([]string{"intro.mp4", "sub/intro.mkv", "outro.webm"})

	if len(stubs) != 3 {
		t.Fatalf("got %d stubs, want 3", len(stubs))
	}
	if stubs["intro"].Filename != "intro.mp4" {
		t.Errorf("intro = %+v", stubs["intro"])
	}
	if stubs["intro-2"].Filename != "sub/intro.mkv" {
		t.Errorf("intro-2 = %+v", stubs["intro-2"])
	}
	if stubs["outro"].Title != "outro" {
		t.Errorf("outro = %+v", stubs["outro"])
	}
}
