/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/friendsincode/bumptv/internal/config"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the schedule and static site",
	Long:  "Load the metadata and schedule files, generate the looped schedule, print it and write the build directory.",
	RunE:  runBuild,
}

// buildFlags are shared by build and watch.
type buildFlags struct {
	scheduleFile string
	metadataFile string
	startDate    string
	days         int
	videosDir    string
	staticDir    string
	buildDir     string
	timezone     string
	metricsFile  string
	notify       bool
}

var flags buildFlags

func addBuildFlags(fs *pflag.FlagSet, f *buildFlags) {
	fs.StringVarP(&f.scheduleFile, "schedule-file", "s", "", "JSON array of video keys (default sample_schedule.json)")
	fs.StringVarP(&f.metadataFile, "metadata-file", "m", "", "JSON video metadata (default sample_metadata.json)")
	fs.StringVarP(&f.startDate, "start-date", "d", "", "schedule start, e.g. midnight, tomorrow, 2024-01-01 (default midnight)")
	fs.IntVarP(&f.days, "days", "l", 0, "minimum days of programming (default 7)")
	fs.StringVar(&f.videosDir, "videos-dir", "", "directory holding the video files")
	fs.StringVar(&f.staticDir, "static-dir", "", "static site copied into the build")
	fs.StringVar(&f.buildDir, "build-dir", "", "output directory, wiped on every build")
	fs.StringVar(&f.timezone, "timezone", "", "IANA zone for the readable schedule (default host zone)")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	fs.BoolVar(&f.notify, "notify", false, "publish a NATS message after a successful build")
}

// apply overrides c with every flag the user set explicitly.
func (f *buildFlags) apply(fs *pflag.FlagSet, c *config.Config) error {
	if fs.Changed("schedule-file") {
		c.ScheduleFile = f.scheduleFile
	}
	if fs.Changed("metadata-file") {
		c.MetadataFile = f.metadataFile
	}
	if fs.Changed("start-date") {
		c.StartDate = f.startDate
	}
	if fs.Changed("days") {
		c.Days = f.days
	}
	if fs.Changed("videos-dir") {
		c.VideosDir = f.videosDir
	}
	if fs.Changed("static-dir") {
		c.StaticDir = f.staticDir
	}
	if fs.Changed("build-dir") {
		c.BuildDir = f.buildDir
	}
	if fs.Changed("timezone") {
		c.Timezone = f.timezone
	}
	if fs.Changed("metrics-file") {
		c.MetricsFile = f.metricsFile
	}
	return c.Validate()
}

func init() {
	addBuildFlags(buildCmd.Flags(), &flags)
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	if err := flags.apply(cmd.Flags(), cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, flags.notify)
	if err != nil {
		return err
	}
	defer rt.Close()

	opts, err := buildOptions(cfg, time.Now())
	if err != nil {
		return err
	}

	res, err := rt.builder.Build(ctx, opts)
	if res != nil {
		fmt.Fprint(cmd.OutOrStdout(), res.Readable)
	}
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	return nil
}
