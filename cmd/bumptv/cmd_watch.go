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

	"github.com/friendsincode/bumptv/internal/build"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild whenever the inputs change",
	Long:  "Build once, then rebuild after every change to the metadata file, the schedule file, the static site or the videos directory.",
	RunE:  runWatch,
}

var (
	watchFlags    buildFlags
	watchDebounce time.Duration
)

func init() {
	addBuildFlags(watchCmd.Flags(), &watchFlags)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", build.DefaultDebounce, "quiet period before a rebuild")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	if err := watchFlags.apply(cmd.Flags(), cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, watchFlags.notify)
	if err != nil {
		return err
	}
	defer rt.Close()

	rebuild := func(ctx context.Context) {
		// Relative start dates such as "midnight" move with the clock.
		opts, err := buildOptions(cfg, time.Now())
		if err != nil {
			logger.Error().Err(err).Msg("invalid build options")
			return
		}
		// Failures are logged by the builder; keep watching.
		if res, _ := rt.builder.Build(ctx, opts); res != nil {
			fmt.Fprint(cmd.OutOrStdout(), res.Readable)
		}
		if err := rt.metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error().Err(err).Msg("failed to write metrics textfile")
		}
	}

	rebuild(ctx)

	dirs := []string{}
	for _, d := range []string{cfg.StaticDir, cfg.VideosDir} {
		if d == "" {
			continue
		}
		if _, err := os.Stat(d); err == nil {
			dirs = append(dirs, d)
		}
	}

	return build.Watch(ctx, build.WatchConfig{
		Files:    []string{cfg.MetadataFile, cfg.ScheduleFile},
		Dirs:     dirs,
		Ignore:   []string{cfg.BuildDir},
		Debounce: watchDebounce,
	}, rebuild, logger)
}
