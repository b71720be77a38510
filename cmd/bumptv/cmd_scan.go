/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/friendsincode/bumptv/internal/media"
	"github.com/friendsincode/bumptv/internal/schedule"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Probe every video and check it against the metadata",
	Long: `scan walks the videos directory, probes each file's duration (warming the
Redis duration cache when enabled) and reports files that no metadata entry
points at, metadata entries whose file is missing, and files ffprobe cannot
read.

Examples:
  bumptv scan
  bumptv scan --stub -o new_metadata.json`,
	RunE: runScan,
}

var (
	scanOutput  string
	scanWorkers int
	scanStub    bool
)

func init() {
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "", "Output file (default: stdout)")
	scanCmd.Flags().IntVarP(&scanWorkers, "workers", "w", 4, "Parallel probe workers")
	scanCmd.Flags().BoolVar(&scanStub, "stub", false, "Print metadata stubs for unlisted files instead of the report")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	known := map[string]string{}
	if f, err := os.Open(cfg.MetadataFile); err == nil {
		meta, err := schedule.DecodeMetadata(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", cfg.MetadataFile, err)
		}
		for key, m := range meta {
			known[filepath.ToSlash(filepath.Clean(m.Filename))] = key
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("open metadata file: %w", err)
	}

	rt, err := newRuntime(ctx, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	report, err := media.NewScanner(rt.prober, scanWorkers, logger).Scan(ctx, cfg.VideosDir, known)
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if scanOutput != "" {
		f, err := os.Create(scanOutput)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	var doc any = report
	if scanStub {
		doc = metadataStubs(report.Unlisted)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode scan output: %w", err)
	}

	if report.Stats.Errors > 0 || len(report.Missing) > 0 {
		return fmt.Errorf("scan found %d unreadable files and %d missing files", report.Stats.Errors, len(report.Missing))
	}
	return nil
}

// metadataStubs returns placeholder metadata entries keyed by file stem.
func metadataStubs(filenames []string) schedule.Metadata {
	stubs := make(schedule.Metadata, len(filenames))
	for _, name := range filenames {
		stem := strings.TrimSuffix(path.Base(name), path.Ext(name))
		key := stem
		for i := 2; ; i++ {
			if _, taken := stubs[key]; !taken {
				break
			}
			key = fmt.Sprintf("%s-%d", stem, i)
		}
		stubs[key] = schedule.VideoMetadata{
			Title:    stem,
			Filename: name,
		}
	}
	return stubs
}
