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

	"github.com/spf13/cobra"

	"github.com/friendsincode/bumptv/internal/config"
	"github.com/friendsincode/bumptv/internal/storage"
	"github.com/friendsincode/bumptv/internal/telemetry"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Upload the build directory",
	Long:  "Upload every file of the build directory to the configured S3 bucket, or copy it to a local document root when no bucket is set.",
	RunE:  runPublish,
}

var (
	publishBucket    string
	publishPrefix    string
	publishTargetDir string
	publishBuildDir  string
)

func init() {
	publishCmd.Flags().StringVar(&publishBucket, "bucket", "", "S3 bucket (default $BUMPTV_S3_BUCKET)")
	publishCmd.Flags().StringVar(&publishPrefix, "prefix", "", "key prefix inside the bucket")
	publishCmd.Flags().StringVar(&publishTargetDir, "target-dir", "", "local directory to publish into instead of S3")
	publishCmd.Flags().StringVar(&publishBuildDir, "build-dir", "", "build directory to upload (default build)")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	fs := cmd.Flags()
	if fs.Changed("bucket") {
		cfg.S3.Bucket = publishBucket
	}
	if fs.Changed("prefix") {
		cfg.S3.Prefix = publishPrefix
	}
	if fs.Changed("target-dir") {
		cfg.PublishDir = publishTargetDir
	}
	if fs.Changed("build-dir") {
		cfg.BuildDir = publishBuildDir
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, target, err := objectStore(ctx, cfg)
	if err != nil {
		return err
	}

	metrics := telemetry.NewMetrics()
	res, err := storage.PublishDir(ctx, store, cfg.BuildDir, logger)
	metrics.PublishedObjects.Add(float64(res.Objects))
	if werr := metrics.WriteTextfile(cfg.MetricsFile); werr != nil {
		logger.Error().Err(werr).Msg("failed to write metrics textfile")
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "published %d objects (%d bytes) to %s\n", res.Objects, res.Bytes, target)
	return nil
}

// objectStore picks the publish target: S3 when a bucket is configured,
// otherwise the local publish directory.
func objectStore(ctx context.Context, c *config.Config) (storage.ObjectStore, string, error) {
	switch {
	case c.S3.Bucket != "":
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			AccessKeyID:     c.S3.AccessKeyID,
			SecretAccessKey: c.S3.SecretAccessKey,
			Region:          c.S3.Region,
			Bucket:          c.S3.Bucket,
			Endpoint:        c.S3.Endpoint,
			Prefix:          c.S3.Prefix,
			UsePathStyle:    c.S3.UsePathStyle,
			CacheControl:    c.S3.CacheControl,
		}, logger)
		if err != nil {
			return nil, "", err
		}
		return store, "s3://" + c.S3.Bucket + "/" + store.ObjectKey(""), nil
	case c.PublishDir != "":
		return storage.NewFilesystemStore(c.PublishDir, logger), c.PublishDir, nil
	default:
		return nil, "", fmt.Errorf("no publish target: set BUMPTV_S3_BUCKET or BUMPTV_PUBLISH_DIR")
	}
}
