/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/friendsincode/bumptv/internal/build"
	"github.com/friendsincode/bumptv/internal/cache"
	"github.com/friendsincode/bumptv/internal/config"
	"github.com/friendsincode/bumptv/internal/dateparse"
	"github.com/friendsincode/bumptv/internal/eventbus"
	"github.com/friendsincode/bumptv/internal/logging"
	"github.com/friendsincode/bumptv/internal/media"
	"github.com/friendsincode/bumptv/internal/telemetry"
	"github.com/friendsincode/bumptv/internal/version"
)

var (
	logger     zerolog.Logger
	cfg        *config.Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:           "bumptv",
	Short:         "BUMP TV - looped video channel schedule builder",
	Long:          "bumptv turns an ordered list of videos into a timestamped, looped broadcast schedule and a static site to publish it.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $BUMPTV_CONFIG)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.Setup(cfg.Environment, cfg.LogLevel)
	for _, w := range cfg.UnknownEnvWarnings {
		logger.Warn().Msg(w)
	}
	return nil
}

// runtime holds the long-lived collaborators of a build command.
type runtime struct {
	builder   *build.Builder
	prober    *media.Service
	metrics   *telemetry.Metrics
	cache     *cache.Cache
	tracer    *telemetry.TracerProvider
	publisher eventbus.Publisher
}

func newRuntime(ctx context.Context, notify bool) (*runtime, error) {
	rt := &runtime{metrics: telemetry.NewMetrics()}

	tp, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
		ServiceName:    "bumptv",
		ServiceVersion: version.Version,
		OTLPEndpoint:   cfg.Tracing.Endpoint,
		Enabled:        cfg.Tracing.Enabled,
		SampleRate:     cfg.Tracing.SampleRate,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize tracer: %w", err)
	}
	rt.tracer = tp

	// A nil *cache.Cache must not reach the service as a non-nil interface.
	var durations media.DurationCache
	if cfg.Redis.Enabled {
		rt.cache = cache.New(ctx, cache.Config{
			RedisAddr:      cfg.Redis.Addr,
			RedisPassword:  cfg.Redis.Password,
			RedisDB:        cfg.Redis.DB,
			DurationTTL:    cfg.Redis.TTL,
			DisableOnError: true,
		}, logger)
		durations = rt.cache
	}

	rt.prober = media.NewService(
		media.NewFFProbe(cfg.FFProbeBin, cfg.ProbeTimeout, logger),
		durations,
		rt.metrics,
		logger,
	)

	opts := []build.Option{build.WithMetrics(rt.metrics)}
	if notify {
		natsCfg := eventbus.DefaultNATSConfig()
		if cfg.NATS.URL != "" {
			natsCfg.URL = cfg.NATS.URL
		}
		natsCfg.Subject = cfg.NATS.Subject
		pub, err := eventbus.NewNATSPublisher(natsCfg, logger)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.publisher = pub
		opts = append(opts, build.WithPublisher(pub))
	}

	rt.builder = build.New(rt.prober, logger, opts...)
	return rt, nil
}

// Close flushes metrics and releases connections.
func (rt *runtime) Close() {
	if err := rt.metrics.WriteTextfile(cfg.MetricsFile); err != nil {
		logger.Error().Err(err).Msg("failed to write metrics textfile")
	}
	if rt.publisher != nil {
		if err := rt.publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close nats connection")
		}
	}
	if rt.cache != nil {
		if err := rt.cache.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close redis connection")
		}
	}
	if rt.tracer != nil {
		if err := rt.tracer.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown tracer provider")
		}
	}
}

// buildOptions resolves the configured inputs into build options. The start
// date is resolved against now in the configured zone.
func buildOptions(c *config.Config, now time.Time) (build.Options, error) {
	loc, err := c.Location()
	if err != nil {
		return build.Options{}, err
	}
	start, err := dateparse.Parse(c.StartDate, now, loc)
	if err != nil {
		return build.Options{}, err
	}
	return build.Options{
		MetadataFile: c.MetadataFile,
		ScheduleFile: c.ScheduleFile,
		VideosDir:    c.VideosDir,
		StaticDir:    c.StaticDir,
		BuildDir:     c.BuildDir,
		Start:        start,
		Days:         c.Days,
		Location:     loc,
		Title:        c.Title,
	}, nil
}
