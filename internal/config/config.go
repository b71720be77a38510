/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config covers process level configuration. Values come from defaults, then
// an optional YAML file, then environment variables (a .env file is loaded
// into the environment first). CLI flags are applied by the caller.
type Config struct {
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`

	MetadataFile string        `yaml:"metadata_file"`
	ScheduleFile string        `yaml:"schedule_file"`
	VideosDir    string        `yaml:"videos_dir"`
	StaticDir    string        `yaml:"static_dir"`
	BuildDir     string        `yaml:"build_dir"`
	StartDate    string        `yaml:"start_date"`
	Days         int           `yaml:"days"`
	Timezone     string        `yaml:"timezone"` // IANA name; empty means the host zone
	Title        string        `yaml:"title"`
	FFProbeBin   string        `yaml:"ffprobe_bin"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	MetricsFile  string        `yaml:"metrics_file"` // node_exporter textfile target
	PublishDir   string        `yaml:"publish_dir"`  // filesystem publish target when no bucket is set

	Redis   RedisConfig   `yaml:"redis"`
	Tracing TracingConfig `yaml:"tracing"`
	NATS    NATSConfig    `yaml:"nats"`
	S3      S3Config      `yaml:"s3"`

	UnknownEnvWarnings []string `yaml:"-"`
}

// RedisConfig configures the probe duration cache.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// TracingConfig configures OTLP span export.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`
	SampleRate float64 `yaml:"sample_rate"`
}

// NATSConfig configures the build-completed notification.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// S3Config configures publishing the build directory.
type S3Config struct {
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Endpoint        string `yaml:"endpoint"` // For S3-compatible services (MinIO, Spaces, etc.)
	Prefix          string `yaml:"prefix"`
	UsePathStyle    bool   `yaml:"use_path_style"` // Required for MinIO
	CacheControl    string `yaml:"cache_control"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Environment:  "development",
		MetadataFile: "sample_metadata.json",
		ScheduleFile: "sample_schedule.json",
		VideosDir:    "videos",
		StaticDir:    "static",
		BuildDir:     "build",
		StartDate:    "midnight",
		Days:         7,
		Title:        "BUMP TV",
		FFProbeBin:   "ffprobe",
		ProbeTimeout: 30 * time.Second,
		Redis: RedisConfig{
			Addr: "localhost:6379",
			TTL:  30 * 24 * time.Hour,
		},
		Tracing: TracingConfig{
			Endpoint:   "localhost:4317",
			SampleRate: 1.0,
		},
		NATS: NATSConfig{
			Subject: "bumptv.schedule.built",
		},
		S3: S3Config{
			Region:       "us-east-1",
			CacheControl: "public, max-age=300",
		},
	}
}

// Load reads the optional .env and YAML files and the environment, then
// validates the result. configPath may be empty, in which case BUMPTV_CONFIG
// is consulted.
func Load(configPath string) (*Config, error) {
	envFile := getEnvAny([]string{"BUMPTV_ENV_FILE"}, ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := Default()

	if configPath == "" {
		configPath = os.Getenv("BUMPTV_CONFIG")
	}
	if configPath != "" {
		if err := cfg.loadFile(configPath); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.UnknownEnvWarnings = detectUnknownEnvKeys()

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Environment = getEnvAny([]string{"BUMPTV_ENV"}, c.Environment)
	c.LogLevel = getEnvAny([]string{"BUMPTV_LOG_LEVEL"}, c.LogLevel)

	c.MetadataFile = getEnvAny([]string{"BUMPTV_METADATA_FILE"}, c.MetadataFile)
	c.ScheduleFile = getEnvAny([]string{"BUMPTV_SCHEDULE_FILE"}, c.ScheduleFile)
	c.VideosDir = getEnvAny([]string{"BUMPTV_VIDEOS_DIR"}, c.VideosDir)
	c.StaticDir = getEnvAny([]string{"BUMPTV_STATIC_DIR"}, c.StaticDir)
	c.BuildDir = getEnvAny([]string{"BUMPTV_BUILD_DIR"}, c.BuildDir)
	c.StartDate = getEnvAny([]string{"BUMPTV_START_DATE"}, c.StartDate)
	c.Days = getEnvIntAny([]string{"BUMPTV_DAYS"}, c.Days)
	c.Timezone = getEnvAny([]string{"BUMPTV_TIMEZONE"}, c.Timezone)
	c.Title = getEnvAny([]string{"BUMPTV_TITLE"}, c.Title)
	c.FFProbeBin = getEnvAny([]string{"BUMPTV_FFPROBE_BIN", "FFPROBE_BIN"}, c.FFProbeBin)
	c.ProbeTimeout = getEnvDurationAny([]string{"BUMPTV_PROBE_TIMEOUT"}, c.ProbeTimeout)
	c.MetricsFile = getEnvAny([]string{"BUMPTV_METRICS_FILE"}, c.MetricsFile)
	c.PublishDir = getEnvAny([]string{"BUMPTV_PUBLISH_DIR"}, c.PublishDir)

	c.Redis.Enabled = getEnvBoolAny([]string{"BUMPTV_REDIS_ENABLED"}, c.Redis.Enabled)
	c.Redis.Addr = getEnvAny([]string{"BUMPTV_REDIS_ADDR", "REDIS_ADDR"}, c.Redis.Addr)
	c.Redis.Password = getEnvAny([]string{"BUMPTV_REDIS_PASSWORD", "REDIS_PASSWORD"}, c.Redis.Password)
	c.Redis.DB = getEnvIntAny([]string{"BUMPTV_REDIS_DB"}, c.Redis.DB)
	c.Redis.TTL = getEnvDurationAny([]string{"BUMPTV_REDIS_TTL"}, c.Redis.TTL)

	c.Tracing.Enabled = getEnvBoolAny([]string{"BUMPTV_TRACING_ENABLED"}, c.Tracing.Enabled)
	c.Tracing.Endpoint = getEnvAny([]string{"BUMPTV_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"}, c.Tracing.Endpoint)
	c.Tracing.SampleRate = getEnvFloatAny([]string{"BUMPTV_TRACING_SAMPLE_RATE"}, c.Tracing.SampleRate)

	c.NATS.URL = getEnvAny([]string{"BUMPTV_NATS_URL", "NATS_URL"}, c.NATS.URL)
	c.NATS.Subject = getEnvAny([]string{"BUMPTV_NATS_SUBJECT"}, c.NATS.Subject)

	c.S3.AccessKeyID = getEnvAny([]string{"BUMPTV_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"}, c.S3.AccessKeyID)
	c.S3.SecretAccessKey = getEnvAny([]string{"BUMPTV_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"}, c.S3.SecretAccessKey)
	c.S3.Region = getEnvAny([]string{"BUMPTV_S3_REGION", "AWS_REGION"}, c.S3.Region)
	c.S3.Bucket = getEnvAny([]string{"BUMPTV_S3_BUCKET", "S3_BUCKET"}, c.S3.Bucket)
	c.S3.Endpoint = getEnvAny([]string{"BUMPTV_S3_ENDPOINT", "S3_ENDPOINT"}, c.S3.Endpoint)
	c.S3.Prefix = getEnvAny([]string{"BUMPTV_S3_PREFIX"}, c.S3.Prefix)
	c.S3.UsePathStyle = getEnvBoolAny([]string{"BUMPTV_S3_USE_PATH_STYLE", "S3_USE_PATH_STYLE"}, c.S3.UsePathStyle)
	c.S3.CacheControl = getEnvAny([]string{"BUMPTV_S3_CACHE_CONTROL"}, c.S3.CacheControl)
}

// Validate checks values that would otherwise fail deep inside a build.
func (c *Config) Validate() error {
	if c.MetadataFile == "" {
		return fmt.Errorf("metadata file must be set")
	}
	if c.ScheduleFile == "" {
		return fmt.Errorf("schedule file must be set")
	}
	if c.BuildDir == "" {
		return fmt.Errorf("build dir must be set")
	}
	if c.Days < 0 {
		return fmt.Errorf("days must not be negative, got %d", c.Days)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe timeout must be positive, got %s", c.ProbeTimeout)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing sample rate must be between 0 and 1, got %v", c.Tracing.SampleRate)
	}
	if (c.S3.AccessKeyID == "") != (c.S3.SecretAccessKey == "") {
		return fmt.Errorf("BUMPTV_S3_ACCESS_KEY_ID and BUMPTV_S3_SECRET_ACCESS_KEY must be set together")
	}
	if strings.EqualFold(c.Environment, "production") && c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("BUMPTV_REDIS_ADDR is required when the probe cache is enabled in production")
	}
	return nil
}

// Location resolves the display timezone. An empty name is the host zone,
// which time.Local already derives from TZ.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

var knownEnvKeys = map[string]bool{
	"BUMPTV_CONFIG": true, "BUMPTV_ENV_FILE": true,
	"BUMPTV_ENV": true, "BUMPTV_LOG_LEVEL": true,
	"BUMPTV_METADATA_FILE": true, "BUMPTV_SCHEDULE_FILE": true,
	"BUMPTV_VIDEOS_DIR": true, "BUMPTV_STATIC_DIR": true, "BUMPTV_BUILD_DIR": true,
	"BUMPTV_START_DATE": true, "BUMPTV_DAYS": true, "BUMPTV_TIMEZONE": true, "BUMPTV_TITLE": true,
	"BUMPTV_FFPROBE_BIN": true, "BUMPTV_PROBE_TIMEOUT": true,
	"BUMPTV_METRICS_FILE": true, "BUMPTV_PUBLISH_DIR": true,
	"BUMPTV_REDIS_ENABLED": true, "BUMPTV_REDIS_ADDR": true, "BUMPTV_REDIS_PASSWORD": true,
	"BUMPTV_REDIS_DB": true, "BUMPTV_REDIS_TTL": true,
	"BUMPTV_TRACING_ENABLED": true, "BUMPTV_OTLP_ENDPOINT": true, "BUMPTV_TRACING_SAMPLE_RATE": true,
	"BUMPTV_NATS_URL": true, "BUMPTV_NATS_SUBJECT": true,
	"BUMPTV_S3_ACCESS_KEY_ID": true, "BUMPTV_S3_SECRET_ACCESS_KEY": true, "BUMPTV_S3_REGION": true,
	"BUMPTV_S3_BUCKET": true, "BUMPTV_S3_ENDPOINT": true, "BUMPTV_S3_PREFIX": true,
	"BUMPTV_S3_USE_PATH_STYLE": true, "BUMPTV_S3_CACHE_CONTROL": true,
}

// detectUnknownEnvKeys flags BUMPTV_ variables that nothing reads, which is
// almost always a typo.
func detectUnknownEnvKeys() []string {
	var warnings []string
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(key, "BUMPTV_") || knownEnvKeys[key] {
			continue
		}
		warnings = append(warnings, fmt.Sprintf("env key %s is not recognized", key))
	}
	sort.Strings(warnings)
	return warnings
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvDurationAny accepts Go duration strings ("90s") or bare seconds.
func getEnvDurationAny(keys []string, def time.Duration) time.Duration {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := time.ParseDuration(v); err == nil {
				return parsed
			}
			if secs, err := strconv.Atoi(v); err == nil {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return def
}
