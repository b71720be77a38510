/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package media

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultProbeTimeout bounds a single ffprobe invocation.
const DefaultProbeTimeout = 30 * time.Second

// FFProbe resolves media durations by running ffprobe.
type FFProbe struct {
	bin     string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewFFProbe creates a prober for the given ffprobe binary.
func NewFFProbe(bin string, timeout time.Duration, logger zerolog.Logger) *FFProbe {
	if bin == "" {
		bin = "ffprobe"
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &FFProbe{
		bin:     bin,
		timeout: timeout,
		logger:  logger.With().Str("component", "ffprobe").Logger(),
	}
}

// Duration runs ffprobe on filePath and returns the container duration.
func (p *FFProbe) Duration(ctx context.Context, filePath string) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.bin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		filePath,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	d, err := parseProbeOutput(output)
	if err != nil {
		return 0, err
	}

	p.logger.Debug().Str("path", filePath).Dur("duration", d).Msg("probed media duration")
	return d, nil
}

// parseProbeOutput extracts format.duration from ffprobe JSON output.
func parseProbeOutput(output []byte) (time.Duration, error) {
	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(output, &probe); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}

	raw := strings.TrimSpace(probe.Format.Duration)
	if raw == "" || raw == "N/A" {
		return 0, fmt.Errorf("ffprobe reported no duration")
	}

	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", raw, err)
	}

	return SecondsToDuration(secs), nil
}

// SecondsToDuration converts fractional seconds, rounding to the nearest
// nanosecond.
func SecondsToDuration(secs float64) time.Duration {
	return time.Duration(math.Round(secs * float64(time.Second)))
}
