/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Readable writes the human-readable schedule: the unlooped total followed by
// every play grouped by calendar day in loc. A nil loc renders in UTC.
func (s *Schedule) Readable(ctx context.Context, w io.Writer, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	seq, err := s.Programming(ctx)
	if err != nil {
		return err
	}
	total, err := s.UnloopedDuration(ctx)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Total schedule programming: %s\n", FormatSpan(total))
	fmt.Fprintf(bw, "(Will loop if necessary to hit %d days of programming)\n", s.Days)

	var lastYear, lastDay int
	var lastMonth time.Month
	for p := range seq {
		local := p.StartsAt.In(loc)
		y, m, d := local.Date()
		if y != lastYear || m != lastMonth || d != lastDay {
			lastYear, lastMonth, lastDay = y, m, d
			fmt.Fprintf(bw, "%s\n", local.Format("Monday January 02"))
		}

		v := p.Video
		fmt.Fprintf(bw, "\n    %s\n        %s — %s\n        %s\n\n        %s\n",
			local.Format("15:04:05"), v.Title, v.Year, v.Creator, v.Description)
	}

	return bw.Flush()
}

// FormatSpan renders a duration as days, hours, minutes and seconds. Seconds
// keep their fraction, so 90.5s is "0 days 0 hours 1 minutes 30.5 seconds".
func FormatSpan(d time.Duration) string {
	mins := int64(d / time.Minute)
	rem := d - time.Duration(mins)*time.Minute
	days := mins / (24 * 60)
	mins %= 24 * 60
	hours := mins / 60
	mins %= 60
	return fmt.Sprintf("%d days %d hours %d minutes %s seconds",
		days, hours, mins, strconv.FormatFloat(rem.Seconds(), 'f', -1, 64))
}
