/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package dateparse resolves the free-form start date accepted by the CLI.
package dateparse

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

const dayLayout = "2006-01-02"

var parser = newParser()

func newParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// Parse resolves expr relative to now, interpreting calendar words and bare
// dates in loc, and returns the instant in UTC. A nil loc means UTC.
//
// Recognized forms: midnight (the default), today, now, tomorrow,
// YYYY-MM-DD, RFC3339, and English phrases such as "in 3 days" or
// "next friday 18:00".
func Parse(expr string, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	text := strings.ToLower(strings.TrimSpace(expr))

	switch text {
	case "", "midnight", "today":
		return startOfDay(now).UTC(), nil
	case "now":
		return now.UTC(), nil
	case "tomorrow":
		return startOfDay(now).AddDate(0, 0, 1).UTC(), nil
	}

	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(expr)); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation(dayLayout, text, loc); err == nil {
		return t.UTC(), nil
	}

	r, err := parser.Parse(text, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse start date %q: %w", expr, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("unrecognized start date %q", expr)
	}
	return r.Time.UTC(), nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
