/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"
)

// TimelineEntry is one [epoch_seconds, key] pair of the JSON timeline.
type TimelineEntry struct {
	Timestamp float64
	Key       string
}

// MarshalJSON encodes the entry as a two element array.
func (e TimelineEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.Timestamp, e.Key})
}

// UnmarshalJSON decodes a two element [number, string] array.
func (e *TimelineEntry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("timeline entry: want 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.Timestamp); err != nil {
		return fmt.Errorf("timeline entry timestamp: %w", err)
	}
	if err := json.Unmarshal(pair[1], &e.Key); err != nil {
		return fmt.Errorf("timeline entry key: %w", err)
	}
	return nil
}

// EpochSeconds converts an instant to fractional Unix seconds.
func EpochSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// Timeline returns every play as an epoch/key pair.
func (s *Schedule) Timeline(ctx context.Context) ([]TimelineEntry, error) {
	seq, err := s.Programming(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]TimelineEntry, 0)
	for p := range seq {
		entries = append(entries, TimelineEntry{Timestamp: EpochSeconds(p.StartsAt), Key: p.Video.Key})
	}
	return entries, nil
}

// WriteTimeline writes the JSON timeline export. Timestamps are UTC epoch
// seconds regardless of the schedule's zone.
func (s *Schedule) WriteTimeline(ctx context.Context, w io.Writer) error {
	entries, err := s.Timeline(ctx)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		return fmt.Errorf("encode timeline: %w", err)
	}
	return nil
}

// WriteICal writes every play as a VEVENT of an iCalendar feed.
func (s *Schedule) WriteICal(ctx context.Context, w io.Writer, calName string) error {
	seq, err := s.Programming(ctx)
	if err != nil {
		return err
	}
	stamp := formatICalTime(time.Now())
	bw := bufio.NewWriter(w)
	bw.WriteString("BEGIN:VCALENDAR\r\n")
	bw.WriteString("VERSION:2.0\r\n")
	bw.WriteString("PRODID:-//bumptv//Schedule Export//EN\r\n")
	fmt.Fprintf(bw, "X-WR-CALNAME:%s\r\n", escapeICalText(calName))
	bw.WriteString("CALSCALE:GREGORIAN\r\n")
	bw.WriteString("METHOD:PUBLISH\r\n")

	for p := range seq {
		v := p.Video
		bw.WriteString("BEGIN:VEVENT\r\n")
		fmt.Fprintf(bw, "UID:%d-%d-%s@bumptv\r\n", p.StartsAt.Unix(), p.Index, slugify(v.Key))
		fmt.Fprintf(bw, "DTSTAMP:%s\r\n", stamp)
		fmt.Fprintf(bw, "DTSTART:%s\r\n", formatICalTime(p.StartsAt))
		fmt.Fprintf(bw, "DTEND:%s\r\n", formatICalTime(p.EndsAt()))
		fmt.Fprintf(bw, "SUMMARY:%s\r\n", escapeICalText(v.Title))
		if v.Description != "" {
			fmt.Fprintf(bw, "DESCRIPTION:%s\r\n", escapeICalText(v.Description))
		}
		bw.WriteString("END:VEVENT\r\n")
	}

	bw.WriteString("END:VCALENDAR\r\n")
	return bw.Flush()
}

type htmlPlay struct {
	Time        string
	Title       string
	Year        Year
	Creator     string
	Description string
}

type htmlDay struct {
	Heading string
	Plays   []htmlPlay
}

var htmlTemplate = template.Must(template.New("schedule").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <style>
        body { font-family: Arial, sans-serif; font-size: 11pt; line-height: 1.4; }
        h1 { font-size: 18pt; border-bottom: 2px solid #333; padding-bottom: 3mm; }
        h2 { font-size: 14pt; margin-top: 5mm; color: #444; }
        .day { page-break-inside: avoid; margin-bottom: 5mm; }
        table { width: 100%; border-collapse: collapse; }
        th, td { padding: 2mm 3mm; text-align: left; border-bottom: 1px solid #ddd; vertical-align: top; }
        .time { width: 12%; white-space: nowrap; }
        .creator, .description { color: #666; }
    </style>
</head>
<body>
    <h1>{{.Title}}</h1>
    <p class="total">Total schedule programming: {{.Total}}</p>
{{range .Days}}    <div class="day">
        <h2>{{.Heading}}</h2>
        <table>
{{range .Plays}}            <tr class="play">
                <td class="time">{{.Time}}</td>
                <td><span class="title">{{.Title}}</span> — <span class="year">{{.Year}}</span><div class="creator">{{.Creator}}</div><div class="description">{{.Description}}</div></td>
            </tr>
{{end}}        </table>
    </div>
{{end}}</body>
</html>
`))

// WriteHTML writes a printable page of the schedule grouped by day in loc.
func (s *Schedule) WriteHTML(ctx context.Context, w io.Writer, loc *time.Location, title string) error {
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

	var days []htmlDay
	for p := range seq {
		local := p.StartsAt.In(loc)
		heading := local.Format("Monday, January 2")
		if len(days) == 0 || days[len(days)-1].Heading != heading {
			days = append(days, htmlDay{Heading: heading})
		}
		v := p.Video
		cur := &days[len(days)-1]
		cur.Plays = append(cur.Plays, htmlPlay{
			Time:        local.Format("15:04:05"),
			Title:       v.Title,
			Year:        v.Year,
			Creator:     v.Creator,
			Description: v.Description,
		})
	}

	return htmlTemplate.Execute(w, struct {
		Title string
		Total string
		Days  []htmlDay
	}{Title: title, Total: FormatSpan(total), Days: days})
}

func formatICalTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

func escapeICalText(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func slugify(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "-")
	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
