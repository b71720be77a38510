/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNATSMessageRoundTrip(t *testing.T) {
	ev := ScheduleBuilt{
		BuildID: "b-1",
		Start:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:     time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
		Days:    7,
		Videos:  3,
		Plays:   8,
	}

	data, err := marshalNATSMessage(EventScheduleBuilt, ev, "node-a")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"event_type":"schedule.built"`) {
		t.Errorf("missing event type: %s", data)
	}

	msg, err := unmarshalNATSMessage(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.NodeID != "node-a" || msg.MessageID == "" {
		t.Errorf("unexpected envelope: %+v", msg)
	}
	if msg.Payload.BuildID != "b-1" || msg.Payload.Plays != 8 || !msg.Payload.Start.Equal(ev.Start) {
		t.Errorf("payload mismatch: %+v", msg.Payload)
	}
}

func TestMessageIDsAreUnique(t *testing.T) {
	a, _ := marshalNATSMessage(EventScheduleBuilt, ScheduleBuilt{}, "n")
	b, _ := marshalNATSMessage(EventScheduleBuilt, ScheduleBuilt{}, "n")
	ma, _ := unmarshalNATSMessage(a)
	mb, _ := unmarshalNATSMessage(b)
	if ma.MessageID == mb.MessageID {
		t.Fatal("expected distinct message ids")
	}
}

func TestNewNATSPublisherValidation(t *testing.T) {
	if _, err := NewNATSPublisher(NATSConfig{Subject: "x"}, zerolog.Nop()); err == nil {
		t.Error("expected error without url")
	}
	if _, err := NewNATSPublisher(NATSConfig{URL: "nats://127.0.0.1:4222"}, zerolog.Nop()); err == nil {
		t.Error("expected error without subject")
	}
}

func TestNewNATSPublisherUnreachable(t *testing.T) {
	cfg := DefaultNATSConfig()
	cfg.URL = "nats://127.0.0.1:1"
	cfg.Timeout = 200 * time.Millisecond
	cfg.MaxReconnects = 0

	if _, err := NewNATSPublisher(cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected connection error")
	}
}
