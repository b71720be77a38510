/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// EventScheduleBuilt is the event type carried by build notifications.
const EventScheduleBuilt = "schedule.built"

// ScheduleBuilt describes a completed build.
type ScheduleBuilt struct {
	BuildID         string    `json:"build_id"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	Days            int       `json:"days"`
	Videos          int       `json:"videos"`
	Plays           int       `json:"plays"`
	CoverageSeconds float64   `json:"coverage_seconds"`
	BuildDir        string    `json:"build_dir"`
}

// Publisher announces completed builds.
type Publisher interface {
	PublishBuilt(ctx context.Context, ev ScheduleBuilt) error
	Close() error
}

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL     string
	Subject string
	Token   string

	// Connection options
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Subject:       "bumptv.schedule.built",
		MaxReconnects: 3,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NATSPublisher publishes build notifications on a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	timeout time.Duration
	nodeID  string
	logger  zerolog.Logger
}

// NewNATSPublisher connects to NATS. Unlike the probe cache there is no
// silent fallback: --notify was asked for explicitly, so a dead server is an
// error.
func NewNATSPublisher(cfg NATSConfig, logger zerolog.Logger) (*NATSPublisher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	if cfg.Subject == "" {
		return nil, fmt.Errorf("nats subject is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultNATSConfig().Timeout
	}

	logger = logger.With().Str("component", "nats").Logger()

	opts := []nats.Option{
		nats.Name("bumptv"),
		nats.Timeout(cfg.Timeout),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}

	logger.Debug().Str("url", conn.ConnectedUrl()).Str("subject", cfg.Subject).Msg("connected to nats")

	return &NATSPublisher{
		conn:    conn,
		subject: cfg.Subject,
		timeout: cfg.Timeout,
		nodeID:  generateNodeID(),
		logger:  logger,
	}, nil
}

// PublishBuilt publishes ev and waits for the server to acknowledge the flush.
func (p *NATSPublisher) PublishBuilt(ctx context.Context, ev ScheduleBuilt) error {
	data, err := marshalNATSMessage(EventScheduleBuilt, ev, p.nodeID)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}

	flushCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.conn.FlushWithContext(flushCtx); err != nil {
		return fmt.Errorf("flush %s: %w", p.subject, err)
	}

	p.logger.Info().
		Str("subject", p.subject).
		Str("build_id", ev.BuildID).
		Int("plays", ev.Plays).
		Msg("build notification published")
	return nil
}

// Close drains and closes the NATS connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

// natsMessage represents a message published to NATS.
type natsMessage struct {
	EventType string        `json:"event_type"`
	Payload   ScheduleBuilt `json:"payload"`
	Timestamp time.Time     `json:"timestamp"`
	NodeID    string        `json:"node_id"`
	MessageID string        `json:"message_id"` // For deduplication
}

func marshalNATSMessage(eventType string, payload ScheduleBuilt, nodeID string) ([]byte, error) {
	msg := natsMessage{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    nodeID,
		MessageID: uuid.NewString(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal nats message: %w", err)
	}
	return data, nil
}

func unmarshalNATSMessage(data []byte) (*natsMessage, error) {
	var msg natsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal nats message: %w", err)
	}
	return &msg, nil
}

func generateNodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "bumptv"
	}
	return host + "-" + uuid.NewString()[:8]
}
