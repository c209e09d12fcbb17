// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

// Package notify delivers member-facing rotation notifications. The default
// transport publishes to a NATS subject consumed by the platform's messaging
// service; deployments without NATS fall back to a log-only sink.
package notify

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/tomtom215/coterie/internal/config"
	"github.com/tomtom215/coterie/internal/metrics"
)

// Notification kinds published to members.
const (
	KindWarning     = "warning"
	KindEviction    = "eviction"
	KindReactivated = "reactivated"
)

// Sink delivers a notification to one member. Implementations must be safe
// for concurrent use.
type Sink interface {
	Send(ctx context.Context, memberID, kind string) error
	Close() error
}

// message is the wire payload published for the messaging service.
type message struct {
	MemberID string    `json:"member_id"`
	Kind     string    `json:"kind"`
	SentAt   time.Time `json:"sent_at"`
}

// NATSSink publishes notifications to a NATS subject.
type NATSSink struct {
	nc      *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSSink connects to the configured NATS server.
func NewNATSSink(cfg *config.NotifyConfig, logger zerolog.Logger) (*NATSSink, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSSink{
		nc:      nc,
		subject: cfg.Subject,
		logger:  logger.With().Str("component", "notify").Logger(),
	}, nil
}

// Send publishes one notification. Delivery to the member is the messaging
// service's responsibility; a successful publish is a successful send.
func (s *NATSSink) Send(ctx context.Context, memberID, kind string) error {
	payload, err := json.Marshal(message{
		MemberID: memberID,
		Kind:     kind,
		SentAt:   time.Now().UTC(),
	})
	if err != nil {
		metrics.NotificationsSent.WithLabelValues(kind, "error").Inc()
		return fmt.Errorf("marshal notification: %w", err)
	}

	if err := s.nc.Publish(s.subject, payload); err != nil {
		metrics.NotificationsSent.WithLabelValues(kind, "error").Inc()
		return fmt.Errorf("publish notification: %w", err)
	}

	metrics.NotificationsSent.WithLabelValues(kind, "ok").Inc()
	s.logger.Debug().Str("member_id", memberID).Str("kind", kind).Msg("Notification published")
	return nil
}

// Close drains and closes the NATS connection.
func (s *NATSSink) Close() error {
	if err := s.nc.Drain(); err != nil {
		s.nc.Close()
		return fmt.Errorf("drain NATS connection: %w", err)
	}
	return nil
}

// LogSink records notifications in the application log. Used when NATS
// delivery is disabled.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a log-only sink.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "notify").Logger()}
}

// Send logs the notification.
func (s *LogSink) Send(_ context.Context, memberID, kind string) error {
	metrics.NotificationsSent.WithLabelValues(kind, "ok").Inc()
	s.logger.Info().Str("member_id", memberID).Str("kind", kind).Msg("Notification (log only)")
	return nil
}

// Close is a no-op.
func (s *LogSink) Close() error { return nil }
