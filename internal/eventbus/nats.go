/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus relays calendar events between instances over NATS.
package eventbus

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/heirloom/internal/events"
	"github.com/friendsincode/heirloom/internal/telemetry"
)

// SubjectPrefix is prepended to every event type on the wire.
const SubjectPrefix = "heirloom.events."

// NATSBus delivers events to the local bus and publishes them to NATS.
// Messages received from other nodes are delivered locally only.
type NATSBus struct {
	logger  zerolog.Logger
	local   *events.Bus
	conn    *nats.Conn
	sub     *nats.Subscription
	nodeID  string
	relayed map[events.EventType]bool // event types that cross instances
}

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL           string
	Token         string
	NodeID        string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NewNATSBus connects to NATS and starts relaying remote events into local.
func NewNATSBus(cfg NATSConfig, local *events.Bus, logger zerolog.Logger) (*NATSBus, error) {
	logger = logger.With().Str("component", "eventbus").Logger()
	nodeID := cfg.NodeID
	if nodeID == "" {
		nodeID = generateNodeID()
	}

	opts := []nats.Option{
		nats.Name("heirloom-" + nodeID),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	nb := &NATSBus{logger: logger, local: local, conn: conn, nodeID: nodeID, relayed: relayedTypes()}
	sub, err := conn.Subscribe(SubjectPrefix+">", nb.handleRemote)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe nats: %w", err)
	}
	nb.sub = sub

	logger.Info().Str("url", cfg.URL).Str("node_id", nodeID).Msg("nats event bus connected")
	return nb, nil
}

// Subscribe registers a local subscriber for an event type.
func (nb *NATSBus) Subscribe(eventType events.EventType) events.Subscriber {
	return nb.local.Subscribe(eventType)
}

// Unsubscribe removes a local subscriber.
func (nb *NATSBus) Unsubscribe(eventType events.EventType, sub events.Subscriber) {
	nb.local.Unsubscribe(eventType, sub)
}

// Publish delivers payload locally and forwards relayed types to NATS. Publish
// failures are logged and counted; local delivery always happens.
func (nb *NATSBus) Publish(eventType events.EventType, payload events.Payload) {
	nb.local.Publish(eventType, payload)
	if !nb.relayed[eventType] {
		return
	}

	data, err := marshalNATSMessage(eventType, payload, nb.nodeID)
	if err != nil {
		nb.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("encode event")
		telemetry.EventsPublishedTotal.WithLabelValues(string(eventType), "encode_error").Inc()
		return
	}
	if err := nb.conn.Publish(Subject(eventType), data); err != nil {
		nb.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("publish event to nats")
		telemetry.EventsPublishedTotal.WithLabelValues(string(eventType), "error").Inc()
		return
	}
	telemetry.EventsPublishedTotal.WithLabelValues(string(eventType), "ok").Inc()
}

// Close drains the subscription and closes the connection.
func (nb *NATSBus) Close() error {
	if nb.conn == nil {
		return nil
	}
	if err := nb.conn.Drain(); err != nil {
		nb.conn.Close()
		return fmt.Errorf("drain nats: %w", err)
	}
	return nil
}

func (nb *NATSBus) handleRemote(m *nats.Msg) {
	msg, err := unmarshalNATSMessage(m.Data)
	if err != nil {
		nb.logger.Debug().Err(err).Str("subject", m.Subject).Msg("ignore malformed event")
		return
	}
	if msg.NodeID == nb.nodeID {
		return
	}
	if !nb.relayed[msg.EventType] {
		nb.logger.Debug().Str("event_type", string(msg.EventType)).Msg("ignore unknown event type")
		return
	}
	nb.local.Publish(msg.EventType, msg.Payload)
}

func relayedTypes() map[events.EventType]bool {
	m := make(map[events.EventType]bool)
	for _, t := range events.AllTypes() {
		m[t] = true
	}
	return m
}

// Subject returns the NATS subject for an event type.
func Subject(eventType events.EventType) string {
	return SubjectPrefix + string(eventType)
}

// natsMessage represents a message published to NATS.
type natsMessage struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}

func marshalNATSMessage(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	msg := natsMessage{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    nodeID,
		MessageID: uuid.NewString(),
	}
	return json.Marshal(msg)
}

func unmarshalNATSMessage(data []byte) (*natsMessage, error) {
	var msg natsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal nats message: %w", err)
	}
	if msg.EventType == "" {
		return nil, fmt.Errorf("unmarshal nats message: missing event_type")
	}
	return &msg, nil
}

func generateNodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "node"
	}
	host = strings.ReplaceAll(host, ".", "-")
	return host + "-" + uuid.NewString()[:8]
}
