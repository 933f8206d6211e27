package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/kubiknyc/SuperSiteHero-sub015/internal/service"
)

// EventPublisher publishes workflow transition events to NATS JetStream for
// consumption by notification and audit services.
//
// Subject convention: workflow.<entity_type>.<action>
//
// All publish operations are non-fatal: errors are logged but never
// propagated, so a sink outage never interrupts a committed transition.
type EventPublisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	log  zerolog.Logger
}

// NewEventPublisher connects to NATS and opens a JetStream context.
func NewEventPublisher(url string, log zerolog.Logger) (*EventPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("workflow-engine"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open JetStream context: %w", err)
	}

	return &EventPublisher{conn: conn, js: js, log: log}, nil
}

// PublishTransition publishes one transition event.
// Subject: workflow.<entity_type>.<action>
func (p *EventPublisher) PublishTransition(ctx context.Context, event *service.TransitionEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("item_id", event.ItemID).Msg("event: failed to marshal transition event")
		return
	}

	subject := fmt.Sprintf("workflow.%s.%s", event.EntityType, event.Action)
	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("item_id", event.ItemID).
			Msg("event: failed to publish transition event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("item_id", event.ItemID).
		Str("status_after", event.StatusAfter).
		Msg("event: transition published")
}

// Close drains and closes the NATS connection.
func (p *EventPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
