package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"campus-cravings/models"

	"github.com/nats-io/nats.go"
)

// Publisher is anything that accepts order events.
type Publisher interface {
	Publish(ctx context.Context, event models.OrderEvent) error
}

// Relay shares events between API instances over NATS. Publish sends to the
// subject; every instance's subscription hands the event to its local hub.
type Relay struct {
	conn    *nats.Conn
	subject string
	local   Publisher
	sub     *nats.Subscription
	logger  *slog.Logger
}

func NewRelay(url, subject string, local Publisher, logger *slog.Logger) (*Relay, error) {
	conn, err := nats.Connect(url, nats.Name("campus-cravings"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &Relay{conn: conn, subject: subject, local: local, logger: logger.With("component", "relay")}, nil
}

func (r *Relay) Publish(_ context.Context, event models.OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.conn.Publish(r.subject, data)
}

func (r *Relay) Start() error {
	sub, err := r.conn.Subscribe(r.subject, r.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.subject, err)
	}
	r.sub = sub
	r.logger.Info("relaying order events", "subject", r.subject)
	return nil
}

func (r *Relay) handleMessage(msg *nats.Msg) {
	var event models.OrderEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		r.logger.Warn("malformed order event", "error", err)
		return
	}
	if err := r.local.Publish(context.Background(), event); err != nil {
		r.logger.Warn("order event not delivered", "orderNumber", event.OrderNumber, "error", err)
	}
}

func (r *Relay) Close() error {
	if r.sub != nil {
		if err := r.sub.Unsubscribe(); err != nil {
			r.logger.Warn("unsubscribe failed", "error", err)
		}
	}
	return r.conn.Drain()
}
