package domain

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced      = "order.placed"
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
)

type OutboxEvent struct {
	ID          int64      `db:"id"`
	AggregateID string     `db:"aggregate_id"`
	EventType   string     `db:"event_type"`
	Payload     []byte     `db:"payload"`
	CreatedAt   time.Time  `db:"created_at"`
	ProcessedAt *time.Time `db:"processed_at"`
}

// NewOutboxEvent marshals payload into an unsaved event.
func NewOutboxEvent(aggregateID, eventType string, payload any) (*OutboxEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &OutboxEvent{AggregateID: aggregateID, EventType: eventType, Payload: raw}, nil
}
