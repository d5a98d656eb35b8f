package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Faraj-M/E-Commerce-Platform/internal/domain"
)

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	query := r.db.Rebind(`SELECT id, aggregate_id, event_type, payload, created_at, processed_at
	          FROM outbox_events
	          WHERE processed_at IS NULL
	          ORDER BY id
	          LIMIT ?`)

	var events []*domain.OutboxEvent
	if err := r.db.SelectContext(ctx, &events, query, limit); err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	query := r.db.Rebind(`UPDATE outbox_events SET processed_at = ? WHERE id = ? AND processed_at IS NULL`)
	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("mark outbox event %d processed: %w", id, err)
	}
	return nil
}
