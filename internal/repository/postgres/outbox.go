package postgres

import (
	"context"
	"fmt"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

type outboxRepository struct {
	q querier
}

func (r *outboxRepository) Insert(ctx context.Context, rec *entity.OutboxRecord) error {
	err := r.q.QueryRowContext(ctx,
		"INSERT INTO outbox (event_id, event_type, topic, key, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id",
		rec.EventID, rec.EventType, rec.Topic, rec.Key, []byte(rec.Payload), rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return translateError(fmt.Errorf("failed to insert event %s: %w", rec.EventType, err))
	}
	return nil
}

func (r *outboxRepository) FetchPending(ctx context.Context, limit int) ([]entity.OutboxRecord, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT id, event_id, event_type, topic, key, payload, created_at, sent_at FROM outbox WHERE sent_at IS NULL ORDER BY id LIMIT $1",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending events: %w", err)
	}
	defer rows.Close()

	var records []entity.OutboxRecord
	for rows.Next() {
		var rec entity.OutboxRecord
		var payload []byte
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.EventType, &rec.Topic, &rec.Key, &payload, &rec.CreatedAt, &rec.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan event record: %w", err)
		}
		rec.Payload = payload
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}

	return records, nil
}

func (r *outboxRepository) MarkSent(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, "UPDATE outbox SET sent_at = NOW() WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to mark event %d sent: %w", id, err)
	}
	return checkAffected(res)
}
