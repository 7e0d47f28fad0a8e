package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// RelayRecorder counts relayed outbox records.
type RelayRecorder interface {
	OutboxRelayed(topic string)
}

// OutboxRelay publishes committed outbox records to the broker in insertion
// order. Delivery is at least once: a record published but not yet marked
// sent is published again after a crash.
type OutboxRelay struct {
	outbox    repository.OutboxRepository
	publisher messaging.Publisher
	recorder  RelayRecorder
	interval  time.Duration
	batch     int
}

func NewOutboxRelay(outbox repository.OutboxRepository, publisher messaging.Publisher, recorder RelayRecorder, interval time.Duration, batch int) *OutboxRelay {
	return &OutboxRelay{
		outbox:    outbox,
		publisher: publisher,
		recorder:  recorder,
		interval:  interval,
		batch:     batch,
	}
}

// Run relays on every tick until ctx is done.
func (r *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	slog.Info("Outbox relay started", "interval", r.interval)
	for {
		if _, err := r.RelayOnce(ctx); err != nil && ctx.Err() == nil {
			slog.Error("Outbox relay failed", "err", err)
		}
		select {
		case <-ctx.Done():
			slog.Info("Outbox relay shutting down")
			return
		case <-ticker.C:
		}
	}
}

// RelayOnce publishes one batch of pending records and returns how many were
// sent. The first publish failure ends the batch so later records never
// overtake it.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	pending, err := r.outbox.FetchPending(ctx, r.batch)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch pending outbox records: %w", err)
	}

	sent := 0
	for _, rec := range pending {
		if err := r.publisher.PublishEvent(ctx, rec.Topic, rec.Key, rec.Payload); err != nil {
			return sent, fmt.Errorf("failed to publish outbox record %d: %w", rec.ID, err)
		}
		if err := r.outbox.MarkSent(ctx, rec.ID); err != nil {
			return sent, fmt.Errorf("failed to mark outbox record %d sent: %w", rec.ID, err)
		}
		if r.recorder != nil {
			r.recorder.OutboxRelayed(rec.Topic)
		}
		slog.Debug("Outbox record relayed", "id", rec.ID, "topic", rec.Topic, "event_type", rec.EventType)
		sent++
	}
	return sent, nil
}
