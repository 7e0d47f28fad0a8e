package memory

import (
	"context"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

type outboxRepository struct {
	with accessor
	now  func() time.Time
}

func (r *outboxRepository) Insert(ctx context.Context, rec *entity.OutboxRecord) error {
	return r.with(ctx, func(s *state) error {
		s.nextOutbox++
		rec.ID = s.nextOutbox
		s.outbox = append(s.outbox, *rec)
		return nil
	})
}

func (r *outboxRepository) FetchPending(ctx context.Context, limit int) ([]entity.OutboxRecord, error) {
	var pending []entity.OutboxRecord
	err := r.with(ctx, func(s *state) error {
		for _, rec := range s.outbox {
			if len(pending) == limit {
				break
			}
			if rec.SentAt == nil {
				pending = append(pending, rec)
			}
		}
		return nil
	})
	return pending, err
}

func (r *outboxRepository) MarkSent(ctx context.Context, id int64) error {
	return r.with(ctx, func(s *state) error {
		for i := range s.outbox {
			if s.outbox[i].ID == id {
				sentAt := r.now()
				s.outbox[i].SentAt = &sentAt
				return nil
			}
		}
		return repository.ErrNotFound
	})
}
