package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

type userRepository struct {
	with accessor
	now  func() time.Time
}

func (r *userRepository) Create(ctx context.Context, u *entity.User) error {
	return r.with(ctx, func(s *state) error {
		if _, taken := s.emails[u.Email]; taken {
			return repository.ErrDuplicate
		}
		u.ID = uuid.NewString()
		u.CreatedAt = r.now()
		s.users[u.ID] = *u
		s.emails[u.Email] = u.ID
		return nil
	})
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var found entity.User
	err := r.with(ctx, func(s *state) error {
		u, ok := s.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		found = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var id string
	err := r.with(ctx, func(s *state) error {
		var ok bool
		if id, ok = s.emails[email]; !ok {
			return repository.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *userRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return r.with(ctx, func(s *state) error {
		u, ok := s.users[userID]
		if !ok {
			return repository.ErrNotFound
		}
		u.PasswordHash = passwordHash
		s.users[userID] = u
		return nil
	})
}

func (r *userRepository) CreateResetToken(ctx context.Context, t *entity.PasswordResetToken) error {
	return r.with(ctx, func(s *state) error {
		if _, exists := s.resets[t.Token]; exists {
			return repository.ErrDuplicate
		}
		s.resets[t.Token] = *t
		return nil
	})
}

func (r *userRepository) FindResetToken(ctx context.Context, token string) (*entity.PasswordResetToken, error) {
	var found entity.PasswordResetToken
	err := r.with(ctx, func(s *state) error {
		t, ok := s.resets[token]
		if !ok {
			return repository.ErrNotFound
		}
		found = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func (r *userRepository) MarkResetTokenUsed(ctx context.Context, token string) error {
	return r.with(ctx, func(s *state) error {
		t, ok := s.resets[token]
		if !ok {
			return repository.ErrNotFound
		}
		t.Used = true
		s.resets[token] = t
		return nil
	})
}
