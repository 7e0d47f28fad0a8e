package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

const userColumns = "id, name, email, password_hash, role, created_at"

type userRepository struct {
	q querier
}

func (r *userRepository) Create(ctx context.Context, u *entity.User) error {
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES ($1, $2, $3, $4, $5, $6)",
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.CreatedAt,
	)
	if err != nil {
		return translateError(fmt.Errorf("failed to insert user: %w", err))
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	return r.findOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
}

func (r *userRepository) findOne(ctx context.Context, query string, arg string) (*entity.User, error) {
	var u entity.User
	err := r.q.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	res, err := r.q.ExecContext(ctx, "UPDATE users SET password_hash = $2 WHERE id = $1", userID, passwordHash)
	if err != nil {
		return translateError(fmt.Errorf("failed to update password: %w", err))
	}
	return checkAffected(res)
}

func (r *userRepository) CreateResetToken(ctx context.Context, t *entity.PasswordResetToken) error {
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO password_resets (token, user_id, expires_at, used) VALUES ($1, $2, $3, $4)",
		t.Token, t.UserID, t.ExpiresAt, t.Used,
	)
	if err != nil {
		return translateError(fmt.Errorf("failed to insert reset token: %w", err))
	}
	return nil
}

func (r *userRepository) FindResetToken(ctx context.Context, token string) (*entity.PasswordResetToken, error) {
	var t entity.PasswordResetToken
	err := r.q.QueryRowContext(ctx,
		"SELECT token, user_id, expires_at, used FROM password_resets WHERE token = $1 FOR UPDATE",
		token,
	).Scan(&t.Token, &t.UserID, &t.ExpiresAt, &t.Used)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, translateError(fmt.Errorf("failed to query reset token: %w", err))
	}
	return &t, nil
}

func (r *userRepository) MarkResetTokenUsed(ctx context.Context, token string) error {
	res, err := r.q.ExecContext(ctx, "UPDATE password_resets SET used = TRUE WHERE token = $1", token)
	if err != nil {
		return translateError(fmt.Errorf("failed to mark reset token used: %w", err))
	}
	return checkAffected(res)
}
