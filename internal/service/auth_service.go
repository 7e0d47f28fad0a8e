package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// AuthConfig holds the credential settings of AuthService.
type AuthConfig struct {
	Secret              []byte
	AccessTokenTTL      time.Duration
	ResetTokenTTL       time.Duration
	BcryptCost          int
	AllowedEmailDomains []string
}

// AuthService registers users and issues and verifies their credentials.
type AuthService struct {
	store repository.Store
	cfg   AuthConfig
	now   func() time.Time
}

func NewAuthService(store repository.Store, cfg AuthConfig) *AuthService {
	return &AuthService{store: store, cfg: cfg, now: time.Now}
}

// Signup creates an account. Role defaults to user.
func (s *AuthService) Signup(ctx context.Context, name, email, password string, role entity.Role) (*entity.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	email, err := s.checkEmail(email)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if role == "" {
		role = entity.RoleUser
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: role must be user or admin", ErrInvalidInput)
	}

	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}
	user := &entity.User{Name: name, Email: email, PasswordHash: hash, Role: role}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			slog.Warn("Signup failed: email already registered", "email", email)
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	slog.Info("Service: User signed up", "user_id", user.ID)
	return user, nil
}

// Signin checks the credentials and returns a signed access token.
func (s *AuthService) Signin(ctx context.Context, email, password string) (string, error) {
	user, err := s.store.Users().FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenTTL)),
	})
	signed, err := token.SignedString(s.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	slog.Info("Service: User signed in", "user_id", user.ID)
	return signed, nil
}

// Authenticate resolves an access token to its still existing user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*entity.User, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.cfg.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.store.Users().FindByID(ctx, claims.Subject)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// ForgotPassword issues a single-use reset token and queues a
// users.password_reset_requested event for the mailer.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		user, err := tx.Users().FindByEmail(ctx, email)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to find user: %w", err)
		}

		reset := &entity.PasswordResetToken{
			Token:     uuid.NewString(),
			UserID:    user.ID,
			ExpiresAt: s.now().UTC().Add(s.cfg.ResetTokenTTL),
		}
		if err := tx.Users().CreateResetToken(ctx, reset); err != nil {
			return fmt.Errorf("failed to create reset token: %w", err)
		}

		rec, err := entity.NewOutboxRecord(entity.TopicPasswordResetRequest, user.ID, entity.PasswordResetRequested{
			UserID:    user.ID,
			Name:      user.Name,
			Email:     user.Email,
			Token:     reset.Token,
			ExpiresAt: reset.ExpiresAt,
		})
		if err != nil {
			return err
		}
		if err := tx.Outbox().Insert(ctx, rec); err != nil {
			return fmt.Errorf("failed to write outbox record: %w", err)
		}
		slog.Info("Service: Password reset requested", "user_id", user.ID)
		return nil
	})
	return conflictAsRetryable(err)
}

// ResetPassword redeems a reset token and sets a new password.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new_password is required", ErrInvalidInput)
	}
	hash, err := s.hash(newPassword)
	if err != nil {
		return err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		reset, err := tx.Users().FindResetToken(ctx, token)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		if err != nil {
			return fmt.Errorf("failed to find reset token: %w", err)
		}
		if !reset.Usable(s.now()) {
			return ErrInvalidToken
		}

		if err := tx.Users().UpdatePassword(ctx, reset.UserID, hash); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to update password: %w", err)
		}
		if err := tx.Users().MarkResetTokenUsed(ctx, token); err != nil {
			return fmt.Errorf("failed to mark reset token used: %w", err)
		}
		slog.Info("Service: Password reset", "user_id", reset.UserID)
		return nil
	})
	return conflictAsRetryable(err)
}

func (s *AuthService) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password is too long", ErrInvalidInput)
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// checkEmail normalizes email and checks its domain ending.
func (s *AuthService) checkEmail(raw string) (string, error) {
	email := normalizeEmail(raw)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	domain := email[strings.LastIndexByte(email, '@')+1:]
	for _, ending := range s.cfg.AllowedEmailDomains {
		if strings.HasSuffix(domain, ending) {
			return email, nil
		}
	}
	return "", fmt.Errorf("%w: email with %s is not allowed", ErrEmailDomain, domain)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
