package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/memory"
)

func newAuth(store *memory.Store) *AuthService {
	return NewAuthService(store, AuthConfig{
		Secret:              []byte("test-secret"),
		AccessTokenTTL:      30 * time.Minute,
		ResetTokenTTL:       15 * time.Minute,
		BcryptCost:          bcrypt.MinCost,
		AllowedEmailDomains: []string{".com", ".in", ".org", ".net", ".co"},
	})
}

func TestSignupValidation(t *testing.T) {
	ctx := context.Background()
	svc := newAuth(memory.NewStore())

	u, err := svc.Signup(ctx, "Ann", " Ann@Example.com ", "pw", "")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", u.Email)
	assert.Equal(t, entity.RoleUser, u.Role)
	assert.NotEqual(t, "pw", u.PasswordHash)

	tests := []struct {
		name  string
		email string
		role  entity.Role
		want  error
	}{
		{name: "taken", email: "ann@example.com", want: ErrEmailTaken},
		{name: "domain", email: "ann@example.xyz", want: ErrEmailDomain},
		{name: "malformed", email: "not-an-email", want: ErrInvalidInput},
		{name: "role", email: "bob@example.com", role: "root", want: ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, "Bob", tt.email, "pw", tt.role)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSigninAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newAuth(memory.NewStore())
	u, err := svc.Signup(ctx, "Ann", "ann@example.com", "pw", entity.RoleAdmin)
	require.NoError(t, err)

	_, err = svc.Signin(ctx, "ann@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Signin(ctx, "nobody@example.com", "pw")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	token, err := svc.Signin(ctx, "ANN@example.com", "pw")
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, entity.RoleAdmin, got.Role)

	_, err = svc.Authenticate(ctx, token+"x")
	require.ErrorIs(t, err, ErrInvalidToken)

	other := newAuth(memory.NewStore())
	other.cfg.Secret = []byte("another-secret")
	_, err = other.Authenticate(ctx, token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticateExpiredToken(t *testing.T) {
	ctx := context.Background()
	svc := newAuth(memory.NewStore())
	_, err := svc.Signup(ctx, "Ann", "ann@example.com", "pw", "")
	require.NoError(t, err)

	issued := time.Now()
	svc.now = func() time.Time { return issued }
	token, err := svc.Signin(ctx, "ann@example.com", "pw")
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(31 * time.Minute) }
	_, err = svc.Authenticate(ctx, token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newAuth(store)
	_, err := svc.Signup(ctx, "Ann", "ann@example.com", "old", "")
	require.NoError(t, err)

	require.ErrorIs(t, svc.ForgotPassword(ctx, "nobody@example.com"), ErrUserNotFound)
	require.NoError(t, svc.ForgotPassword(ctx, "ann@example.com"))

	pending, err := store.Outbox().FetchPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, entity.TopicPasswordResetRequest, pending[0].Topic)
	var event entity.PasswordResetRequested
	require.NoError(t, json.Unmarshal(pending[0].Payload, &event))
	assert.Equal(t, "ann@example.com", event.Email)
	require.NotEmpty(t, event.Token)

	require.ErrorIs(t, svc.ResetPassword(ctx, "bogus", "new"), ErrInvalidToken)
	require.NoError(t, svc.ResetPassword(ctx, event.Token, "new"))
	require.ErrorIs(t, svc.ResetPassword(ctx, event.Token, "again"), ErrInvalidToken, "tokens are single use")

	_, err = svc.Signin(ctx, "ann@example.com", "old")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Signin(ctx, "ann@example.com", "new")
	require.NoError(t, err)
}

func TestResetTokenExpires(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newAuth(store)
	_, err := svc.Signup(ctx, "Ann", "ann@example.com", "old", "")
	require.NoError(t, err)
	require.NoError(t, svc.ForgotPassword(ctx, "ann@example.com"))

	pending, err := store.Outbox().FetchPending(ctx, 1)
	require.NoError(t, err)
	var event entity.PasswordResetRequested
	require.NoError(t, json.Unmarshal(pending[0].Payload, &event))

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	require.ErrorIs(t, svc.ResetPassword(ctx, event.Token, "new"), ErrInvalidToken)
}
