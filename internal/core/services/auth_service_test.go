package services

import (
	"context"
	"testing"

	"librahub/internal/adapters/persistence/memory"
	"librahub/internal/config"
	"librahub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthFixture(t *testing.T) (*memory.Store, *AuthService) {
	t.Helper()
	store := memory.NewStore()
	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:           "test-access-secret",
			RefreshSecret:    "test-refresh-secret",
			AccessTokenMins:  15,
			RefreshTokenDays: 7,
		},
	}
	return store, NewAuthService(store.Users(), store.Tokens(), cfg)
}

func TestRegister(t *testing.T) {
	t.Run("creates an active borrower account with tokens", func(t *testing.T) {
		_, auth := newAuthFixture(t)

		result, err := auth.Register(context.Background(), &RegisterInput{
			Username: "alice",
			Email:    "alice@test.local",
			Password: "correct horse battery",
		})

		require.NoError(t, err)
		assert.Equal(t, "alice", result.User.Username)
		assert.Equal(t, string(domain.RoleUser), result.User.Role)
		assert.True(t, result.User.IsActive)
		assert.NotEmpty(t, result.AccessToken)
		assert.NotEmpty(t, result.RefreshToken)
	})

	t.Run("rejects short passwords", func(t *testing.T) {
		_, auth := newAuthFixture(t)

		_, err := auth.Register(context.Background(), &RegisterInput{
			Username: "alice",
			Email:    "alice@test.local",
			Password: "short",
		})

		assert.ErrorIs(t, err, ErrWeakPassword)
	})

	t.Run("rejects duplicate usernames and emails", func(t *testing.T) {
		_, auth := newAuthFixture(t)
		ctx := context.Background()

		_, err := auth.Register(ctx, &RegisterInput{Username: "alice", Email: "alice@test.local", Password: "password123"})
		require.NoError(t, err)

		_, err = auth.Register(ctx, &RegisterInput{Username: "alice", Email: "other@test.local", Password: "password123"})
		assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)

		_, err = auth.Register(ctx, &RegisterInput{Username: "alice2", Email: "alice@test.local", Password: "password123"})
		assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
	})
}

func TestLogin(t *testing.T) {
	register := func(t *testing.T, auth *AuthService) {
		t.Helper()
		_, err := auth.Register(context.Background(), &RegisterInput{
			Username: "alice",
			Email:    "alice@test.local",
			Password: "password123",
		})
		require.NoError(t, err)
	}

	t.Run("succeeds with valid credentials", func(t *testing.T) {
		_, auth := newAuthFixture(t)
		register(t, auth)

		result, err := auth.Login(context.Background(), &LoginInput{Username: "alice", Password: "password123"})

		require.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)

		claims, err := auth.ValidateAccessToken(result.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.Username)
		assert.Equal(t, string(domain.RoleUser), claims.Role)
	})

	t.Run("fails with a wrong password", func(t *testing.T) {
		_, auth := newAuthFixture(t)
		register(t, auth)

		_, err := auth.Login(context.Background(), &LoginInput{Username: "alice", Password: "wrong password"})

		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("fails for an unknown user with the same error", func(t *testing.T) {
		_, auth := newAuthFixture(t)

		_, err := auth.Login(context.Background(), &LoginInput{Username: "nobody", Password: "password123"})

		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("fails for a deactivated account", func(t *testing.T) {
		store, auth := newAuthFixture(t)
		register(t, auth)
		ctx := context.Background()

		user, err := store.Users().GetByUsername(ctx, "alice")
		require.NoError(t, err)
		user.IsActive = false
		require.NoError(t, store.Users().Update(ctx, user))

		_, err = auth.Login(ctx, &LoginInput{Username: "alice", Password: "password123"})
		assert.ErrorIs(t, err, ErrUserInactive)
	})
}

func TestRefreshTokenRotation(t *testing.T) {
	t.Run("a refresh token is single use", func(t *testing.T) {
		_, auth := newAuthFixture(t)
		ctx := context.Background()

		registered, err := auth.Register(ctx, &RegisterInput{
			Username: "alice",
			Email:    "alice@test.local",
			Password: "password123",
		})
		require.NoError(t, err)

		refreshed, err := auth.RefreshToken(ctx, registered.RefreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, refreshed.AccessToken)

		// Replaying the consumed token must fail
		_, err = auth.RefreshToken(ctx, registered.RefreshToken)
		assert.ErrorIs(t, err, ErrTokenRevoked)
	})

	t.Run("logout revokes the refresh token", func(t *testing.T) {
		_, auth := newAuthFixture(t)
		ctx := context.Background()

		registered, err := auth.Register(ctx, &RegisterInput{
			Username: "alice",
			Email:    "alice@test.local",
			Password: "password123",
		})
		require.NoError(t, err)

		require.NoError(t, auth.Logout(ctx, registered.RefreshToken))

		_, err = auth.RefreshToken(ctx, registered.RefreshToken)
		assert.ErrorIs(t, err, ErrTokenRevoked)
	})

	t.Run("logout-all revokes every session", func(t *testing.T) {
		_, auth := newAuthFixture(t)
		ctx := context.Background()

		registered, err := auth.Register(ctx, &RegisterInput{
			Username: "alice",
			Email:    "alice@test.local",
			Password: "password123",
		})
		require.NoError(t, err)

		second, err := auth.Login(ctx, &LoginInput{Username: "alice", Password: "password123"})
		require.NoError(t, err)

		require.NoError(t, auth.LogoutAll(ctx, registered.User.ID))

		_, err = auth.RefreshToken(ctx, registered.RefreshToken)
		assert.ErrorIs(t, err, ErrTokenRevoked)
		_, err = auth.RefreshToken(ctx, second.RefreshToken)
		assert.ErrorIs(t, err, ErrTokenRevoked)
	})

	t.Run("garbage tokens are rejected", func(t *testing.T) {
		_, auth := newAuthFixture(t)

		_, err := auth.RefreshToken(context.Background(), "not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
