package services

import (
	"context"
	"testing"

	"librahub/internal/adapters/persistence/memory"
	"librahub/internal/adapters/persistence/models"
	"librahub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserFixture(t *testing.T) (*UserService, domain.Identity, domain.Identity) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	admin := &models.User{Username: "admin", Email: "admin@test.local", Role: "ADMIN", IsActive: true}
	user := &models.User{Username: "alice", Email: "alice@test.local", Role: "USER", IsActive: true}
	require.NoError(t, store.Users().Create(ctx, admin))
	require.NoError(t, store.Users().Create(ctx, user))

	return NewUserService(store.Users(), NewAccessPolicy()), admin.Identity(), user.Identity()
}

func TestUpdateRole(t *testing.T) {
	t.Run("admin promotes a user", func(t *testing.T) {
		service, admin, user := newUserFixture(t)

		updated, err := service.UpdateRole(context.Background(), admin, user.UserID, domain.RoleAdmin)

		require.NoError(t, err)
		assert.Equal(t, string(domain.RoleAdmin), updated.Role)
	})

	t.Run("admins cannot change their own role", func(t *testing.T) {
		service, admin, _ := newUserFixture(t)

		_, err := service.UpdateRole(context.Background(), admin, admin.UserID, domain.RoleUser)

		assert.ErrorIs(t, err, ErrCannotChangeOwnRole)
	})

	t.Run("unknown roles are rejected", func(t *testing.T) {
		service, admin, user := newUserFixture(t)

		_, err := service.UpdateRole(context.Background(), admin, user.UserID, "LIBRARIAN")

		assert.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("non-admins may not change roles", func(t *testing.T) {
		service, admin, user := newUserFixture(t)

		_, err := service.UpdateRole(context.Background(), user, admin.UserID, domain.RoleUser)

		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestSetActive(t *testing.T) {
	t.Run("admin deactivates and reactivates an account", func(t *testing.T) {
		service, admin, user := newUserFixture(t)
		ctx := context.Background()

		updated, err := service.SetActive(ctx, admin, user.UserID, false)
		require.NoError(t, err)
		assert.False(t, updated.IsActive)

		updated, err = service.SetActive(ctx, admin, user.UserID, true)
		require.NoError(t, err)
		assert.True(t, updated.IsActive)
	})

	t.Run("is admin only", func(t *testing.T) {
		service, admin, user := newUserFixture(t)

		_, err := service.SetActive(context.Background(), user, admin.UserID, false)

		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestListUsers(t *testing.T) {
	t.Run("admin lists all users", func(t *testing.T) {
		service, admin, _ := newUserFixture(t)

		users, total, err := service.List(context.Background(), admin, 0, 10)

		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, users, 2)
	})

	t.Run("is admin only", func(t *testing.T) {
		service, _, user := newUserFixture(t)

		_, _, err := service.List(context.Background(), user, 0, 10)

		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}
