package services

import (
	"testing"

	"librahub/internal/adapters/persistence/models"
	"librahub/internal/core/domain"

	"github.com/stretchr/testify/assert"
)

func TestAccessPolicy(t *testing.T) {
	policy := NewAccessPolicy()
	admin := domain.Identity{UserID: 1, Role: domain.RoleAdmin}
	owner := domain.Identity{UserID: 2, Role: domain.RoleUser}
	stranger := domain.Identity{UserID: 3, Role: domain.RoleUser}
	loan := &models.Loan{ID: 10, UserID: owner.UserID}

	t.Run("request loan is self only", func(t *testing.T) {
		assert.NoError(t, policy.CanRequestLoan(owner, owner.UserID))
		assert.ErrorIs(t, policy.CanRequestLoan(owner, stranger.UserID), domain.ErrForbidden)
		// Admins get no special treatment here
		assert.ErrorIs(t, policy.CanRequestLoan(admin, owner.UserID), domain.ErrForbidden)
	})

	t.Run("approve and reject are admin only", func(t *testing.T) {
		assert.NoError(t, policy.CanDecide(admin))
		assert.ErrorIs(t, policy.CanDecide(owner), domain.ErrForbidden)
	})

	t.Run("return is admin or owner", func(t *testing.T) {
		assert.NoError(t, policy.CanReturn(admin, loan))
		assert.NoError(t, policy.CanReturn(owner, loan))
		assert.ErrorIs(t, policy.CanReturn(stranger, loan), domain.ErrForbidden)
	})

	t.Run("viewing a loan is admin or owner", func(t *testing.T) {
		assert.NoError(t, policy.CanViewLoan(admin, loan))
		assert.NoError(t, policy.CanViewLoan(owner, loan))
		assert.ErrorIs(t, policy.CanViewLoan(stranger, loan), domain.ErrForbidden)
	})

	t.Run("listing a user's loans is admin or the user", func(t *testing.T) {
		assert.NoError(t, policy.CanListUserLoans(admin, owner.UserID))
		assert.NoError(t, policy.CanListUserLoans(owner, owner.UserID))
		assert.ErrorIs(t, policy.CanListUserLoans(stranger, owner.UserID), domain.ErrForbidden)
	})

	t.Run("administration is admin only", func(t *testing.T) {
		assert.NoError(t, policy.CanAdminister(admin))
		assert.ErrorIs(t, policy.CanAdminister(owner), domain.ErrForbidden)
	})
}
