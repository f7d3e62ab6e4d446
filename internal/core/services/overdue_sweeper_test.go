package services

import (
	"context"
	"testing"
	"time"

	"librahub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverdueSweeper(t *testing.T) {
	setup := func(t *testing.T) (*loanFixture, *OverdueSweeper) {
		t.Helper()
		f := newLoanFixture(t, 3)
		sweeper := NewOverdueSweeper(f.store.Loans(), time.Hour)
		sweeper.clock = f.clock
		return f, sweeper
	}

	t.Run("marks approved loans past due as overdue", func(t *testing.T) {
		f, sweeper := setup(t)
		ctx := context.Background()

		early := f.request(t)
		_, err := f.service.Approve(ctx, f.admin, early.ID)
		require.NoError(t, err)

		// A later request gets a later due date and must survive the sweep
		f.clock.Advance(5 * 24 * time.Hour)
		late := f.request(t)
		_, err = f.service.Approve(ctx, f.admin, late.ID)
		require.NoError(t, err)

		f.clock.Advance(10 * 24 * time.Hour)

		swept, err := sweeper.Sweep(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, swept)

		earlyStored, err := f.store.Loans().GetByID(ctx, early.ID)
		require.NoError(t, err)
		assert.Equal(t, string(domain.StatusOverdue), earlyStored.Status)

		lateStored, err := f.store.Loans().GetByID(ctx, late.ID)
		require.NoError(t, err)
		assert.Equal(t, string(domain.StatusApproved), lateStored.Status)
	})

	t.Run("is idempotent", func(t *testing.T) {
		f, sweeper := setup(t)
		ctx := context.Background()

		loan := f.request(t)
		_, err := f.service.Approve(ctx, f.admin, loan.ID)
		require.NoError(t, err)

		f.clock.Advance(15 * 24 * time.Hour)

		swept, err := sweeper.Sweep(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, swept)

		swept, err = sweeper.Sweep(ctx)
		require.NoError(t, err)
		assert.Zero(t, swept)
	})

	t.Run("does not touch pending or terminal loans", func(t *testing.T) {
		f, sweeper := setup(t)
		ctx := context.Background()

		pending := f.request(t)
		rejected := f.request(t)
		_, err := f.service.Reject(ctx, f.admin, rejected.ID)
		require.NoError(t, err)

		returned := f.request(t)
		_, err = f.service.Approve(ctx, f.admin, returned.ID)
		require.NoError(t, err)
		_, err = f.service.Return(ctx, f.borrower, returned.ID)
		require.NoError(t, err)

		f.clock.Advance(30 * 24 * time.Hour)

		swept, err := sweeper.Sweep(ctx)
		require.NoError(t, err)
		assert.Zero(t, swept)

		for id, want := range map[uint]domain.LoanStatus{
			pending.ID:  domain.StatusPending,
			rejected.ID: domain.StatusRejected,
			returned.ID: domain.StatusReturned,
		} {
			stored, err := f.store.Loans().GetByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, string(want), stored.Status)
		}
	})

	t.Run("never changes copy counters", func(t *testing.T) {
		f, sweeper := setup(t)
		ctx := context.Background()

		loan := f.request(t)
		_, err := f.service.Approve(ctx, f.admin, loan.ID)
		require.NoError(t, err)
		before := f.availableCopies(t)

		f.clock.Advance(15 * 24 * time.Hour)
		_, err = sweeper.Sweep(ctx)
		require.NoError(t, err)

		assert.Equal(t, before, f.availableCopies(t))
	})
}
