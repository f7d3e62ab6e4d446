package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoanStatusTransitions(t *testing.T) {
	statuses := []LoanStatus{StatusPending, StatusApproved, StatusRejected, StatusReturned, StatusOverdue}

	allowed := map[LoanStatus][]LoanStatus{
		StatusPending:  {StatusApproved, StatusRejected},
		StatusApproved: {StatusReturned, StatusOverdue},
		StatusOverdue:  {StatusReturned},
		StatusRejected: {},
		StatusReturned: {},
	}

	for from, targets := range allowed {
		ok := make(map[LoanStatus]bool, len(targets))
		for _, to := range targets {
			ok[to] = true
		}
		for _, to := range statuses {
			assert.Equal(t, ok[to], from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestLoanStatusPredicates(t *testing.T) {
	t.Run("terminal states", func(t *testing.T) {
		assert.True(t, StatusRejected.IsTerminal())
		assert.True(t, StatusReturned.IsTerminal())
		assert.False(t, StatusPending.IsTerminal())
		assert.False(t, StatusApproved.IsTerminal())
		assert.False(t, StatusOverdue.IsTerminal())
	})

	t.Run("copy-holding states", func(t *testing.T) {
		assert.True(t, StatusApproved.ReservesCopy())
		assert.True(t, StatusOverdue.ReservesCopy())
		assert.False(t, StatusPending.ReservesCopy())
		assert.False(t, StatusRejected.ReservesCopy())
		assert.False(t, StatusReturned.ReservesCopy())
	})
}

func TestLoanEffectiveStatus(t *testing.T) {
	due := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	t.Run("approved past due reads as overdue", func(t *testing.T) {
		loan := &Loan{Status: StatusApproved, DueDate: due}
		assert.Equal(t, StatusOverdue, loan.EffectiveStatus(due.Add(time.Hour)))
	})

	t.Run("approved before due stays approved", func(t *testing.T) {
		loan := &Loan{Status: StatusApproved, DueDate: due}
		assert.Equal(t, StatusApproved, loan.EffectiveStatus(due.Add(-time.Hour)))
	})

	t.Run("exactly at the due date is not yet overdue", func(t *testing.T) {
		loan := &Loan{Status: StatusApproved, DueDate: due}
		assert.Equal(t, StatusApproved, loan.EffectiveStatus(due))
	})

	t.Run("other states are unaffected by the clock", func(t *testing.T) {
		for _, status := range []LoanStatus{StatusPending, StatusRejected, StatusReturned, StatusOverdue} {
			loan := &Loan{Status: status, DueDate: due}
			assert.Equal(t, status, loan.EffectiveStatus(due.Add(time.Hour)))
		}
	})
}
