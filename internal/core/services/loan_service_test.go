package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"librahub/internal/adapters/persistence/memory"
	"librahub/internal/adapters/persistence/models"
	"librahub/internal/adapters/persistence/repositories"
	"librahub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type loanFixture struct {
	store   *memory.Store
	service *LoanService
	clock   *fixedClock

	admin    domain.Identity
	borrower domain.Identity
	other    domain.Identity

	book *models.Book
}

func newLoanFixture(t *testing.T, copies int) *loanFixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	admin := &models.User{Username: "admin", Email: "admin@test.local", Role: "ADMIN", IsActive: true}
	borrower := &models.User{Username: "alice", Email: "alice@test.local", Role: "USER", IsActive: true}
	other := &models.User{Username: "bob", Email: "bob@test.local", Role: "USER", IsActive: true}
	for _, u := range []*models.User{admin, borrower, other} {
		require.NoError(t, store.Users().Create(ctx, u))
	}

	category := &models.Category{Name: "Fiction"}
	require.NoError(t, store.Categories().Create(ctx, category))

	book := &models.Book{
		Title:           "The Go Programming Language",
		Author:          "Donovan & Kernighan",
		CategoryID:      category.ID,
		TotalCopies:     copies,
		AvailableCopies: copies,
	}
	require.NoError(t, store.Books().Create(ctx, book))

	clock := &fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	service := NewLoanService(store.Loans(), store.Books(), NewAccessPolicy(), 14)
	service.clock = clock

	return &loanFixture{
		store:    store,
		service:  service,
		clock:    clock,
		admin:    admin.Identity(),
		borrower: borrower.Identity(),
		other:    other.Identity(),
		book:     book,
	}
}

func (f *loanFixture) request(t *testing.T) *models.Loan {
	t.Helper()
	loan, err := f.service.Request(context.Background(), f.borrower, &RequestLoanInput{BookID: f.book.ID})
	require.NoError(t, err)
	return loan
}

func (f *loanFixture) availableCopies(t *testing.T) int {
	t.Helper()
	book, err := f.store.Books().GetByID(context.Background(), f.book.ID)
	require.NoError(t, err)
	return book.AvailableCopies
}

func TestRequestLoan(t *testing.T) {
	t.Run("creates a pending loan with due date one period out", func(t *testing.T) {
		f := newLoanFixture(t, 2)

		loan, err := f.service.Request(context.Background(), f.borrower, &RequestLoanInput{
			BookID: f.book.ID,
			Notes:  "summer reading",
		})

		require.NoError(t, err)
		assert.Equal(t, string(domain.StatusPending), loan.Status)
		assert.Equal(t, f.borrower.UserID, loan.UserID)
		assert.Equal(t, "summer reading", loan.Notes)
		assert.Equal(t, f.clock.Now().Add(14*24*time.Hour), loan.DueDate)
	})

	t.Run("does not reserve a copy", func(t *testing.T) {
		f := newLoanFixture(t, 2)

		f.request(t)

		assert.Equal(t, 2, f.availableCopies(t))
	})

	t.Run("allows more pending requests than copies", func(t *testing.T) {
		f := newLoanFixture(t, 1)

		for i := 0; i < 3; i++ {
			f.request(t)
		}

		loans, total, err := f.service.ListByUser(context.Background(), f.borrower, f.borrower.UserID, 0, 10)
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		assert.Len(t, loans, 3)
	})

	t.Run("fails with book not found for an unknown book", func(t *testing.T) {
		f := newLoanFixture(t, 1)

		_, err := f.service.Request(context.Background(), f.borrower, &RequestLoanInput{BookID: 999})

		assert.ErrorIs(t, err, domain.ErrBookNotFound)
	})
}

func TestApproveLoan(t *testing.T) {
	t.Run("moves pending to approved and reserves a copy", func(t *testing.T) {
		f := newLoanFixture(t, 2)
		loan := f.request(t)

		approved, err := f.service.Approve(context.Background(), f.admin, loan.ID)

		require.NoError(t, err)
		assert.Equal(t, string(domain.StatusApproved), approved.Status)
		assert.Equal(t, 1, f.availableCopies(t))
	})

	t.Run("rejects non-admin callers", func(t *testing.T) {
		f := newLoanFixture(t, 2)
		loan := f.request(t)

		_, err := f.service.Approve(context.Background(), f.borrower, loan.ID)

		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.Equal(t, 2, f.availableCopies(t), "a denied approval must not touch the counter")
	})

	t.Run("fails when no copies are available", func(t *testing.T) {
		f := newLoanFixture(t, 1)
		first := f.request(t)
		second := f.request(t)

		_, err := f.service.Approve(context.Background(), f.admin, first.ID)
		require.NoError(t, err)

		_, err = f.service.Approve(context.Background(), f.admin, second.ID)

		assert.ErrorIs(t, err, domain.ErrNoCopiesAvailable)
		assert.Equal(t, 0, f.availableCopies(t))

		// The losing loan stays pending and can be approved after a return
		stored, err := f.service.GetByID(context.Background(), f.admin, second.ID)
		require.NoError(t, err)
		assert.Equal(t, string(domain.StatusPending), stored.Status)
	})

	t.Run("fails with invalid transition on a decided loan", func(t *testing.T) {
		f := newLoanFixture(t, 2)
		loan := f.request(t)

		_, err := f.service.Reject(context.Background(), f.admin, loan.ID)
		require.NoError(t, err)

		_, err = f.service.Approve(context.Background(), f.admin, loan.ID)

		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("fails with loan not found for an unknown loan", func(t *testing.T) {
		f := newLoanFixture(t, 1)

		_, err := f.service.Approve(context.Background(), f.admin, 424242)

		assert.ErrorIs(t, err, domain.ErrLoanNotFound)
	})
}

func TestApproveLoanConcurrent(t *testing.T) {
	t.Run("exactly one approval wins the last copy", func(t *testing.T) {
		f := newLoanFixture(t, 1)

		const contenders = 16
		loanIDs := make([]uint, contenders)
		for i := range loanIDs {
			loanIDs[i] = f.request(t).ID
		}

		var wg sync.WaitGroup
		errs := make([]error, contenders)
		for i, id := range loanIDs {
			wg.Add(1)
			go func(i int, id uint) {
				defer wg.Done()
				_, errs[i] = f.service.Approve(context.Background(), f.admin, id)
			}(i, id)
		}
		wg.Wait()

		var wins, exhausted int
		for _, err := range errs {
			switch {
			case err == nil:
				wins++
			default:
				assert.ErrorIs(t, err, domain.ErrNoCopiesAvailable)
				exhausted++
			}
		}
		assert.Equal(t, 1, wins)
		assert.Equal(t, contenders-1, exhausted)
		assert.Equal(t, 0, f.availableCopies(t))
	})
}

func TestRejectLoan(t *testing.T) {
	t.Run("moves pending to rejected without touching the counter", func(t *testing.T) {
		f := newLoanFixture(t, 2)
		loan := f.request(t)

		rejected, err := f.service.Reject(context.Background(), f.admin, loan.ID)

		require.NoError(t, err)
		assert.Equal(t, string(domain.StatusRejected), rejected.Status)
		assert.Equal(t, 2, f.availableCopies(t))
	})

	t.Run("is not idempotent: a second reject fails", func(t *testing.T) {
		f := newLoanFixture(t, 2)
		loan := f.request(t)

		_, err := f.service.Reject(context.Background(), f.admin, loan.ID)
		require.NoError(t, err)

		_, err = f.service.Reject(context.Background(), f.admin, loan.ID)

		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("rejects non-admin callers", func(t *testing.T) {
		f := newLoanFixture(t, 2)
		loan := f.request(t)

		_, err := f.service.Reject(context.Background(), f.borrower, loan.ID)

		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestReturnLoan(t *testing.T) {
	approve := func(t *testing.T, f *loanFixture) *models.Loan {
		t.Helper()
		loan := f.request(t)
		_, err := f.service.Approve(context.Background(), f.admin, loan.ID)
		require.NoError(t, err)
		return loan
	}

	t.Run("owner returns an approved loan and the copy is released", func(t *testing.T) {
		f := newLoanFixture(t, 1)
		loan := approve(t, f)
		require.Equal(t, 0, f.availableCopies(t))

		returned, err := f.service.Return(context.Background(), f.borrower, loan.ID)

		require.NoError(t, err)
		assert.Equal(t, string(domain.StatusReturned), returned.Status)
		require.NotNil(t, returned.ReturnDate)
		assert.Equal(t, f.clock.Now(), *returned.ReturnDate)
		assert.Equal(t, 1, f.availableCopies(t))
	})

	t.Run("admin may return on behalf of the owner", func(t *testing.T) {
		f := newLoanFixture(t, 1)
		loan := approve(t, f)

		_, err := f.service.Return(context.Background(), f.admin, loan.ID)

		require.NoError(t, err)
	})

	t.Run("a stranger may not return someone else's loan", func(t *testing.T) {
		f := newLoanFixture(t, 1)
		loan := approve(t, f)

		_, err := f.service.Return(context.Background(), f.other, loan.ID)

		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.Equal(t, 0, f.availableCopies(t))
	})

	t.Run("an overdue loan can still be returned", func(t *testing.T) {
		f := newLoanFixture(t, 1)
		loan := approve(t, f)

		f.clock.Advance(15 * 24 * time.Hour)
		swept, err := f.store.Loans().MarkOverdueBefore(context.Background(), f.clock.Now())
		require.NoError(t, err)
		require.EqualValues(t, 1, swept)

		returned, err := f.service.Return(context.Background(), f.borrower, loan.ID)

		require.NoError(t, err)
		assert.Equal(t, string(domain.StatusReturned), returned.Status)
		assert.Equal(t, 1, f.availableCopies(t))
	})

	t.Run("a second return fails and does not double-increment", func(t *testing.T) {
		f := newLoanFixture(t, 1)
		loan := approve(t, f)

		_, err := f.service.Return(context.Background(), f.borrower, loan.ID)
		require.NoError(t, err)

		_, err = f.service.Return(context.Background(), f.borrower, loan.ID)

		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.Equal(t, 1, f.availableCopies(t))
	})

	t.Run("returning a pending loan fails", func(t *testing.T) {
		f := newLoanFixture(t, 1)
		loan := f.request(t)

		_, err := f.service.Return(context.Background(), f.borrower, loan.ID)

		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestEffectiveStatus(t *testing.T) {
	t.Run("approved loan past due reads as overdue before the sweeper runs", func(t *testing.T) {
		f := newLoanFixture(t, 1)
		loan := f.request(t)
		_, err := f.service.Approve(context.Background(), f.admin, loan.ID)
		require.NoError(t, err)

		f.clock.Advance(15 * 24 * time.Hour)

		got, err := f.service.GetByID(context.Background(), f.borrower, loan.ID)
		require.NoError(t, err)
		assert.Equal(t, string(domain.StatusOverdue), got.Status)
	})

	t.Run("approved loan before due date reads as approved", func(t *testing.T) {
		f := newLoanFixture(t, 1)
		loan := f.request(t)
		_, err := f.service.Approve(context.Background(), f.admin, loan.ID)
		require.NoError(t, err)

		f.clock.Advance(13 * 24 * time.Hour)

		got, err := f.service.GetByID(context.Background(), f.borrower, loan.ID)
		require.NoError(t, err)
		assert.Equal(t, string(domain.StatusApproved), got.Status)
	})
}

func TestLoanVisibility(t *testing.T) {
	t.Run("users see their own loans, admins see everything", func(t *testing.T) {
		f := newLoanFixture(t, 2)
		loan := f.request(t)

		_, err := f.service.GetByID(context.Background(), f.borrower, loan.ID)
		assert.NoError(t, err)

		_, err = f.service.GetByID(context.Background(), f.admin, loan.ID)
		assert.NoError(t, err)

		_, err = f.service.GetByID(context.Background(), f.other, loan.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("listing another user's loans requires admin", func(t *testing.T) {
		f := newLoanFixture(t, 2)
		f.request(t)

		_, _, err := f.service.ListByUser(context.Background(), f.other, f.borrower.UserID, 0, 10)
		assert.ErrorIs(t, err, domain.ErrForbidden)

		_, total, err := f.service.ListByUser(context.Background(), f.admin, f.borrower.UserID, 0, 10)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
	})

	t.Run("the unfiltered listing is admin only", func(t *testing.T) {
		f := newLoanFixture(t, 2)
		f.request(t)

		_, _, err := f.service.List(context.Background(), f.borrower, repositories.LoanListFilter{}, 0, 10)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestAvailabilityInvariant(t *testing.T) {
	t.Run("available equals total minus copy-holding loans through a full cycle", func(t *testing.T) {
		f := newLoanFixture(t, 3)
		ctx := context.Background()

		check := func() {
			t.Helper()
			book, err := f.store.Books().GetByID(ctx, f.book.ID)
			require.NoError(t, err)
			active, err := f.store.Loans().CountActiveByBook(ctx, f.book.ID)
			require.NoError(t, err)
			assert.Equal(t, book.TotalCopies-int(active), book.AvailableCopies)
			assert.GreaterOrEqual(t, book.AvailableCopies, 0)
			assert.LessOrEqual(t, book.AvailableCopies, book.TotalCopies)
		}

		loans := make([]*models.Loan, 5)
		for i := range loans {
			loans[i] = f.request(t)
			check()
		}

		for _, i := range []int{0, 1, 2} {
			_, err := f.service.Approve(ctx, f.admin, loans[i].ID)
			require.NoError(t, err)
			check()
		}

		_, err := f.service.Approve(ctx, f.admin, loans[3].ID)
		assert.ErrorIs(t, err, domain.ErrNoCopiesAvailable)
		check()

		_, err = f.service.Reject(ctx, f.admin, loans[4].ID)
		require.NoError(t, err)
		check()

		_, err = f.service.Return(ctx, f.borrower, loans[0].ID)
		require.NoError(t, err)
		check()

		_, err = f.service.Approve(ctx, f.admin, loans[3].ID)
		require.NoError(t, err)
		check()
	})
}
