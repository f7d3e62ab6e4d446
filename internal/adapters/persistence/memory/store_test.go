package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"librahub/internal/adapters/persistence/models"
	"librahub/internal/adapters/persistence/repositories"
	"librahub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedBookWithLoans(t *testing.T, store *Store, copies, pending int) (*models.Book, []*models.Loan) {
	t.Helper()
	ctx := context.Background()

	book := &models.Book{Title: "Clean Architecture", Author: "Robert Martin", TotalCopies: copies, AvailableCopies: copies}
	require.NoError(t, store.Books().Create(ctx, book))

	loans := make([]*models.Loan, pending)
	for i := range loans {
		loans[i] = &models.Loan{
			BookID:     book.ID,
			UserID:     1,
			BorrowDate: time.Now(),
			DueDate:    time.Now().Add(14 * 24 * time.Hour),
			Status:     string(domain.StatusPending),
		}
		require.NoError(t, store.Loans().Create(ctx, loans[i]))
	}
	return book, loans
}

func TestLoanTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("approve decrements availability atomically with the status change", func(t *testing.T) {
		store := NewStore()
		book, loans := seedBookWithLoans(t, store, 2, 1)

		require.NoError(t, store.Loans().Approve(ctx, loans[0].ID))

		stored, err := store.Loans().GetByID(ctx, loans[0].ID)
		require.NoError(t, err)
		assert.Equal(t, string(domain.StatusApproved), stored.Status)

		b, err := store.Books().GetByID(ctx, book.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, b.AvailableCopies)
	})

	t.Run("approve on exhausted inventory fails and changes nothing", func(t *testing.T) {
		store := NewStore()
		_, loans := seedBookWithLoans(t, store, 1, 2)

		require.NoError(t, store.Loans().Approve(ctx, loans[0].ID))
		err := store.Loans().Approve(ctx, loans[1].ID)

		assert.ErrorIs(t, err, domain.ErrNoCopiesAvailable)
		stored, err := store.Loans().GetByID(ctx, loans[1].ID)
		require.NoError(t, err)
		assert.Equal(t, string(domain.StatusPending), stored.Status)
	})

	t.Run("concurrent approvals of the last copy produce one winner", func(t *testing.T) {
		store := NewStore()
		_, loans := seedBookWithLoans(t, store, 1, 12)

		var wg sync.WaitGroup
		errs := make([]error, len(loans))
		for i, loan := range loans {
			wg.Add(1)
			go func(i int, id uint) {
				defer wg.Done()
				errs[i] = store.Loans().Approve(ctx, id)
			}(i, loan.ID)
		}
		wg.Wait()

		var wins int
		for _, err := range errs {
			if err == nil {
				wins++
			}
		}
		assert.Equal(t, 1, wins)
	})

	t.Run("return increment is clamped at the total", func(t *testing.T) {
		store := NewStore()
		book, loans := seedBookWithLoans(t, store, 1, 1)

		require.NoError(t, store.Loans().Approve(ctx, loans[0].ID))
		require.NoError(t, store.Loans().Return(ctx, loans[0].ID, time.Now()))

		// Force the loan back into a copy-holding state without a matching
		// decrement, simulating a prior accounting bug.
		loan, err := store.Loans().GetByID(ctx, loans[0].ID)
		require.NoError(t, err)
		loan.Status = string(domain.StatusApproved)
		require.NoError(t, store.Loans().Create(ctx, loan))

		err = store.Loans().Return(ctx, loan.ID, time.Now())
		assert.ErrorIs(t, err, domain.ErrInventoryCorrupt)

		b, err := store.Books().GetByID(ctx, book.ID)
		require.NoError(t, err)
		assert.Equal(t, b.TotalCopies, b.AvailableCopies)
	})
}

func TestSetTotalCopies(t *testing.T) {
	ctx := context.Background()

	t.Run("shifts availability by the same delta", func(t *testing.T) {
		store := NewStore()
		book, loans := seedBookWithLoans(t, store, 2, 1)
		require.NoError(t, store.Loans().Approve(ctx, loans[0].ID))

		require.NoError(t, store.Books().SetTotalCopies(ctx, book.ID, 4))

		b, err := store.Books().GetByID(ctx, book.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, b.TotalCopies)
		assert.Equal(t, 3, b.AvailableCopies)
	})

	t.Run("rejects totals below the loaned-out count", func(t *testing.T) {
		store := NewStore()
		book, loans := seedBookWithLoans(t, store, 3, 2)
		require.NoError(t, store.Loans().Approve(ctx, loans[0].ID))
		require.NoError(t, store.Loans().Approve(ctx, loans[1].ID))

		err := store.Books().SetTotalCopies(ctx, book.ID, 1)
		assert.ErrorIs(t, err, domain.ErrCopiesBelowLoaned)
	})

	t.Run("rejects non-positive totals", func(t *testing.T) {
		store := NewStore()
		book, _ := seedBookWithLoans(t, store, 1, 0)

		err := store.Books().SetTotalCopies(ctx, book.ID, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidCopyCount)
	})
}

func TestListingAndPaging(t *testing.T) {
	ctx := context.Background()

	t.Run("loan listings filter by status, user and book", func(t *testing.T) {
		store := NewStore()
		_, loans := seedBookWithLoans(t, store, 5, 3)
		require.NoError(t, store.Loans().Approve(ctx, loans[0].ID))

		approved, total, err := store.Loans().List(ctx, repositories.LoanListFilter{Status: domain.StatusApproved}, 0, 10)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, approved, 1)
		assert.Equal(t, loans[0].ID, approved[0].ID)
	})

	t.Run("paging past the end returns an empty page with the full total", func(t *testing.T) {
		store := NewStore()
		seedBookWithLoans(t, store, 5, 3)

		loansPage, total, err := store.Loans().List(ctx, repositories.LoanListFilter{}, 10, 10)
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		assert.Empty(t, loansPage)
	})

	t.Run("book search matches title, author and isbn", func(t *testing.T) {
		store := NewStore()
		require.NoError(t, store.Books().Create(ctx, &models.Book{Title: "The Go Programming Language", Author: "Donovan", ISBN: "978-0134190440", TotalCopies: 1, AvailableCopies: 1}))
		require.NoError(t, store.Books().Create(ctx, &models.Book{Title: "Effective Java", Author: "Bloch", TotalCopies: 1, AvailableCopies: 1}))

		books, total, err := store.Books().Search(ctx, repositories.BookSearchFilter{Query: "go program"}, 0, 10)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, books, 1)
		assert.Equal(t, "The Go Programming Language", books[0].Title)
	})
}
