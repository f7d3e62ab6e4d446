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

type bookFixture struct {
	store   *memory.Store
	service *BookService
	loans   *LoanService

	admin    domain.Identity
	borrower domain.Identity

	category *models.Category
}

func newBookFixture(t *testing.T) *bookFixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	admin := &models.User{Username: "admin", Email: "admin@test.local", Role: "ADMIN", IsActive: true}
	borrower := &models.User{Username: "alice", Email: "alice@test.local", Role: "USER", IsActive: true}
	require.NoError(t, store.Users().Create(ctx, admin))
	require.NoError(t, store.Users().Create(ctx, borrower))

	category := &models.Category{Name: "Technology"}
	require.NoError(t, store.Categories().Create(ctx, category))

	policy := NewAccessPolicy()
	return &bookFixture{
		store:    store,
		service:  NewBookService(store.Books(), store.Categories(), store.Loans(), policy),
		loans:    NewLoanService(store.Loans(), store.Books(), policy, 14),
		admin:    admin.Identity(),
		borrower: borrower.Identity(),
		category: category,
	}
}

func (f *bookFixture) createBook(t *testing.T, copies int) *models.Book {
	t.Helper()
	book, err := f.service.Create(context.Background(), f.admin, &CreateBookInput{
		Title:       "Designing Data-Intensive Applications",
		Author:      "Martin Kleppmann",
		CategoryID:  f.category.ID,
		TotalCopies: copies,
	})
	require.NoError(t, err)
	return book
}

func intPtr(i int) *int { return &i }

func TestCreateBook(t *testing.T) {
	t.Run("all copies start available", func(t *testing.T) {
		f := newBookFixture(t)

		book := f.createBook(t, 4)

		assert.Equal(t, 4, book.TotalCopies)
		assert.Equal(t, 4, book.AvailableCopies)
	})

	t.Run("requires at least one copy", func(t *testing.T) {
		f := newBookFixture(t)

		_, err := f.service.Create(context.Background(), f.admin, &CreateBookInput{
			Title:       "Empty",
			Author:      "Nobody",
			CategoryID:  f.category.ID,
			TotalCopies: 0,
		})

		assert.ErrorIs(t, err, domain.ErrInvalidCopyCount)
	})

	t.Run("requires an existing category", func(t *testing.T) {
		f := newBookFixture(t)

		_, err := f.service.Create(context.Background(), f.admin, &CreateBookInput{
			Title:       "Orphan",
			Author:      "Nobody",
			CategoryID:  999,
			TotalCopies: 1,
		})

		assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
	})

	t.Run("is admin only", func(t *testing.T) {
		f := newBookFixture(t)

		_, err := f.service.Create(context.Background(), f.borrower, &CreateBookInput{
			Title:       "Sneaky",
			Author:      "Nobody",
			CategoryID:  f.category.ID,
			TotalCopies: 1,
		})

		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestUpdateBookCopies(t *testing.T) {
	approve := func(t *testing.T, f *bookFixture, bookID uint) {
		t.Helper()
		ctx := context.Background()
		loan, err := f.loans.Request(ctx, f.borrower, &RequestLoanInput{BookID: bookID})
		require.NoError(t, err)
		_, err = f.loans.Approve(ctx, f.admin, loan.ID)
		require.NoError(t, err)
	}

	t.Run("raising the total raises availability by the same delta", func(t *testing.T) {
		f := newBookFixture(t)
		book := f.createBook(t, 2)
		approve(t, f, book.ID)

		updated, err := f.service.Update(context.Background(), f.admin, book.ID, &UpdateBookInput{
			TotalCopies: intPtr(5),
		})

		require.NoError(t, err)
		assert.Equal(t, 5, updated.TotalCopies)
		assert.Equal(t, 4, updated.AvailableCopies)
	})

	t.Run("lowering the total keeps loaned copies accounted for", func(t *testing.T) {
		f := newBookFixture(t)
		book := f.createBook(t, 5)
		approve(t, f, book.ID)
		approve(t, f, book.ID)

		updated, err := f.service.Update(context.Background(), f.admin, book.ID, &UpdateBookInput{
			TotalCopies: intPtr(3),
		})

		require.NoError(t, err)
		assert.Equal(t, 3, updated.TotalCopies)
		assert.Equal(t, 1, updated.AvailableCopies)
	})

	t.Run("cannot lower the total below the loaned-out count", func(t *testing.T) {
		f := newBookFixture(t)
		book := f.createBook(t, 3)
		approve(t, f, book.ID)
		approve(t, f, book.ID)

		_, err := f.service.Update(context.Background(), f.admin, book.ID, &UpdateBookInput{
			TotalCopies: intPtr(1),
		})

		assert.ErrorIs(t, err, domain.ErrCopiesBelowLoaned)

		// The failed update must leave the counters untouched
		stored, err := f.service.GetByID(context.Background(), book.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, stored.TotalCopies)
		assert.Equal(t, 1, stored.AvailableCopies)
	})

	t.Run("metadata updates leave the counters alone", func(t *testing.T) {
		f := newBookFixture(t)
		book := f.createBook(t, 3)
		approve(t, f, book.ID)

		title := "DDIA, Second Edition"
		updated, err := f.service.Update(context.Background(), f.admin, book.ID, &UpdateBookInput{
			Title: &title,
		})

		require.NoError(t, err)
		assert.Equal(t, title, updated.Title)
		assert.Equal(t, 3, updated.TotalCopies)
		assert.Equal(t, 2, updated.AvailableCopies)
	})
}

func TestDeleteBook(t *testing.T) {
	t.Run("deletes a book without active loans", func(t *testing.T) {
		f := newBookFixture(t)
		book := f.createBook(t, 1)

		err := f.service.Delete(context.Background(), f.admin, book.ID)

		require.NoError(t, err)
		_, err = f.service.GetByID(context.Background(), book.ID)
		assert.ErrorIs(t, err, domain.ErrBookNotFound)
	})

	t.Run("refuses while a loan holds a copy", func(t *testing.T) {
		f := newBookFixture(t)
		book := f.createBook(t, 1)
		ctx := context.Background()

		loan, err := f.loans.Request(ctx, f.borrower, &RequestLoanInput{BookID: book.ID})
		require.NoError(t, err)
		_, err = f.loans.Approve(ctx, f.admin, loan.ID)
		require.NoError(t, err)

		err = f.service.Delete(ctx, f.admin, book.ID)

		assert.ErrorIs(t, err, domain.ErrBookHasActiveLoans)
	})

	t.Run("pending loans do not block deletion", func(t *testing.T) {
		f := newBookFixture(t)
		book := f.createBook(t, 1)
		ctx := context.Background()

		_, err := f.loans.Request(ctx, f.borrower, &RequestLoanInput{BookID: book.ID})
		require.NoError(t, err)

		err = f.service.Delete(ctx, f.admin, book.ID)

		assert.NoError(t, err)
	})
}
