package repositories

import (
	"context"
	"time"

	"librahub/internal/adapters/persistence/models"
	"librahub/internal/core/domain"
)

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, offset, limit int) ([]*models.User, int64, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id uint) error
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllByUserID(ctx context.Context, userID uint) error
	DeleteExpired(ctx context.Context) error
}

// CategoryRepository defines category repository interface
type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id uint) (*models.Category, error)
	List(ctx context.Context) ([]*models.Category, error)
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id uint) error
}

// BookSearchFilter narrows book listings
type BookSearchFilter struct {
	Query      string
	CategoryID uint
}

// BookRepository defines the book inventory store interface.
// AvailableCopies is never written directly by callers; it changes only
// through the loan transitions in LoanRepository and through SetTotalCopies.
type BookRepository interface {
	Create(ctx context.Context, book *models.Book) error
	GetByID(ctx context.Context, id uint) (*models.Book, error)
	Update(ctx context.Context, book *models.Book) error
	Delete(ctx context.Context, id uint) error
	Search(ctx context.Context, filter BookSearchFilter, offset, limit int) ([]*models.Book, int64, error)

	// SetTotalCopies changes TotalCopies and shifts AvailableCopies by the
	// same delta, atomically. Fails with domain.ErrCopiesBelowLoaned when the
	// new total is lower than the currently loaned-out count.
	SetTotalCopies(ctx context.Context, id uint, total int) error
}

// LoanListFilter narrows admin loan listings
type LoanListFilter struct {
	Status domain.LoanStatus
	UserID uint
	BookID uint
}

// LoanRepository defines the loan record store interface. The transition
// methods apply the status change and the paired copy-counter update as one
// atomic unit: both happen or neither does, and a concurrent transition
// against the same book or loan cannot interleave inside them.
type LoanRepository interface {
	Create(ctx context.Context, loan *models.Loan) error
	GetByID(ctx context.Context, id uint) (*models.Loan, error)
	ListByUser(ctx context.Context, userID uint, offset, limit int) ([]*models.Loan, int64, error)
	ListByBook(ctx context.Context, bookID uint) ([]*models.Loan, error)
	List(ctx context.Context, filter LoanListFilter, offset, limit int) ([]*models.Loan, int64, error)

	// Approve moves PENDING -> APPROVED and decrements the book's
	// AvailableCopies, failing with domain.ErrNoCopiesAvailable when the
	// counter is zero at the instant of approval.
	Approve(ctx context.Context, loanID uint) error

	// Reject moves PENDING -> REJECTED. No counter change.
	Reject(ctx context.Context, loanID uint) error

	// Return moves APPROVED|OVERDUE -> RETURNED, sets ReturnDate and
	// increments AvailableCopies. The increment is guarded so it can never
	// exceed TotalCopies; hitting the guard fails with domain.ErrInventoryCorrupt.
	Return(ctx context.Context, loanID uint, returnedAt time.Time) error

	// MarkOverdueBefore moves every APPROVED loan with DueDate before now to
	// OVERDUE and reports how many rows changed. Idempotent.
	MarkOverdueBefore(ctx context.Context, now time.Time) (int64, error)

	// CountActiveByBook counts loans on the book currently holding a copy
	// (APPROVED or OVERDUE).
	CountActiveByBook(ctx context.Context, bookID uint) (int64, error)
}
