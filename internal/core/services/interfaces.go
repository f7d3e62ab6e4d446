package services

import (
	"context"

	"librahub/internal/adapters/persistence/models"
	"librahub/internal/adapters/persistence/repositories"
	"librahub/internal/core/domain"
)

// Note: LoanService implementation is in loan_service.go
// Note: BookService implementation is in book_service.go

// LoanLifecycle defines the loan lifecycle engine interface consumed by the
// HTTP adapter. Every operation takes the authenticated caller's identity;
// the access policy gate runs inside the engine, never in the transport.
type LoanLifecycle interface {
	Request(ctx context.Context, identity domain.Identity, input *RequestLoanInput) (*models.Loan, error)
	Approve(ctx context.Context, identity domain.Identity, loanID uint) (*models.Loan, error)
	Reject(ctx context.Context, identity domain.Identity, loanID uint) (*models.Loan, error)
	Return(ctx context.Context, identity domain.Identity, loanID uint) (*models.Loan, error)

	GetByID(ctx context.Context, identity domain.Identity, loanID uint) (*models.Loan, error)
	ListByUser(ctx context.Context, identity domain.Identity, userID uint, offset, limit int) ([]*models.Loan, int64, error)
	ListByBook(ctx context.Context, identity domain.Identity, bookID uint) ([]*models.Loan, error)
	List(ctx context.Context, identity domain.Identity, filter repositories.LoanListFilter, offset, limit int) ([]*models.Loan, int64, error)
}

// Catalog defines the book catalog interface consumed by the HTTP adapter
type Catalog interface {
	Create(ctx context.Context, identity domain.Identity, input *CreateBookInput) (*models.Book, error)
	Update(ctx context.Context, identity domain.Identity, bookID uint, input *UpdateBookInput) (*models.Book, error)
	Delete(ctx context.Context, identity domain.Identity, bookID uint) error
	GetByID(ctx context.Context, bookID uint) (*models.Book, error)
	Search(ctx context.Context, filter repositories.BookSearchFilter, offset, limit int) ([]*models.Book, int64, error)
}

var (
	_ LoanLifecycle = (*LoanService)(nil)
	_ Catalog       = (*BookService)(nil)
)
