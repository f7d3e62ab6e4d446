package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"librahub/internal/adapters/persistence/models"
	"librahub/internal/adapters/persistence/repositories"
	"librahub/internal/core/domain"

	"gorm.io/gorm"
)

// Clock abstracts time.Now so the lifecycle rules can be tested against a
// fixed instant.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// LoanService is the loan lifecycle engine. It validates each requested
// transition against the state machine and the access policy, then applies
// the status change and any paired copy-counter update through the
// repository's atomic transition primitives. It never retries on its own:
// a transient storage failure surfaces as domain.ErrStorageUnavailable and
// re-submitting must re-check current state.
type LoanService struct {
	loanRepo repositories.LoanRepository
	bookRepo repositories.BookRepository
	policy   AccessPolicy
	period   time.Duration
	clock    Clock
}

// NewLoanService creates a new loan lifecycle engine. loanPeriodDays is the
// fixed loan term added to the borrow date to produce the due date.
func NewLoanService(
	loanRepo repositories.LoanRepository,
	bookRepo repositories.BookRepository,
	policy AccessPolicy,
	loanPeriodDays int,
) *LoanService {
	return &LoanService{
		loanRepo: loanRepo,
		bookRepo: bookRepo,
		policy:   policy,
		period:   time.Duration(loanPeriodDays) * 24 * time.Hour,
		clock:    realClock{},
	}
}

// RequestLoanInput represents a borrower's loan request
type RequestLoanInput struct {
	BookID uint   `json:"book_id"`
	Notes  string `json:"notes,omitempty"`
}

// Request creates a Pending loan for the calling user. Availability is
// deliberately not checked here: pending requests may exceed supply, and
// admins decide at approval time which requests get the remaining copies.
func (s *LoanService) Request(ctx context.Context, identity domain.Identity, input *RequestLoanInput) (*models.Loan, error) {
	if err := s.policy.CanRequestLoan(identity, identity.UserID); err != nil {
		return nil, err
	}

	if _, err := s.bookRepo.GetByID(ctx, input.BookID); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("request loan for book %d: %w", input.BookID, domain.ErrBookNotFound)
		}
		return nil, storageFailure(err)
	}

	now := s.clock.Now()
	loan := &models.Loan{
		BookID:     input.BookID,
		UserID:     identity.UserID,
		BorrowDate: now,
		DueDate:    now.Add(s.period),
		Status:     string(domain.StatusPending),
		Notes:      input.Notes,
	}

	if err := s.loanRepo.Create(ctx, loan); err != nil {
		return nil, storageFailure(err)
	}

	return loan, nil
}

// Approve moves a Pending loan to Approved and reserves one copy of its
// book. The decrement is atomic with the status change: two concurrent
// approvals racing for the last copy cannot both succeed.
func (s *LoanService) Approve(ctx context.Context, identity domain.Identity, loanID uint) (*models.Loan, error) {
	if err := s.policy.CanDecide(identity); err != nil {
		return nil, err
	}

	if err := s.loanRepo.Approve(ctx, loanID); err != nil {
		return nil, transitionFailure(err, "approve", loanID)
	}

	return s.reload(ctx, loanID)
}

// Reject moves a Pending loan to Rejected. No copy was reserved, so the
// book's counters are untouched.
func (s *LoanService) Reject(ctx context.Context, identity domain.Identity, loanID uint) (*models.Loan, error) {
	if err := s.policy.CanDecide(identity); err != nil {
		return nil, err
	}

	if err := s.loanRepo.Reject(ctx, loanID); err != nil {
		return nil, transitionFailure(err, "reject", loanID)
	}

	return s.reload(ctx, loanID)
}

// Return moves an Approved or Overdue loan to Returned, sets the return
// date and releases the reserved copy back to the book.
func (s *LoanService) Return(ctx context.Context, identity domain.Identity, loanID uint) (*models.Loan, error) {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CanReturn(identity, loan); err != nil {
		return nil, err
	}

	if err := s.loanRepo.Return(ctx, loanID, s.clock.Now()); err != nil {
		return nil, transitionFailure(err, "return", loanID)
	}

	return s.reload(ctx, loanID)
}

// GetByID returns a loan visible to the caller, with its effective status.
func (s *LoanService) GetByID(ctx context.Context, identity domain.Identity, loanID uint) (*models.Loan, error) {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CanViewLoan(identity, loan); err != nil {
		return nil, err
	}
	s.effective(loan)
	return loan, nil
}

// ListByUser lists a user's loans, newest first, with effective statuses.
func (s *LoanService) ListByUser(ctx context.Context, identity domain.Identity, userID uint, offset, limit int) ([]*models.Loan, int64, error) {
	if err := s.policy.CanListUserLoans(identity, userID); err != nil {
		return nil, 0, err
	}

	loans, total, err := s.loanRepo.ListByUser(ctx, userID, offset, limit)
	if err != nil {
		return nil, 0, storageFailure(err)
	}
	for _, loan := range loans {
		s.effective(loan)
	}
	return loans, total, nil
}

// ListByBook lists all loans on a book (admin only).
func (s *LoanService) ListByBook(ctx context.Context, identity domain.Identity, bookID uint) ([]*models.Loan, error) {
	if err := s.policy.CanAdminister(identity); err != nil {
		return nil, err
	}

	loans, err := s.loanRepo.ListByBook(ctx, bookID)
	if err != nil {
		return nil, storageFailure(err)
	}
	for _, loan := range loans {
		s.effective(loan)
	}
	return loans, nil
}

// List lists loans matching the filter (admin only).
func (s *LoanService) List(ctx context.Context, identity domain.Identity, filter repositories.LoanListFilter, offset, limit int) ([]*models.Loan, int64, error) {
	if err := s.policy.CanAdminister(identity); err != nil {
		return nil, 0, err
	}

	loans, total, err := s.loanRepo.List(ctx, filter, offset, limit)
	if err != nil {
		return nil, 0, storageFailure(err)
	}
	for _, loan := range loans {
		s.effective(loan)
	}
	return loans, total, nil
}

// effective rewrites the loan's status to the externally observed one:
// Approved past its due date reads as Overdue even before the sweeper has
// persisted the transition.
func (s *LoanService) effective(loan *models.Loan) {
	loan.Status = string(loan.EffectiveStatus(s.clock.Now()))
}

func (s *LoanService) getLoan(ctx context.Context, loanID uint) (*models.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("loan %d: %w", loanID, domain.ErrLoanNotFound)
		}
		return nil, storageFailure(err)
	}
	return loan, nil
}

// reload fetches the loan after a successful transition so the caller sees
// the stored result, tolerating a plain copy when the read back fails.
func (s *LoanService) reload(ctx context.Context, loanID uint) (*models.Loan, error) {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	s.effective(loan)
	return loan, nil
}

// transitionFailure attaches the attempted transition and loan id to a
// repository error, keeping domain sentinels intact for errors.Is.
func transitionFailure(err error, op string, loanID uint) error {
	switch {
	case errors.Is(err, domain.ErrLoanNotFound),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrNoCopiesAvailable),
		errors.Is(err, domain.ErrInventoryCorrupt),
		errors.Is(err, domain.ErrBookNotFound):
		return fmt.Errorf("%s loan %d: %w", op, loanID, err)
	default:
		return storageFailure(err)
	}
}

// isNotFound recognises a missing row from either storage backend.
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrBookNotFound) ||
		errors.Is(err, domain.ErrLoanNotFound) ||
		errors.Is(err, domain.ErrUserNotFound) ||
		errors.Is(err, domain.ErrCategoryNotFound)
}

// storageFailure wraps unclassified repository errors so callers can treat
// them as retryable infrastructure failures.
func storageFailure(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
}
