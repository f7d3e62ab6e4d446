package repositories

import (
	"context"
	"errors"
	"time"

	"librahub/internal/adapters/persistence/models"
	"librahub/internal/core/domain"

	"gorm.io/gorm"
)

// GormLoanRepository handles loan data access. Every transition that touches
// a book's AvailableCopies runs as one database transaction built from
// conditional updates: the WHERE clause re-checks the precondition at write
// time, so concurrent callers racing on the same loan or the last copy of a
// book resolve to exactly one winner.
type GormLoanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) *GormLoanRepository {
	return &GormLoanRepository{db: db}
}

// Create creates a new loan
func (r *GormLoanRepository) Create(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Create(loan).Error
}

// GetByID gets a loan by ID with its book and user
func (r *GormLoanRepository) GetByID(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Preload("Book").
		Preload("User").
		First(&loan, id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// ListByUser lists a user's loans, newest first
func (r *GormLoanRepository) ListByUser(ctx context.Context, userID uint, offset, limit int) ([]*models.Loan, int64, error) {
	var loans []*models.Loan
	var total int64

	r.db.WithContext(ctx).Model(&models.Loan{}).Where("user_id = ?", userID).Count(&total)

	err := r.db.WithContext(ctx).
		Preload("Book").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&loans).Error

	return loans, total, err
}

// ListByBook lists all loans on a book, newest first
func (r *GormLoanRepository) ListByBook(ctx context.Context, bookID uint) ([]*models.Loan, error) {
	var loans []*models.Loan
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("book_id = ?", bookID).
		Order("created_at DESC").
		Find(&loans).Error
	return loans, err
}

// List lists loans matching the filter, with pagination
func (r *GormLoanRepository) List(ctx context.Context, filter LoanListFilter, offset, limit int) ([]*models.Loan, int64, error) {
	var loans []*models.Loan
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Loan{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.BookID != 0 {
		query = query.Where("book_id = ?", filter.BookID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Book").
		Preload("User").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&loans).Error

	return loans, total, err
}

// Approve moves PENDING -> APPROVED and decrements AvailableCopies.
// Both updates are conditional; if either precondition fails the whole
// transaction rolls back and the typed error reports which one.
func (r *GormLoanRepository) Approve(ctx context.Context, loanID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Loan{}).
			Where("id = ? AND status = ?", loanID, string(domain.StatusPending)).
			Update("status", string(domain.StatusApproved))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return r.transitionFailure(tx, loanID)
		}

		dec := tx.Model(&models.Book{}).
			Where("id = (?) AND available_copies > 0",
				tx.Model(&models.Loan{}).Select("book_id").Where("id = ?", loanID)).
			UpdateColumn("available_copies", gorm.Expr("available_copies - 1"))
		if dec.Error != nil {
			return dec.Error
		}
		if dec.RowsAffected == 0 {
			return domain.ErrNoCopiesAvailable
		}

		return nil
	})
}

// Reject moves PENDING -> REJECTED. No counter change.
func (r *GormLoanRepository) Reject(ctx context.Context, loanID uint) error {
	res := r.db.WithContext(ctx).Model(&models.Loan{}).
		Where("id = ? AND status = ?", loanID, string(domain.StatusPending)).
		Update("status", string(domain.StatusRejected))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.transitionFailure(r.db.WithContext(ctx), loanID)
	}
	return nil
}

// Return moves APPROVED|OVERDUE -> RETURNED, sets ReturnDate and increments
// AvailableCopies. The increment is guarded against exceeding TotalCopies;
// tripping the guard means the counters were already inconsistent.
func (r *GormLoanRepository) Return(ctx context.Context, loanID uint, returnedAt time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Loan{}).
			Where("id = ? AND status IN ?", loanID,
				[]string{string(domain.StatusApproved), string(domain.StatusOverdue)}).
			Updates(map[string]interface{}{
				"status":      string(domain.StatusReturned),
				"return_date": returnedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return r.transitionFailure(tx, loanID)
		}

		inc := tx.Model(&models.Book{}).
			Where("id = (?) AND available_copies < total_copies",
				tx.Model(&models.Loan{}).Select("book_id").Where("id = ?", loanID)).
			UpdateColumn("available_copies", gorm.Expr("available_copies + 1"))
		if inc.Error != nil {
			return inc.Error
		}
		if inc.RowsAffected == 0 {
			return domain.ErrInventoryCorrupt
		}

		return nil
	})
}

// MarkOverdueBefore moves every APPROVED loan past due to OVERDUE.
// Re-running on already-OVERDUE loans matches zero rows, so the sweep is
// idempotent and safe to run concurrently with user transitions.
func (r *GormLoanRepository) MarkOverdueBefore(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Loan{}).
		Where("status = ? AND due_date < ?", string(domain.StatusApproved), now).
		Update("status", string(domain.StatusOverdue))
	return res.RowsAffected, res.Error
}

// CountActiveByBook counts loans on the book currently holding a copy
func (r *GormLoanRepository) CountActiveByBook(ctx context.Context, bookID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Loan{}).
		Where("book_id = ? AND status IN ?", bookID,
			[]string{string(domain.StatusApproved), string(domain.StatusOverdue)}).
		Count(&count).Error
	return count, err
}

// transitionFailure distinguishes a missing loan from a wrong source state
// after a conditional update matched no rows.
func (r *GormLoanRepository) transitionFailure(tx *gorm.DB, loanID uint) error {
	var loan models.Loan
	if err := tx.First(&loan, loanID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrLoanNotFound
		}
		return err
	}
	return domain.ErrInvalidTransition
}
