package repositories

import (
	"context"

	"librahub/internal/adapters/persistence/models"
	"librahub/internal/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBookRepository handles book inventory data access
type GormBookRepository struct {
	db *gorm.DB
}

// NewBookRepository creates a new book repository
func NewBookRepository(db *gorm.DB) *GormBookRepository {
	return &GormBookRepository{db: db}
}

// Create creates a new book
func (r *GormBookRepository) Create(ctx context.Context, book *models.Book) error {
	return r.db.WithContext(ctx).Create(book).Error
}

// GetByID gets a book by ID with its category
func (r *GormBookRepository) GetByID(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).
		Preload("Category").
		First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// Update updates book metadata. Copy counters are excluded: they change only
// through SetTotalCopies and the loan transitions.
func (r *GormBookRepository) Update(ctx context.Context, book *models.Book) error {
	return r.db.WithContext(ctx).Model(book).
		Updates(map[string]interface{}{
			"title":            book.Title,
			"author":           book.Author,
			"isbn":             book.ISBN,
			"publisher":        book.Publisher,
			"publication_year": book.PublicationYear,
			"description":      book.Description,
			"cover_image_url":  book.CoverImageURL,
			"category_id":      book.CategoryID,
		}).Error
}

// Delete soft deletes a book
func (r *GormBookRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Book{}, id).Error
}

// Search lists books matching the filter, with pagination
func (r *GormBookRepository) Search(ctx context.Context, filter BookSearchFilter, offset, limit int) ([]*models.Book, int64, error) {
	var books []*models.Book
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Book{})
	if filter.Query != "" {
		like := "%" + filter.Query + "%"
		query = query.Where("title LIKE ? OR author LIKE ? OR isbn LIKE ?", like, like, like)
	}
	if filter.CategoryID != 0 {
		query = query.Where("category_id = ?", filter.CategoryID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Category").
		Order("title ASC").
		Offset(offset).
		Limit(limit).
		Find(&books).Error

	return books, total, err
}

// SetTotalCopies changes TotalCopies and shifts AvailableCopies by the same
// delta in one transaction. The row is locked while the loaned-out count
// (total - available) is checked, so a concurrent approval cannot slip a new
// reservation in between the check and the write.
func (r *GormBookRepository) SetTotalCopies(ctx context.Context, id uint, total int) error {
	if total < 1 {
		return domain.ErrInvalidCopyCount
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book models.Book
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&book, id).Error
		if err != nil {
			return err
		}

		loaned := book.TotalCopies - book.AvailableCopies
		if total < loaned {
			return domain.ErrCopiesBelowLoaned
		}

		return tx.Model(&models.Book{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"total_copies":     total,
				"available_copies": total - loaned,
			}).Error
	})
}
