package services

import (
	"context"
	"errors"
	"fmt"

	"librahub/internal/adapters/persistence/models"
	"librahub/internal/adapters/persistence/repositories"
	"librahub/internal/core/domain"
)

// BookService handles the book catalog and its copy inventory. Reads are
// public; every mutation is admin-only and goes through the policy gate.
type BookService struct {
	bookRepo     repositories.BookRepository
	categoryRepo repositories.CategoryRepository
	loanRepo     repositories.LoanRepository
	policy       AccessPolicy
}

// NewBookService creates a new book service
func NewBookService(
	bookRepo repositories.BookRepository,
	categoryRepo repositories.CategoryRepository,
	loanRepo repositories.LoanRepository,
	policy AccessPolicy,
) *BookService {
	return &BookService{
		bookRepo:     bookRepo,
		categoryRepo: categoryRepo,
		loanRepo:     loanRepo,
		policy:       policy,
	}
}

// CreateBookInput represents create book input
type CreateBookInput struct {
	Title           string `json:"title"`
	Author          string `json:"author"`
	ISBN            string `json:"isbn,omitempty"`
	Publisher       string `json:"publisher,omitempty"`
	PublicationYear int    `json:"publication_year,omitempty"`
	Description     string `json:"description,omitempty"`
	CoverImageURL   string `json:"cover_image_url,omitempty"`
	CategoryID      uint   `json:"category_id"`
	TotalCopies     int    `json:"total_copies"`
}

// Create creates a new book with all copies available
func (s *BookService) Create(ctx context.Context, identity domain.Identity, input *CreateBookInput) (*models.Book, error) {
	if err := s.policy.CanAdminister(identity); err != nil {
		return nil, err
	}
	if input.TotalCopies < 1 {
		return nil, domain.ErrInvalidCopyCount
	}
	if _, err := s.categoryRepo.GetByID(ctx, input.CategoryID); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("category %d: %w", input.CategoryID, domain.ErrCategoryNotFound)
		}
		return nil, storageFailure(err)
	}

	book := &models.Book{
		Title:           input.Title,
		Author:          input.Author,
		ISBN:            input.ISBN,
		Publisher:       input.Publisher,
		PublicationYear: input.PublicationYear,
		Description:     input.Description,
		CoverImageURL:   input.CoverImageURL,
		CategoryID:      input.CategoryID,
		TotalCopies:     input.TotalCopies,
		AvailableCopies: input.TotalCopies,
	}

	if err := s.bookRepo.Create(ctx, book); err != nil {
		return nil, storageFailure(err)
	}

	return book, nil
}

// UpdateBookInput represents update book input. TotalCopies, when set,
// adjusts the inventory under the loaned-out floor rule.
type UpdateBookInput struct {
	Title           *string `json:"title,omitempty"`
	Author          *string `json:"author,omitempty"`
	ISBN            *string `json:"isbn,omitempty"`
	Publisher       *string `json:"publisher,omitempty"`
	PublicationYear *int    `json:"publication_year,omitempty"`
	Description     *string `json:"description,omitempty"`
	CoverImageURL   *string `json:"cover_image_url,omitempty"`
	CategoryID      *uint   `json:"category_id,omitempty"`
	TotalCopies     *int    `json:"total_copies,omitempty"`
}

// Update updates book metadata and, when requested, the total copy count.
// Lowering the total below the currently loaned-out count fails with
// domain.ErrCopiesBelowLoaned: reducing supply must not orphan active loans
// into negative availability.
func (s *BookService) Update(ctx context.Context, identity domain.Identity, bookID uint, input *UpdateBookInput) (*models.Book, error) {
	if err := s.policy.CanAdminister(identity); err != nil {
		return nil, err
	}

	book, err := s.getBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		book.Title = *input.Title
	}
	if input.Author != nil {
		book.Author = *input.Author
	}
	if input.ISBN != nil {
		book.ISBN = *input.ISBN
	}
	if input.Publisher != nil {
		book.Publisher = *input.Publisher
	}
	if input.PublicationYear != nil {
		book.PublicationYear = *input.PublicationYear
	}
	if input.Description != nil {
		book.Description = *input.Description
	}
	if input.CoverImageURL != nil {
		book.CoverImageURL = *input.CoverImageURL
	}
	if input.CategoryID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, *input.CategoryID); err != nil {
			if isNotFound(err) {
				return nil, fmt.Errorf("category %d: %w", *input.CategoryID, domain.ErrCategoryNotFound)
			}
			return nil, storageFailure(err)
		}
		book.CategoryID = *input.CategoryID
	}

	if err := s.bookRepo.Update(ctx, book); err != nil {
		return nil, storageFailure(err)
	}

	if input.TotalCopies != nil && *input.TotalCopies != book.TotalCopies {
		if err := s.bookRepo.SetTotalCopies(ctx, bookID, *input.TotalCopies); err != nil {
			switch {
			case errors.Is(err, domain.ErrCopiesBelowLoaned), errors.Is(err, domain.ErrInvalidCopyCount):
				return nil, fmt.Errorf("book %d: %w", bookID, err)
			default:
				return nil, storageFailure(err)
			}
		}
	}

	return s.getBook(ctx, bookID)
}

// Delete removes a book from the catalog. Books with loans currently
// holding a copy cannot be deleted.
func (s *BookService) Delete(ctx context.Context, identity domain.Identity, bookID uint) error {
	if err := s.policy.CanAdminister(identity); err != nil {
		return err
	}

	if _, err := s.getBook(ctx, bookID); err != nil {
		return err
	}

	active, err := s.loanRepo.CountActiveByBook(ctx, bookID)
	if err != nil {
		return storageFailure(err)
	}
	if active > 0 {
		return fmt.Errorf("book %d has %d active loan(s): %w", bookID, active, domain.ErrBookHasActiveLoans)
	}

	if err := s.bookRepo.Delete(ctx, bookID); err != nil {
		return storageFailure(err)
	}
	return nil
}

// GetByID gets a book by ID (public)
func (s *BookService) GetByID(ctx context.Context, bookID uint) (*models.Book, error) {
	return s.getBook(ctx, bookID)
}

// Search lists books matching the filter, with pagination (public)
func (s *BookService) Search(ctx context.Context, filter repositories.BookSearchFilter, offset, limit int) ([]*models.Book, int64, error) {
	books, total, err := s.bookRepo.Search(ctx, filter, offset, limit)
	if err != nil {
		return nil, 0, storageFailure(err)
	}
	return books, total, nil
}

func (s *BookService) getBook(ctx context.Context, bookID uint) (*models.Book, error) {
	book, err := s.bookRepo.GetByID(ctx, bookID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("book %d: %w", bookID, domain.ErrBookNotFound)
		}
		return nil, storageFailure(err)
	}
	return book, nil
}
