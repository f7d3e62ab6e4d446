package services

import (
	"context"

	"librahub/internal/adapters/persistence/models"
	"librahub/internal/core/domain"

	"gorm.io/gorm"
)

// DashboardService aggregates admin statistics with direct queries
type DashboardService struct {
	db *gorm.DB
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// AdminDashboardData represents admin dashboard data
type AdminDashboardData struct {
	// Catalog statistics
	TotalBooks      int64 `json:"total_books"`
	TotalCategories int64 `json:"total_categories"`
	TotalUsers      int64 `json:"total_users"`

	// Loan statistics
	TotalLoans    int64 `json:"total_loans"`
	PendingLoans  int64 `json:"pending_loans"`
	ActiveLoans   int64 `json:"active_loans"`
	OverdueLoans  int64 `json:"overdue_loans"`
	ReturnedLoans int64 `json:"returned_loans"`

	PopularBooks  []PopularBook  `json:"popular_books"`
	LowStockBooks []LowStockBook `json:"low_stock_books"`
}

// PopularBook represents a book ranked by loan count
type PopularBook struct {
	ID        uint   `json:"id"`
	Title     string `json:"title"`
	LoanCount int64  `json:"loan_count"`
}

// LowStockBook represents a book running out of available copies
type LowStockBook struct {
	ID              uint   `json:"id"`
	Title           string `json:"title"`
	AvailableCopies int    `json:"available_copies"`
	TotalCopies     int    `json:"total_copies"`
}

// GetAdminDashboard returns admin dashboard data
func (s *DashboardService) GetAdminDashboard(ctx context.Context) (*AdminDashboardData, error) {
	data := &AdminDashboardData{}

	s.db.WithContext(ctx).Model(&models.Book{}).Count(&data.TotalBooks)
	s.db.WithContext(ctx).Model(&models.Category{}).Count(&data.TotalCategories)
	s.db.WithContext(ctx).Model(&models.User{}).Count(&data.TotalUsers)

	s.db.WithContext(ctx).Model(&models.Loan{}).Count(&data.TotalLoans)
	s.db.WithContext(ctx).Model(&models.Loan{}).
		Where("status = ?", string(domain.StatusPending)).Count(&data.PendingLoans)
	s.db.WithContext(ctx).Model(&models.Loan{}).
		Where("status IN ?", []string{string(domain.StatusApproved), string(domain.StatusOverdue)}).
		Count(&data.ActiveLoans)
	s.db.WithContext(ctx).Model(&models.Loan{}).
		Where("status = ?", string(domain.StatusOverdue)).Count(&data.OverdueLoans)
	s.db.WithContext(ctx).Model(&models.Loan{}).
		Where("status = ?", string(domain.StatusReturned)).Count(&data.ReturnedLoans)

	if err := s.db.WithContext(ctx).Model(&models.Loan{}).
		Select("books.id AS id, books.title AS title, COUNT(book_loans.id) AS loan_count").
		Joins("JOIN books ON books.id = book_loans.book_id").
		Group("books.id, books.title").
		Order("loan_count DESC").
		Limit(5).
		Scan(&data.PopularBooks).Error; err != nil {
		return nil, storageFailure(err)
	}

	if err := s.db.WithContext(ctx).Model(&models.Book{}).
		Select("id, title, available_copies, total_copies").
		Where("available_copies = 0").
		Order("title ASC").
		Limit(5).
		Scan(&data.LowStockBooks).Error; err != nil {
		return nil, storageFailure(err)
	}

	return data, nil
}
