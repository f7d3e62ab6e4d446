package models

import (
	"time"

	"gorm.io/gorm"

	"librahub/internal/core/domain"
)

// ============================================================
// Auth & User Tables
// ============================================================

// User represents users table
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email     string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password  string         `gorm:"size:255;not null" json:"-"`
	Role      string         `gorm:"size:20;default:'USER'" json:"role"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// Identity builds the domain identity carried into service calls.
func (u *User) Identity() domain.Identity {
	return domain.Identity{UserID: u.ID, Role: domain.Role(u.Role)}
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// ============================================================
// Catalog Tables
// ============================================================

// Category represents book_categories table
type Category struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Category) TableName() string {
	return "book_categories"
}

// Book represents books table. AvailableCopies is the cached count of copies
// not currently reserved by an APPROVED or OVERDUE loan; it is only ever
// mutated through the conditional updates in LoanRepository.
type Book struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Title           string         `gorm:"size:255;not null;index" json:"title"`
	Author          string         `gorm:"size:255;not null" json:"author"`
	ISBN            string         `gorm:"size:20" json:"isbn,omitempty"`
	Publisher       string         `gorm:"size:255" json:"publisher,omitempty"`
	PublicationYear int            `json:"publication_year,omitempty"`
	Description     string         `gorm:"type:text" json:"description,omitempty"`
	CoverImageURL   string         `gorm:"size:500" json:"cover_image_url,omitempty"`
	CategoryID      uint           `gorm:"not null;index" json:"category_id"`
	TotalCopies     int            `gorm:"not null" json:"total_copies"`
	AvailableCopies int            `gorm:"not null" json:"available_copies"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

func (Book) TableName() string {
	return "books"
}

// BookResponse DTO
type BookResponse struct {
	ID              uint      `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	ISBN            string    `json:"isbn,omitempty"`
	Publisher       string    `json:"publisher,omitempty"`
	PublicationYear int       `json:"publication_year,omitempty"`
	Description     string    `json:"description,omitempty"`
	CoverImageURL   string    `json:"cover_image_url,omitempty"`
	CategoryID      uint      `json:"category_id"`
	CategoryName    string    `json:"category_name,omitempty"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	CreatedAt       time.Time `json:"created_at"`
}

func (b *Book) ToResponse() *BookResponse {
	resp := &BookResponse{
		ID:              b.ID,
		Title:           b.Title,
		Author:          b.Author,
		ISBN:            b.ISBN,
		Publisher:       b.Publisher,
		PublicationYear: b.PublicationYear,
		Description:     b.Description,
		CoverImageURL:   b.CoverImageURL,
		CategoryID:      b.CategoryID,
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
		CreatedAt:       b.CreatedAt,
	}

	if b.Category != nil {
		resp.CategoryName = b.Category.Name
	}

	return resp
}

// ============================================================
// Loan Tables
// ============================================================

// Loan represents book_loans table. Loans are never physically deleted;
// the row is the audit history of the request.
type Loan struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	BookID     uint       `gorm:"not null;index" json:"book_id"`
	UserID     uint       `gorm:"not null;index" json:"user_id"`
	BorrowDate time.Time  `gorm:"not null" json:"borrow_date"`
	DueDate    time.Time  `gorm:"not null;index" json:"due_date"`
	ReturnDate *time.Time `json:"return_date"`
	Status     string     `gorm:"size:20;not null;index" json:"status"`
	Notes      string     `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Book *Book `gorm:"foreignKey:BookID" json:"book,omitempty"`
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Loan) TableName() string {
	return "book_loans"
}

// LoanResponse DTO. Status carries the effective status at response time.
type LoanResponse struct {
	ID         uint       `json:"id"`
	BookID     uint       `json:"book_id"`
	BookTitle  string     `json:"book_title,omitempty"`
	UserID     uint       `json:"user_id"`
	Username   string     `json:"username,omitempty"`
	BorrowDate time.Time  `json:"borrow_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	Status     string     `json:"status"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ToResponse builds the DTO, reporting the effective status at the given instant.
func (l *Loan) ToResponse(now time.Time) *LoanResponse {
	resp := &LoanResponse{
		ID:         l.ID,
		BookID:     l.BookID,
		UserID:     l.UserID,
		BorrowDate: l.BorrowDate,
		DueDate:    l.DueDate,
		ReturnDate: l.ReturnDate,
		Status:     string(l.EffectiveStatus(now)),
		Notes:      l.Notes,
		CreatedAt:  l.CreatedAt,
	}

	if l.Book != nil {
		resp.BookTitle = l.Book.Title
	}
	if l.User != nil {
		resp.Username = l.User.Username
	}

	return resp
}

// EffectiveStatus mirrors domain.Loan.EffectiveStatus for the stored row.
func (l *Loan) EffectiveStatus(now time.Time) domain.LoanStatus {
	status := domain.LoanStatus(l.Status)
	if status == domain.StatusApproved && now.After(l.DueDate) {
		return domain.StatusOverdue
	}
	return status
}

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&RefreshToken{},
		&Category{},
		&Book{},
		&Loan{},
	)
}
