package domain

import "time"

// Role represents user role in the system
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Identity is the authenticated caller passed into every engine operation.
// The engine never reads ambient session state; handlers build this from JWT claims.
type Identity struct {
	UserID uint
	Role   Role
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// LoanStatus is the closed set of loan lifecycle states.
type LoanStatus string

const (
	StatusPending  LoanStatus = "PENDING"
	StatusApproved LoanStatus = "APPROVED"
	StatusRejected LoanStatus = "REJECTED"
	StatusReturned LoanStatus = "RETURNED"
	StatusOverdue  LoanStatus = "OVERDUE"
)

// IsTerminal reports whether no further transition is allowed out of s.
func (s LoanStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusReturned
}

// ReservesCopy reports whether a loan in state s holds a physical copy.
// Book.AvailableCopies must equal TotalCopies minus the count of such loans.
func (s LoanStatus) ReservesCopy() bool {
	return s == StatusApproved || s == StatusOverdue
}

// CanTransition reports whether the state machine allows s -> to.
//
//	PENDING  -> APPROVED | REJECTED
//	APPROVED -> RETURNED | OVERDUE
//	OVERDUE  -> RETURNED
//
// REJECTED and RETURNED are terminal.
func (s LoanStatus) CanTransition(to LoanStatus) bool {
	switch s {
	case StatusPending:
		return to == StatusApproved || to == StatusRejected
	case StatusApproved:
		return to == StatusReturned || to == StatusOverdue
	case StatusOverdue:
		return to == StatusReturned
	default:
		return false
	}
}

// User represents a user in the domain layer
type User struct {
	ID        uint
	Username  string
	Email     string
	Password  string // Hashed
	Role      Role
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Category represents a book category
type Category struct {
	ID          uint
	Name        string
	Description string
}

// Book represents a book title with its copy inventory
type Book struct {
	ID              uint
	Title           string
	Author          string
	ISBN            string
	Publisher       string
	PublicationYear int
	Description     string
	CoverImageURL   string
	CategoryID      uint
	TotalCopies     int
	AvailableCopies int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Loan represents one user's request to borrow one copy of one book
type Loan struct {
	ID         uint
	BookID     uint
	UserID     uint
	BorrowDate time.Time
	DueDate    time.Time
	ReturnDate *time.Time
	Status     LoanStatus
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EffectiveStatus returns the externally observed status at the given instant:
// an Approved loan whose due date has passed reads as Overdue even before the
// sweeper has persisted the transition. Stored state is not modified.
func (l *Loan) EffectiveStatus(now time.Time) LoanStatus {
	if l.Status == StatusApproved && now.After(l.DueDate) {
		return StatusOverdue
	}
	return l.Status
}

// RefreshToken represents a refresh token in the domain
type RefreshToken struct {
	ID        uint
	UserID    uint
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
