package domain

import "errors"

// Common domain errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrDuplicateEntry = errors.New("duplicate entry")
)

// Loan lifecycle errors
var (
	ErrBookNotFound       = errors.New("book not found")
	ErrLoanNotFound       = errors.New("loan not found")
	ErrInvalidTransition  = errors.New("invalid loan status transition")
	ErrNoCopiesAvailable  = errors.New("no copies available")
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInventoryCorrupt means a counter update would push AvailableCopies
	// outside [0, TotalCopies]. Given the lifecycle invariant this is
	// unreachable; seeing it indicates a prior bug, not a retryable condition.
	ErrInventoryCorrupt = errors.New("book copy counters inconsistent")
)

// Inventory administration errors
var (
	ErrCategoryNotFound   = errors.New("category not found")
	ErrCopiesBelowLoaned  = errors.New("total copies cannot be lower than loaned-out copies")
	ErrInvalidCopyCount   = errors.New("total copies must be positive")
	ErrBookHasActiveLoans = errors.New("book has active loans")
)

// User errors
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)
