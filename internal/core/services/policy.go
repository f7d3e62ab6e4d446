package services

import (
	"fmt"

	"librahub/internal/adapters/persistence/models"
	"librahub/internal/core/domain"
)

// AccessPolicy decides which identity may trigger which loan transition.
// Every rule failure carries enough context for the caller to render a
// precise message and maps to domain.ErrForbidden.
//
//	request loan:     any authenticated user, for themselves only
//	approve/reject:   admin only
//	return:           admin, or the owning user
//	view/list loans:  admin sees all, users see their own
type AccessPolicy struct{}

// NewAccessPolicy creates the access policy gate
func NewAccessPolicy() AccessPolicy {
	return AccessPolicy{}
}

// CanRequestLoan allows a user to request a loan for themselves only
func (AccessPolicy) CanRequestLoan(identity domain.Identity, forUserID uint) error {
	if identity.UserID == forUserID {
		return nil
	}
	return fmt.Errorf("user %d cannot request a loan for user %d: %w",
		identity.UserID, forUserID, domain.ErrForbidden)
}

// CanDecide allows only admins to approve or reject pending loans
func (AccessPolicy) CanDecide(identity domain.Identity) error {
	if identity.IsAdmin() {
		return nil
	}
	return fmt.Errorf("user %d may not approve or reject loans: %w",
		identity.UserID, domain.ErrForbidden)
}

// CanReturn allows an admin or the owning user to return a loan
func (AccessPolicy) CanReturn(identity domain.Identity, loan *models.Loan) error {
	if identity.IsAdmin() || identity.UserID == loan.UserID {
		return nil
	}
	return fmt.Errorf("user %d may not return loan %d owned by user %d: %w",
		identity.UserID, loan.ID, loan.UserID, domain.ErrForbidden)
}

// CanViewLoan allows an admin or the owning user to read a loan
func (AccessPolicy) CanViewLoan(identity domain.Identity, loan *models.Loan) error {
	if identity.IsAdmin() || identity.UserID == loan.UserID {
		return nil
	}
	return fmt.Errorf("user %d may not view loan %d: %w",
		identity.UserID, loan.ID, domain.ErrForbidden)
}

// CanListUserLoans allows an admin or the user themselves to list a user's loans
func (AccessPolicy) CanListUserLoans(identity domain.Identity, userID uint) error {
	if identity.IsAdmin() || identity.UserID == userID {
		return nil
	}
	return fmt.Errorf("user %d may not list loans of user %d: %w",
		identity.UserID, userID, domain.ErrForbidden)
}

// CanAdminister allows only admins (catalog CRUD, listing all loans, user management)
func (AccessPolicy) CanAdminister(identity domain.Identity) error {
	if identity.IsAdmin() {
		return nil
	}
	return fmt.Errorf("user %d lacks the admin role: %w", identity.UserID, domain.ErrForbidden)
}
