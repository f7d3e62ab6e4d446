package handlers

import (
	"context"
	"time"

	"librahub/internal/adapters/persistence/models"
	"librahub/internal/adapters/persistence/repositories"
	"librahub/internal/core/domain"
	"librahub/internal/core/services"
	"librahub/internal/pkg/pagination"
	"librahub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// LoanHandler handles loan lifecycle endpoints
type LoanHandler struct {
	loans services.LoanLifecycle
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(loans services.LoanLifecycle) *LoanHandler {
	return &LoanHandler{loans: loans}
}

// RequestLoanRequest represents loan request body
type RequestLoanRequest struct {
	BookID uint   `json:"book_id"`
	Notes  string `json:"notes,omitempty"`
}

// Request handles a borrower's loan request
// @Summary Request a loan
// @Description Create a pending loan request for the calling user
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body RequestLoanRequest true "Loan request"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /bookloans [post]
func (h *LoanHandler) Request(c *fiber.Ctx) error {
	identity, ok := identityFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req RequestLoanRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.BookID == 0 {
		return response.BadRequest(c, "book_id is required")
	}

	loan, err := h.loans.Request(c.Context(), identity, &services.RequestLoanInput{
		BookID: req.BookID,
		Notes:  req.Notes,
	})
	if err != nil {
		return domainError(c, err)
	}

	return response.Created(c, "Loan requested successfully", loan.ToResponse(time.Now()))
}

// Approve handles loan approval
// @Summary Approve a loan
// @Description Approve a pending loan and reserve one copy (admin only)
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /bookloans/{id}/approve [patch]
func (h *LoanHandler) Approve(c *fiber.Ctx) error {
	return h.decide(c, h.loans.Approve, "Loan approved successfully")
}

// Reject handles loan rejection
// @Summary Reject a loan
// @Description Reject a pending loan (admin only)
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /bookloans/{id}/reject [patch]
func (h *LoanHandler) Reject(c *fiber.Ctx) error {
	return h.decide(c, h.loans.Reject, "Loan rejected successfully")
}

// Return handles returning a loan
// @Summary Return a loan
// @Description Return an approved or overdue loan and release its copy
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /bookloans/{id}/return [patch]
func (h *LoanHandler) Return(c *fiber.Ctx) error {
	return h.decide(c, h.loans.Return, "Loan returned successfully")
}

func (h *LoanHandler) decide(
	c *fiber.Ctx,
	fn func(ctx context.Context, identity domain.Identity, loanID uint) (*models.Loan, error),
	message string,
) error {
	identity, ok := identityFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	loanID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	loan, err := fn(c.Context(), identity, loanID)
	if err != nil {
		return domainError(c, err)
	}

	return response.Success(c, message, loan.ToResponse(time.Now()))
}

// GetByID handles getting a single loan
// @Summary Get loan by ID
// @Description Get a loan visible to the caller
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /bookloans/{id} [get]
func (h *LoanHandler) GetByID(c *fiber.Ctx) error {
	identity, ok := identityFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	loanID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	loan, err := h.loans.GetByID(c.Context(), identity, loanID)
	if err != nil {
		return domainError(c, err)
	}

	return response.Success(c, "Loan retrieved successfully", loan.ToResponse(time.Now()))
}

// MyLoans handles listing the calling user's loans
// @Summary List my loans
// @Description List the calling user's loans, newest first
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /users/loans [get]
func (h *LoanHandler) MyLoans(c *fiber.Ctx) error {
	identity, ok := identityFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.GetParams(c)
	loans, total, err := h.loans.ListByUser(c.Context(), identity, identity.UserID, params.Offset, params.Limit)
	if err != nil {
		return domainError(c, err)
	}

	return response.Success(c, "Loans retrieved successfully",
		pagination.NewResponse(loanResponses(loans), params, total))
}

// ListByUser handles listing a specific user's loans
// @Summary List a user's loans
// @Description List loans for the given user (admin, or the user themselves)
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /users/{id}/loans [get]
func (h *LoanHandler) ListByUser(c *fiber.Ctx) error {
	identity, ok := identityFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	userID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	params := pagination.GetParams(c)
	loans, total, err := h.loans.ListByUser(c.Context(), identity, userID, params.Offset, params.Limit)
	if err != nil {
		return domainError(c, err)
	}

	return response.Success(c, "Loans retrieved successfully",
		pagination.NewResponse(loanResponses(loans), params, total))
}

// List handles listing all loans (admin only)
// @Summary List loans
// @Description List loans with optional status/user/book filters (admin only)
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param status query string false "Loan status filter"
// @Param user_id query int false "User ID filter"
// @Param book_id query int false "Book ID filter"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /bookloans [get]
func (h *LoanHandler) List(c *fiber.Ctx) error {
	identity, ok := identityFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	filter := repositories.LoanListFilter{
		Status: domain.LoanStatus(c.Query("status")),
		UserID: uint(c.QueryInt("user_id")),
		BookID: uint(c.QueryInt("book_id")),
	}

	params := pagination.GetParams(c)
	loans, total, err := h.loans.List(c.Context(), identity, filter, params.Offset, params.Limit)
	if err != nil {
		return domainError(c, err)
	}

	return response.Success(c, "Loans retrieved successfully",
		pagination.NewResponse(loanResponses(loans), params, total))
}

// ListByBook handles listing all loans of a book (admin only)
// @Summary List loans by book
// @Description List all loans on a book (admin only)
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /books/{id}/loans [get]
func (h *LoanHandler) ListByBook(c *fiber.Ctx) error {
	identity, ok := identityFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	bookID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}

	loans, err := h.loans.ListByBook(c.Context(), identity, bookID)
	if err != nil {
		return domainError(c, err)
	}

	return response.Success(c, "Loans retrieved successfully", loanResponses(loans))
}

func loanResponses(loans []*models.Loan) []*models.LoanResponse {
	now := time.Now()
	out := make([]*models.LoanResponse, 0, len(loans))
	for _, loan := range loans {
		out = append(out, loan.ToResponse(now))
	}
	return out
}
