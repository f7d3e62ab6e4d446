package handlers

import (
	"errors"
	"strconv"

	"librahub/internal/core/domain"
	"librahub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// identityFromCtx builds the caller's identity from the locals set by the
// auth middleware.
func identityFromCtx(c *fiber.Ctx) (domain.Identity, bool) {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return domain.Identity{}, false
	}
	role, ok := c.Locals("role").(string)
	if !ok {
		return domain.Identity{}, false
	}
	return domain.Identity{UserID: userID, Role: domain.Role(role)}, true
}

// parseIDParam parses a numeric path parameter
func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

// domainError maps an engine error onto the REST binding:
// 404 not found, 403 forbidden, 409 inventory exhausted, 422 state machine
// violation, 503 transient storage failure.
func domainError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrBookNotFound),
		errors.Is(err, domain.ErrLoanNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrCategoryNotFound),
		errors.Is(err, domain.ErrNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return response.Forbidden(c, err.Error())
	case errors.Is(err, domain.ErrNoCopiesAvailable),
		errors.Is(err, domain.ErrBookHasActiveLoans):
		return response.Conflict(c, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		return response.UnprocessableEntity(c, err.Error())
	case errors.Is(err, domain.ErrCopiesBelowLoaned),
		errors.Is(err, domain.ErrInvalidCopyCount),
		errors.Is(err, domain.ErrInvalidInput):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, domain.ErrStorageUnavailable):
		return response.ServiceUnavailable(c, "Storage temporarily unavailable, please retry")
	default:
		return response.InternalServerError(c, "Unexpected error")
	}
}
