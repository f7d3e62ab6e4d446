package handlers

import (
	"librahub/internal/adapters/persistence/models"
	"librahub/internal/adapters/persistence/repositories"
	"librahub/internal/core/services"
	"librahub/internal/pkg/pagination"
	"librahub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// BookHandler handles book catalog endpoints
type BookHandler struct {
	books services.Catalog
}

// NewBookHandler creates a new book handler
func NewBookHandler(books services.Catalog) *BookHandler {
	return &BookHandler{books: books}
}

// List handles listing/searching books
// @Summary List books
// @Description List books with optional search query and category filter
// @Tags Books
// @Produce json
// @Param q query string false "Search in title, author or ISBN"
// @Param category_id query int false "Category filter"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /books [get]
func (h *BookHandler) List(c *fiber.Ctx) error {
	filter := repositories.BookSearchFilter{
		Query:      c.Query("q"),
		CategoryID: uint(c.QueryInt("category_id")),
	}

	params := pagination.GetParams(c)
	books, total, err := h.books.Search(c.Context(), filter, params.Offset, params.Limit)
	if err != nil {
		return domainError(c, err)
	}

	return response.Success(c, "Books retrieved successfully",
		pagination.NewResponse(bookResponses(books), params, total))
}

// GetByID handles getting a single book
// @Summary Get book by ID
// @Description Get a book with its availability counters
// @Tags Books
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /books/{id} [get]
func (h *BookHandler) GetByID(c *fiber.Ctx) error {
	bookID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}

	book, err := h.books.GetByID(c.Context(), bookID)
	if err != nil {
		return domainError(c, err)
	}

	return response.Success(c, "Book retrieved successfully", book.ToResponse())
}

// Create handles book creation
// @Summary Create book
// @Description Create a new book with all copies available (admin only)
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateBookInput true "Book data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /books [post]
func (h *BookHandler) Create(c *fiber.Ctx) error {
	identity, ok := identityFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var input services.CreateBookInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if input.Title == "" {
		return response.BadRequest(c, "Title is required")
	}
	if input.Author == "" {
		return response.BadRequest(c, "Author is required")
	}
	if input.CategoryID == 0 {
		return response.BadRequest(c, "category_id is required")
	}

	book, err := h.books.Create(c.Context(), identity, &input)
	if err != nil {
		return domainError(c, err)
	}

	return response.Created(c, "Book created successfully", book.ToResponse())
}

// Update handles book updates
// @Summary Update book
// @Description Update book metadata and/or total copies (admin only)
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Param body body services.UpdateBookInput true "Fields to update"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /books/{id} [put]
func (h *BookHandler) Update(c *fiber.Ctx) error {
	identity, ok := identityFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	bookID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}

	var input services.UpdateBookInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	book, err := h.books.Update(c.Context(), identity, bookID, &input)
	if err != nil {
		return domainError(c, err)
	}

	return response.Success(c, "Book updated successfully", book.ToResponse())
}

// Delete handles book deletion
// @Summary Delete book
// @Description Delete a book without active loans (admin only)
// @Tags Books
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /books/{id} [delete]
func (h *BookHandler) Delete(c *fiber.Ctx) error {
	identity, ok := identityFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	bookID, err := parseIDParam(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}

	if err := h.books.Delete(c.Context(), identity, bookID); err != nil {
		return domainError(c, err)
	}

	return response.Success(c, "Book deleted successfully", nil)
}

func bookResponses(books []*models.Book) []*models.BookResponse {
	out := make([]*models.BookResponse, 0, len(books))
	for _, book := range books {
		out = append(out, book.ToResponse())
	}
	return out
}
