package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-library/internal/model"
	"github.com/iliyamo/online-library/internal/repository"
)

// BookHandler bundles catalog repositories for book endpoints.
type BookHandler struct {
	Books        *repository.BookRepo
	Categories   *repository.CategoryRepo
	Transactions *repository.TransactionRepo
}

func NewBookHandler(b *repository.BookRepo, c *repository.CategoryRepo, t *repository.TransactionRepo) *BookHandler {
	if b == nil || c == nil || t == nil {
		panic("nil repository passed to NewBookHandler")
	}
	return &BookHandler{Books: b, Categories: c, Transactions: t}
}

// ListBooks handles GET /v1/books and returns the whole catalog.
func (h *BookHandler) ListBooks(c echo.Context) error {
	items, err := h.Books.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetBook handles GET /v1/books/:id and returns one book together with
// its lending history.
func (h *BookHandler) GetBook(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()
	book, err := h.Books.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	history, err := h.Transactions.ListByBook(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"book": book, "transactions": history})
}

// ListBooksByCategory handles GET /v1/books/category/:name and returns
// the books attached to one category.
func (h *BookHandler) ListBooksByCategory(c echo.Context) error {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "category name required"})
	}
	ctx := c.Request().Context()
	cat, err := h.Categories.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	member := make(map[uint64]bool, len(cat.BookIDs))
	for _, id := range cat.BookIDs {
		member[id] = true
	}
	all, err := h.Books.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	items := make([]model.Book, 0, len(cat.BookIDs))
	for _, b := range all {
		if member[b.ID] {
			items = append(items, b)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"category": cat.Name, "items": items})
}

type addBookReq struct {
	Name           string   `json:"bookName"`
	AlternateTitle string   `json:"alternateTitle"`
	Author         string   `json:"author"`
	CountAvailable int64    `json:"bookCountAvailable"`
	Language       string   `json:"language"`
	Publisher      string   `json:"publisher"`
	CategoryIDs    []uint64 `json:"categories"`
}

// AddBook handles POST /v1/books (admin) and creates a catalog entry.
func (h *BookHandler) AddBook(c echo.Context) error {
	var req addBookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bookName is required"})
	}
	if req.CountAvailable < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bookCountAvailable cannot be negative"})
	}
	book := &model.Book{
		Name:           req.Name,
		AlternateTitle: strings.TrimSpace(req.AlternateTitle),
		Author:         strings.TrimSpace(req.Author),
		CountAvailable: req.CountAvailable,
		Language:       strings.TrimSpace(req.Language),
		Publisher:      strings.TrimSpace(req.Publisher),
		CategoryIDs:    req.CategoryIDs,
	}
	if book.CategoryIDs == nil {
		book.CategoryIDs = []uint64{}
	}
	if err := h.Books.Create(c.Request().Context(), book); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category does not exist"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create book"})
	}
	return c.JSON(http.StatusCreated, book)
}

type updateBookReq struct {
	Name           *string `json:"bookName"`
	AlternateTitle *string `json:"alternateTitle"`
	Author         *string `json:"author"`
	CountAvailable *int64  `json:"bookCountAvailable"`
	Language       *string `json:"language"`
	Publisher      *string `json:"publisher"`
}

// UpdateBook handles PUT /v1/books/:id (admin).  Absent fields are left
// untouched.
func (h *BookHandler) UpdateBook(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateBookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.CountAvailable != nil && *req.CountAvailable < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bookCountAvailable cannot be negative"})
	}
	ctx := c.Request().Context()
	err = h.Books.Update(ctx, id, repository.UpdateBookParams{
		Name:           req.Name,
		AlternateTitle: req.AlternateTitle,
		Author:         req.Author,
		CountAvailable: req.CountAvailable,
		Language:       req.Language,
		Publisher:      req.Publisher,
	})
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	updated, err := h.Books.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteBook handles DELETE /v1/books/:id (admin).  The book is
// detached from every category before removal.
func (h *BookHandler) DeleteBook(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Books.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "book deleted"})
}
