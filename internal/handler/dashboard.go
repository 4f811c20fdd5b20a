package handler

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-library/internal/model"
)

// DashboardHandler serves the admin statistics endpoint.
type DashboardHandler struct {
	DB *sql.DB
}

func NewDashboardHandler(db *sql.DB) *DashboardHandler {
	if db == nil {
		panic("nil db passed to NewDashboardHandler")
	}
	return &DashboardHandler{DB: db}
}

// Stats handles GET /v1/dashboard (admin) and returns catalog and
// lending counters in one response.
func (h *DashboardHandler) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		books, copies, members, transactions          int64
		pending, active, reserved, completed, overdue int64
	)
	count := func(dst *int64, query string, args ...interface{}) error {
		return h.DB.QueryRowContext(ctx, query, args...).Scan(dst)
	}
	steps := []func() error{
		func() error { return count(&books, `SELECT COUNT(*) FROM books`) },
		func() error {
			return count(&copies, `SELECT COALESCE(SUM(book_count_available), 0) FROM books`)
		},
		func() error { return count(&members, `SELECT COUNT(*) FROM users`) },
		func() error { return count(&transactions, `SELECT COUNT(*) FROM book_transactions`) },
		func() error {
			return count(&pending, `SELECT COUNT(*) FROM book_transactions WHERE transaction_status = ?`, model.StatusPending)
		},
		func() error {
			return count(&active, `SELECT COUNT(*) FROM book_transactions WHERE transaction_status = ?`, model.StatusActive)
		},
		func() error {
			return count(&reserved, `SELECT COUNT(*) FROM book_transactions WHERE transaction_status = ?`, model.StatusReserved)
		},
		func() error {
			return count(&completed, `SELECT COUNT(*) FROM book_transactions WHERE transaction_status = ?`, model.StatusCompleted)
		},
		func() error {
			return count(&overdue, `SELECT COUNT(*) FROM book_transactions WHERE transaction_status = ? AND to_date < ?`,
				model.StatusActive, time.Now().UTC())
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"books":           books,
		"copiesAvailable": copies,
		"members":         members,
		"transactions": echo.Map{
			"total":     transactions,
			"pending":   pending,
			"active":    active,
			"reserved":  reserved,
			"completed": completed,
			"overdue":   overdue,
		},
	})
}
