package handler // handler defines http handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-library/internal/lending"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// isAdmin reports whether the JWT middleware marked the caller as admin.
func isAdmin(c echo.Context) bool {
	v, _ := c.Get("is_admin").(bool)
	return v
}

// parseID parses a numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
}

// parseDate accepts either a bare calendar date (2006-01-02) or a full
// RFC 3339 timestamp and returns the parsed UTC time.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// lendingError maps the lending engine's sentinel errors onto HTTP
// responses; anything unrecognized is reported as an internal error.
func lendingError(c echo.Context, err error) error {
	msg := err.Error()
	switch {
	case errors.Is(err, lending.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	case errors.Is(err, lending.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": msg})
	case errors.Is(err, lending.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": msg})
	case errors.Is(err, lending.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": msg})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
