package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/online-library/internal/lending"
)

func TestParseDate(t *testing.T) {
	d, err := parseDate("2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), d)

	d, err = parseDate("2026-03-01T15:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, 15, d.Hour())

	_, err = parseDate("01/03/2026")
	assert.Error(t, err)
}

func TestLendingErrorStatusMapping(t *testing.T) {
	e := echo.New()
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: bad input", lending.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: missing", lending.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: raced", lending.ErrConflict), http.StatusConflict},
		{fmt.Errorf("%w: not yours", lending.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
		require.NoError(t, lendingError(c, tc.err))
		assert.Equal(t, tc.code, rec.Code, tc.err.Error())
	}
}

func TestGetUserIDAcceptsCommonTypes(t *testing.T) {
	e := echo.New()
	for _, v := range []interface{}{uint64(7), int(7), int64(7), float64(7), "7"} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.Set("user_id", v)
		got, err := getUserID(c)
		require.NoError(t, err)
		assert.EqualValues(t, 7, got)
	}

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	_, err := getUserID(c)
	assert.Error(t, err)
}
