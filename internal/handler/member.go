package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-library/internal/config"
	"github.com/iliyamo/online-library/internal/repository"
)

// MemberHandler serves member profile endpoints.  Reading or editing a
// profile is allowed for the member themselves and for admins.
type MemberHandler struct {
	Cfg          config.Config
	Users        *repository.UserRepo
	Transactions *repository.TransactionRepo
}

func NewMemberHandler(cfg config.Config, u *repository.UserRepo, t *repository.TransactionRepo) *MemberHandler {
	if u == nil || t == nil {
		panic("nil repository passed to NewMemberHandler")
	}
	return &MemberHandler{Cfg: cfg, Users: u, Transactions: t}
}

// selfOrAdmin checks that the caller is either the addressed member or
// an admin.
func selfOrAdmin(c echo.Context, id uint64) bool {
	if isAdmin(c) {
		return true
	}
	uid, err := getUserID(c)
	return err == nil && uid == id
}

// GetMember handles GET /v1/members/:id and returns the profile with
// both transaction id lists.
func (h *MemberHandler) GetMember(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if !selfOrAdmin(c, id) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	u, err := h.Users.GetWithTransactions(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, u)
}

// GetMemberTransactions handles GET /v1/members/:id/transactions and
// returns the full transaction records behind the member's two lists,
// in list order.
func (h *MemberHandler) GetMemberTransactions(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if !selfOrAdmin(c, id) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	ctx := c.Request().Context()
	active, prev, err := h.Users.Lists(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	activeTx, err := h.Transactions.ListByIDs(ctx, active)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	prevTx, err := h.Transactions.ListByIDs(ctx, prev)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"active": activeTx, "prev": prevTx})
}

// ListMembers handles GET /v1/members (admin).
func (h *MemberHandler) ListMembers(c echo.Context) error {
	items, err := h.Users.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

type updateMemberReq struct {
	FullName     *string `json:"userFullName"`
	Age          *int    `json:"age"`
	DOB          *string `json:"dob"`
	Gender       *string `json:"gender"`
	Address      *string `json:"address"`
	MobileNumber *string `json:"mobileNumber"`
	Password     *string `json:"password"`
}

// UpdateMember handles PUT /v1/members/:id.  Absent fields are left
// untouched; a supplied password is re-hashed.
func (h *MemberHandler) UpdateMember(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if !selfOrAdmin(c, id) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	var req updateMemberReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Password != nil && len(*req.Password) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 6 characters"})
	}
	ctx := c.Request().Context()
	err = h.Users.Update(ctx, id, repository.UpdateUserParams{
		FullName:     req.FullName,
		Age:          req.Age,
		DOB:          req.DOB,
		Gender:       req.Gender,
		Address:      req.Address,
		MobileNumber: req.MobileNumber,
		Password:     req.Password,
	}, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	updated, err := h.Users.GetWithTransactions(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteMember handles DELETE /v1/members/:id (admin).
func (h *MemberHandler) DeleteMember(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Users.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "member deleted"})
}
