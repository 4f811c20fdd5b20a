package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-library/internal/lending"
	"github.com/iliyamo/online-library/internal/model"
	"github.com/iliyamo/online-library/internal/queue"
	"github.com/iliyamo/online-library/internal/repository"
	queuepublisher "github.com/iliyamo/online-library/internal/service"
)

// TransactionHandler exposes the lending lifecycle over HTTP.  Every
// state transition goes through the lending engine; only the raw
// Update/Delete correction endpoints write the ledger directly.
type TransactionHandler struct {
	Engine       *lending.Engine
	Transactions *repository.TransactionRepo
	Users        *repository.UserRepo
}

func NewTransactionHandler(e *lending.Engine, t *repository.TransactionRepo, u *repository.UserRepo) *TransactionHandler {
	if e == nil || t == nil || u == nil {
		panic("nil dependency passed to NewTransactionHandler")
	}
	return &TransactionHandler{Engine: e, Transactions: t, Users: u}
}

// ListTransactions handles GET /v1/transactions (admin).
func (h *TransactionHandler) ListTransactions(c echo.Context) error {
	items, err := h.Transactions.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

type addTransactionReq struct {
	BookID       uint64 `json:"bookId"`
	BorrowerID   string `json:"borrowerId"`
	BookName     string `json:"bookName"`
	BorrowerName string `json:"borrowerName"`
	Type         string `json:"transactionType"`
	FromDate     string `json:"fromDate"`
	ToDate       string `json:"toDate"`
}

// AddTransaction handles POST /v1/transactions (admin): an immediate
// issue or reserve created at the front desk.
func (h *TransactionHandler) AddTransaction(c echo.Context) error {
	var req addTransactionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	from, err := parseDate(req.FromDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid fromDate"})
	}
	to, err := parseDate(req.ToDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid toDate"})
	}
	record, err := h.Engine.DirectIssue(c.Request().Context(), lending.DirectIssueParams{
		BookID:       req.BookID,
		BorrowerID:   req.BorrowerID,
		BookName:     req.BookName,
		BorrowerName: req.BorrowerName,
		Type:         model.TransactionType(req.Type),
		FromDate:     from,
		ToDate:       to,
	})
	if err != nil {
		return lendingError(c, err)
	}
	publishLoanIssued(record)
	return c.JSON(http.StatusCreated, record)
}

type requestTransactionReq struct {
	BookID   uint64 `json:"bookId"`
	FromDate string `json:"fromDate"`
	ToDate   string `json:"toDate"`
}

// RequestTransaction handles POST /v1/transactions/request: a member
// files a Pending borrow request for later admin review.
func (h *TransactionHandler) RequestTransaction(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req requestTransactionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	from, err := parseDate(req.FromDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid fromDate"})
	}
	to, err := parseDate(req.ToDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid toDate"})
	}
	record, err := h.Engine.Request(c.Request().Context(), lending.RequestParams{
		BookID:   req.BookID,
		UserID:   uid,
		FromDate: from,
		ToDate:   to,
	})
	if err != nil {
		return lendingError(c, err)
	}
	return c.JSON(http.StatusCreated, record)
}

// ApproveTransaction handles POST /v1/transactions/:id/approve (admin).
func (h *TransactionHandler) ApproveTransaction(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	record, err := h.Engine.Approve(c.Request().Context(), id)
	if err != nil {
		return lendingError(c, err)
	}
	publishLoanIssued(record)
	return c.JSON(http.StatusOK, record)
}

// RejectTransaction handles POST /v1/transactions/:id/reject (admin).
func (h *TransactionHandler) RejectTransaction(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Engine.Reject(c.Request().Context(), id); err != nil {
		return lendingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "request rejected"})
}

// CancelTransaction handles POST /v1/transactions/:id/cancel: a member
// withdraws their own pending request.
func (h *TransactionHandler) CancelTransaction(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Engine.Cancel(c.Request().Context(), id, uid); err != nil {
		return lendingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "request cancelled"})
}

// MarkIssuedTransaction handles POST /v1/transactions/:id/issue
// (admin): a reserved copy is picked up.
func (h *TransactionHandler) MarkIssuedTransaction(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	record, err := h.Engine.MarkIssued(c.Request().Context(), id)
	if err != nil {
		return lendingError(c, err)
	}
	return c.JSON(http.StatusOK, record)
}

// ReturnTransaction handles POST /v1/transactions/:id/return (admin).
// The response carries the computed overdue fine.
func (h *TransactionHandler) ReturnTransaction(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	result, err := h.Engine.Return(c.Request().Context(), id)
	if err != nil {
		return lendingError(c, err)
	}
	publishBookReturned(result)
	return c.JSON(http.StatusOK, echo.Map{
		"transaction": result.Transaction,
		"fine":        result.Fine,
		"returnDate":  result.ReturnDate,
	})
}

type updateTransactionReq struct {
	BookName     *string `json:"bookName"`
	BorrowerName *string `json:"borrowerName"`
	Type         *string `json:"transactionType"`
	Status       *string `json:"transactionStatus"`
	FromDate     *string `json:"fromDate"`
	ToDate       *string `json:"toDate"`
	ReturnDate   *string `json:"returnDate"`
}

// UpdateTransaction handles PUT /v1/transactions/:id (admin).  This is
// a raw correction path that bypasses the lifecycle engine; it makes no
// attempt to keep the book counter or member lists consistent.
func (h *TransactionHandler) UpdateTransaction(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateTransactionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	var p repository.UpdateTransactionParams
	p.BookName = req.BookName
	p.BorrowerName = req.BorrowerName
	if req.Type != nil {
		t := model.TransactionType(*req.Type)
		if !model.ValidType(t) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid transactionType"})
		}
		p.Type = &t
	}
	if req.Status != nil {
		s := model.TransactionStatus(*req.Status)
		switch s {
		case model.StatusPending, model.StatusActive, model.StatusReserved, model.StatusCompleted:
			p.Status = &s
		default:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid transactionStatus"})
		}
	}
	for _, f := range []struct {
		src *string
		dst **time.Time
		tag string
	}{
		{req.FromDate, &p.FromDate, "fromDate"},
		{req.ToDate, &p.ToDate, "toDate"},
		{req.ReturnDate, &p.ReturnDate, "returnDate"},
	} {
		if f.src == nil {
			continue
		}
		t, err := parseDate(*f.src)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + f.tag})
		}
		*f.dst = &t
	}
	ctx := c.Request().Context()
	if err := h.Transactions.Update(ctx, id, p); err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "transaction not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	updated, err := h.Transactions.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteTransaction handles DELETE /v1/transactions/:id (admin).  The
// ledger row and any member-list entries pointing at it go together so
// no dangling reference survives.
func (h *TransactionHandler) DeleteTransaction(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx := c.Request().Context()
	tx, err := h.Users.DB.BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := h.Users.RemoveFromListsTx(ctx, tx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	if err := h.Transactions.DeleteTx(ctx, tx, id); err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "transaction not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	committed = true
	return c.JSON(http.StatusOK, echo.Map{"message": "transaction deleted"})
}

const dateLayout = "2006-01-02"

// publishLoanIssued sends the event in the background; a broker outage
// must never fail the request that triggered it.
func publishLoanIssued(t *model.BookTransaction) {
	ev := queue.LoanIssuedEvent{
		TransactionID: t.ID,
		BookID:        t.BookID,
		BookName:      t.BookName,
		BorrowerID:    t.BorrowerID,
		BorrowerName:  t.BorrowerName,
		Type:          string(t.Type),
		FromDate:      t.FromDate.Format(dateLayout),
		ToDate:        t.ToDate.Format(dateLayout),
		IssuedAt:      time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := queuepublisher.PublishLoanIssued(ctx, ev); err != nil {
			log.Printf("publish loan.issued failed: %v", err)
		}
	}()
}

func publishBookReturned(r *lending.ReturnResult) {
	t := r.Transaction
	ev := queue.BookReturnedEvent{
		TransactionID: t.ID,
		BookID:        t.BookID,
		BookName:      t.BookName,
		BorrowerID:    t.BorrowerID,
		BorrowerName:  t.BorrowerName,
		Fine:          r.Fine,
		ReturnedAt:    r.ReturnDate.Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := queuepublisher.PublishBookReturned(ctx, ev); err != nil {
			log.Printf("publish book.returned failed: %v", err)
		}
	}()
}
