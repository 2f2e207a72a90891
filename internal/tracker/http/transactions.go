package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/untoldhq/fintrack/internal/tracker/domain"
	"github.com/untoldhq/fintrack/internal/tracker/service"
	"github.com/untoldhq/fintrack/internal/tracker/store"
	"github.com/untoldhq/fintrack/pkg/httpx"
	"github.com/untoldhq/fintrack/pkg/slogx"
)

type TransactionsHandler struct {
	Transactions *service.TransactionService
}

type transactionRequest struct {
	CategoryID  string `json:"category_id"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

type transactionView struct {
	ID          string    `json:"id"`
	CategoryID  string    `json:"category_id"`
	AmountCents int64     `json:"amount_cents"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"created_at"`
}

func viewTransaction(t domain.Transaction) transactionView {
	return transactionView{
		ID:          t.ID,
		CategoryID:  t.CategoryID,
		AmountCents: t.AmountCents,
		Description: t.Description,
		Type:        t.Type.String(),
		CreatedAt:   t.CreatedAt,
	}
}

func (h *TransactionsHandler) parseBody(w http.ResponseWriter, r *http.Request) (domain.Transaction, bool) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body.")
		return domain.Transaction{}, false
	}
	if req.CategoryID == "" || req.AmountCents <= 0 {
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_request", "category_id and a positive amount_cents are required.")
		return domain.Transaction{}, false
	}
	tType, err := domain.ParseTransactionType(req.Type)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_request", "type must be income or expense.")
		return domain.Transaction{}, false
	}

	return domain.Transaction{
		CategoryID:  req.CategoryID,
		AmountCents: req.AmountCents,
		Description: req.Description,
		Type:        tType,
	}, true
}

func (h *TransactionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	t, ok := h.parseBody(w, r)
	if !ok {
		return
	}
	t.CreatedBy = httpx.ActorID(ctx)

	created, err := h.Transactions.Create(ctx, t)
	if err != nil {
		if errors.Is(err, service.ErrUnknownCategory) {
			httpx.WriteError(w, http.StatusBadRequest, "unknown_category", "No such category.")
			return
		}
		slogx.FromContext(ctx).Error("failed to create transaction", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, viewTransaction(created))
}

func (h *TransactionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := domain.TransactionFilter{CategoryID: q.Get("category_id")}
	if v := q.Get("type"); v != "" {
		tType, err := domain.ParseTransactionType(v)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest,
				"invalid_request", "type must be income or expense.")
			return
		}
		filter.Type = tType
	}

	transactions, err := h.Transactions.List(ctx, filter)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list transactions", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
		return
	}

	views := make([]transactionView, 0, len(transactions))
	for _, t := range transactions {
		views = append(views, viewTransaction(t))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string][]transactionView{"transactions": views})
}

func (h *TransactionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	t, err := h.Transactions.Get(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "No such transaction.")
			return
		}
		slogx.FromContext(ctx).Error("failed to load transaction", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, viewTransaction(t))
}

func (h *TransactionsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	t, ok := h.parseBody(w, r)
	if !ok {
		return
	}
	t.ID = r.PathValue("id")

	if err := h.Transactions.Update(ctx, t); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			httpx.WriteError(w, http.StatusNotFound, "not_found", "No such transaction.")
		case errors.Is(err, service.ErrUnknownCategory):
			httpx.WriteError(w, http.StatusBadRequest, "unknown_category", "No such category.")
		default:
			slogx.FromContext(ctx).Error("failed to update transaction", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
		}
		return
	}
	httpx.WriteJSON(w, http.StatusOK, viewTransaction(t))
}

func (h *TransactionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Transactions.Delete(ctx, r.PathValue("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "No such transaction.")
			return
		}
		slogx.FromContext(ctx).Error("failed to delete transaction", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleBulkDelete handles POST /v1/transactions/bulk-delete, removing a set
// of transactions atomically with a single audit event for the batch.
func (h *TransactionsHandler) HandleBulkDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.IDs) == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "A non-empty ids list is required.")
		return
	}

	deleted, err := h.Transactions.DeleteBatch(ctx, req.IDs)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to bulk delete transactions", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
