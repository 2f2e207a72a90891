package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/untoldhq/fintrack/internal/tracker/domain"
	"github.com/untoldhq/fintrack/internal/tracker/store"
	"github.com/untoldhq/fintrack/pkg/httpx"
	"github.com/untoldhq/fintrack/pkg/slogx"
)

// AuditHandler exposes the durable audit trail to administrators.
type AuditHandler struct {
	Store store.Store
}

type auditListResponse struct {
	Events []domain.AuditEvent `json:"events"`
}

// HandleList handles GET /v1/audit. Supported query parameters: actor,
// action, from, to (RFC 3339), limit, offset.
func (h *AuditHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := domain.AuditFilter{
		ActorID: q.Get("actor"),
		Action:  q.Get("action"),
	}

	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "from must be RFC 3339.")
			return
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "to must be RFC 3339.")
			return
		}
		filter.To = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "limit must be 1-500.")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "offset must be non-negative.")
			return
		}
		filter.Offset = n
	}

	events, err := h.Store.AuditEvents().List(ctx, filter)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list audit events", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
		return
	}
	if events == nil {
		events = []domain.AuditEvent{}
	}

	httpx.WriteJSON(w, http.StatusOK, auditListResponse{Events: events})
}
