package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GeorgeMargineanu/toolgate/internal/domain/audit"
	"github.com/GeorgeMargineanu/toolgate/internal/domain/dispatch"
)

// AuditHandler serves read-only access to the audit trail.
type AuditHandler struct {
	store *audit.Store
}

// NewAuditHandler creates a new AuditHandler instance.
func NewAuditHandler(store *audit.Store) *AuditHandler {
	return &AuditHandler{store: store}
}

// ListAuditResponse is the response body for listing audit records.
type ListAuditResponse struct {
	Data []*audit.Record `json:"data"`
	Meta Meta            `json:"meta"`
}

// Meta contains pagination metadata.
type Meta struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// List handles GET /v1/audit. Records come back in insertion order.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	p := parsePaginationParams(r)

	records, total, err := h.store.List(r.Context(), p.Limit, p.Offset)
	if err != nil {
		writeError(w, dispatch.KindAuditSinkFailure, "audit store unavailable")
		return
	}
	if records == nil {
		records = []*audit.Record{}
	}

	writeJSON(w, http.StatusOK, ListAuditResponse{
		Data: records,
		Meta: Meta{Total: total, Limit: p.Limit, Offset: p.Offset},
	})
}

// Get handles GET /v1/audit/{id}.
func (h *AuditHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, audit.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{
				OK:        false,
				ErrorKind: "not_found",
				Detail:    "no audit record with id " + id,
			})
			return
		}
		writeError(w, dispatch.KindAuditSinkFailure, "audit store unavailable")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}
