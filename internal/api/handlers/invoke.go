package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/GeorgeMargineanu/toolgate/internal/domain/audit"
	"github.com/GeorgeMargineanu/toolgate/internal/domain/dispatch"
)

// Dispatcher runs one instruction through the full pipeline.
type Dispatcher interface {
	Dispatch(ctx context.Context, actor, instruction string) (*dispatch.Result, *dispatch.Error)
}

// InvokeHandler handles HTTP requests that submit instructions for dispatch.
type InvokeHandler struct {
	dispatcher Dispatcher
}

// NewInvokeHandler creates a new InvokeHandler instance.
func NewInvokeHandler(dispatcher Dispatcher) *InvokeHandler {
	return &InvokeHandler{dispatcher: dispatcher}
}

// InvokeRequest is the request body for submitting an instruction.
type InvokeRequest struct {
	Actor       string `json:"actor"`
	Instruction string `json:"instruction"`
}

// InvokeResponse is the success body: the audit record of what ran, plus
// whether it was durably persisted.
type InvokeResponse struct {
	OK             bool          `json:"ok"`
	Audit          *audit.Record `json:"audit"`
	AuditPersisted bool          `json:"audit_persisted"`
}

// Invoke handles POST /v1/invoke.
func (h *InvokeHandler) Invoke(w http.ResponseWriter, r *http.Request) {
	var req InvokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dispatch.KindMalformedInvocation, "request body is not valid JSON")
		return
	}
	req.Actor = strings.TrimSpace(req.Actor)
	req.Instruction = strings.TrimSpace(req.Instruction)
	if req.Actor == "" {
		writeError(w, dispatch.KindMalformedInvocation, "actor is required")
		return
	}
	if req.Instruction == "" {
		writeError(w, dispatch.KindMalformedInvocation, "instruction is required")
		return
	}

	res, derr := h.dispatcher.Dispatch(r.Context(), req.Actor, req.Instruction)
	if derr != nil {
		writeError(w, derr.Kind, derr.Detail)
		return
	}

	writeJSON(w, http.StatusOK, InvokeResponse{
		OK:             true,
		Audit:          res.Audit,
		AuditPersisted: res.AuditPersisted,
	})
}
