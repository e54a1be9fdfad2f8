package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/GeorgeMargineanu/toolgate/internal/domain/dispatch"
)

// paginationParams holds parsed limit and offset values.
type paginationParams struct {
	Limit  int
	Offset int
}

const (
	defaultPaginationLimit = 25
	maxPaginationLimit     = 100
)

// errorResponse is the uniform failure body for every endpoint.
type errorResponse struct {
	OK        bool   `json:"ok"`
	ErrorKind string `json:"error_kind"`
	Detail    string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, kind dispatch.Kind, detail string) {
	writeJSON(w, statusForKind(kind), errorResponse{
		OK:        false,
		ErrorKind: string(kind),
		Detail:    detail,
	})
}

// statusForKind maps each failure kind to one fixed HTTP status so clients
// can branch on either.
func statusForKind(kind dispatch.Kind) int {
	switch kind {
	case dispatch.KindBackendUnavailable:
		return http.StatusBadGateway
	case dispatch.KindBackendTimeout:
		return http.StatusGatewayTimeout
	case dispatch.KindModelOutputUnparseable:
		return http.StatusUnprocessableEntity
	case dispatch.KindMalformedInvocation,
		dispatch.KindUnknownTool,
		dispatch.KindSchemaViolation,
		dispatch.KindInvalidUsername,
		dispatch.KindInvalidRoles:
		return http.StatusBadRequest
	case dispatch.KindAlreadyExists, dispatch.KindUserExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// parsePaginationParams extracts and validates limit/offset from URL query
// params, clamping limit to maxPaginationLimit.
func parsePaginationParams(r *http.Request) paginationParams {
	limit := defaultPaginationLimit
	offset := 0

	if lim, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && lim > 0 {
		if lim > maxPaginationLimit {
			lim = maxPaginationLimit
		}
		limit = lim
	}

	if off, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && off >= 0 {
		offset = off
	}

	return paginationParams{Limit: limit, Offset: offset}
}
