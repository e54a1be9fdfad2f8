package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/GeorgeMargineanu/toolgate/internal/domain/tool"
)

// ToolsHandler lists the sealed tool catalog.
type ToolsHandler struct {
	registry *tool.Registry
}

// NewToolsHandler creates a new ToolsHandler instance.
func NewToolsHandler(registry *tool.Registry) *ToolsHandler {
	return &ToolsHandler{registry: registry}
}

// ToolDescriptor is one catalog entry.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema"`
}

// ListToolsResponse is the response body for the tool catalog.
type ListToolsResponse struct {
	Data []ToolDescriptor `json:"data"`
}

// List handles GET /v1/tools. Order matches registration order.
func (h *ToolsHandler) List(w http.ResponseWriter, r *http.Request) {
	contracts := h.registry.Contracts()
	out := make([]ToolDescriptor, 0, len(contracts))
	for _, c := range contracts {
		out = append(out, ToolDescriptor{
			Name:        c.Name,
			Description: c.Description,
			Schema:      c.Schema.JSON(),
		})
	}
	writeJSON(w, http.StatusOK, ListToolsResponse{Data: out})
}
