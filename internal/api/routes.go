// Package api wires the HTTP surface: one dispatch endpoint plus read-only
// views of the audit trail and the tool catalog.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/GeorgeMargineanu/toolgate/internal/api/handlers"
	"github.com/GeorgeMargineanu/toolgate/internal/domain/audit"
	"github.com/GeorgeMargineanu/toolgate/internal/domain/tool"
)

// NewRouter creates and configures a chi router with all routes.
func NewRouter(dispatcher handlers.Dispatcher, store *audit.Store, registry *tool.Registry) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check, used by load balancers and probes.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	invokeHandler := handlers.NewInvokeHandler(dispatcher)
	auditHandler := handlers.NewAuditHandler(store)
	toolsHandler := handlers.NewToolsHandler(registry)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/invoke", invokeHandler.Invoke) // POST /v1/invoke
		r.Route("/audit", func(r chi.Router) {
			r.Get("/", auditHandler.List)    // GET /v1/audit
			r.Get("/{id}", auditHandler.Get) // GET /v1/audit/{id}
		})
		r.Get("/tools", toolsHandler.List) // GET /v1/tools
	})

	return r
}
