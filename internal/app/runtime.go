// Package app assembles the long-lived dependencies shared by every entry
// point: database, workspace, tool registry, model gateway, dispatch engine.
package app

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/GeorgeMargineanu/toolgate/internal/domain/audit"
	"github.com/GeorgeMargineanu/toolgate/internal/domain/dispatch"
	"github.com/GeorgeMargineanu/toolgate/internal/domain/gateway"
	"github.com/GeorgeMargineanu/toolgate/internal/domain/tool"
	"github.com/GeorgeMargineanu/toolgate/internal/domain/users"
	"github.com/GeorgeMargineanu/toolgate/internal/domain/workspace"
	"github.com/GeorgeMargineanu/toolgate/internal/infra/config"
	"github.com/GeorgeMargineanu/toolgate/internal/infra/llm"
	"github.com/GeorgeMargineanu/toolgate/internal/infra/sqlite"
)

// Runtime holds the wired application graph. Close releases the database.
type Runtime struct {
	DB         *sql.DB
	Registry   *tool.Registry
	AuditStore *audit.Store
	Engine     *dispatch.Engine
	Provider   llm.Provider
}

// NewRuntime opens the database, runs migrations, and wires every component
// from configuration. The tool registry is sealed before the engine sees it.
func NewRuntime(cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	db, err := sqlite.NewDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := sqlite.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	root, err := workspace.New(cfg.WorkspaceRoot)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare workspace: %w", err)
	}

	userRegistry := users.NewRegistry(db, users.Mode(cfg.UserMode), logger)

	registry, err := tool.BuildRegistry(
		tool.UpdateFileContract(root),
		tool.CreateUserContract(userRegistry),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("build tool registry: %w", err)
	}

	provider := llm.NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaChatModel)
	gw := gateway.New(provider, registry, cfg.ModelTimeout(), cfg.ModelMaxTokens)
	store := audit.NewStore(db)

	return &Runtime{
		DB:         db,
		Registry:   registry,
		AuditStore: store,
		Engine:     dispatch.NewEngine(gw, registry, store, logger),
		Provider:   provider,
	}, nil
}

// Close releases everything the runtime owns.
func (r *Runtime) Close() error {
	return r.DB.Close()
}
