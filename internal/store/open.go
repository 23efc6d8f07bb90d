package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ontomap/internal/store/memory"
	"ontomap/internal/store/neo4jstore"
	"ontomap/internal/store/sqlstore"
	"ontomap/pkg/config"
	ontoerrors "ontomap/pkg/errors"
	"ontomap/pkg/logger"
)

// Open connects to the backend selected by cfg.StoreBackend.
func Open(ctx context.Context, cfg *config.Config) (*Connection, error) {
	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, ontoerrors.NewStorageAccess("open "+cfg.StoreBackend, err)
	}
	logger.Get().Info("Store opened", zap.String("backend", cfg.StoreBackend))
	return NewConnection(backend), nil
}

func openBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return memory.NewStore(), nil
	case config.BackendSQLite:
		return sqlstore.OpenSQLite(ctx, cfg.SQLitePath)
	case config.BackendPostgres:
		return sqlstore.OpenPostgres(ctx, cfg.PostgresDSN)
	case config.BackendNeo4j:
		return neo4jstore.Open(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.StoreBackend)
	}
}
