package core

import (
	"context"
	"fmt"

	"smartstock/internal/auth"
	"smartstock/internal/config"
	"smartstock/internal/infra/persistence/memory"
	"smartstock/internal/infra/persistence/postgres"
	"smartstock/internal/infra/persistence/sqlite"
	"smartstock/internal/infra/persistence/sqlstore"
	"smartstock/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenPersistentStore opens the backend named by cfg.Storage.Driver (default
// sqlite) and seeds it. The caller owns the returned store and must Close it.
func OpenPersistentStore(ctx context.Context, cfg config.Config) (domain.Store, error) {
	hasher := auth.NewBcrypt(cfg.Security.BcryptCost)
	var (
		store domain.Store
		err   error
	)
	switch StorageDriver(cfg.Storage.Driver) {
	case StorageMemory:
		store = memory.NewStore(memory.WithHasher(hasher))
	case StorageSQLite, "":
		store, err = sqlite.NewStore(ctx, cfg.Storage.SQLitePath, sqlstore.WithHasher(hasher))
	case StoragePostgres:
		store, err = postgres.NewStore(ctx, cfg.Storage.PostgresDSN, sqlstore.WithHasher(hasher))
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, err
	}
	seed := domain.DefaultSeed()
	if cfg.Seed.Demo {
		seed = domain.DemoSeed()
	}
	if err := store.Seed(ctx, seed); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("seed store: %w", err)
	}
	return store, nil
}
