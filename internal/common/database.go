package common

import (
	"context"
	"errors"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"

	repo "github.com/joseph-ayodele/pallet-scanner/internal/repository"
)

// DatabaseResult holds an opened, migrated record store.
type DatabaseResult struct {
	Driver  *entsql.Driver
	Records repo.PalletRecordRepository
	Cleanup func()
}

// InitDatabase opens the configured store (or an in-memory SQLite one when
// inmem is set), pings it and ensures the record table exists.
func InitDatabase(ctx context.Context, cfg *Config, inmem bool, logger *slog.Logger) (*DatabaseResult, error) {
	var (
		drv  *entsql.Driver
		pool *pgxpool.Pool
		err  error
	)
	switch {
	case inmem:
		logger.Info("using in-memory sqlite database")
		drv, err = repo.OpenSQLite(ctx, ":memory:", logger)
	case cfg.Database.Driver == "sqlite":
		drv, err = repo.OpenSQLite(ctx, cfg.Database.SQLitePath, logger)
	default:
		if verr := cfg.ValidateDatabase(); verr != nil {
			return nil, verr
		}
		drv, pool, err = repo.Open(ctx, repo.Config{
			DSN:              cfg.Database.DSN,
			MaxConns:         cfg.Database.MaxConns,
			MinConns:         cfg.Database.MinConns,
			MaxConnLifetime:  cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
			DialTimeout:      cfg.Database.DialTimeout,
			StatementTimeout: cfg.Database.StatementTimeout,
		}, logger)
	}
	if err != nil {
		return nil, NewAppError("DB_OPEN", "failed to open database", errors.Join(ErrUnavailable, err))
	}
	cleanup := func() { repo.Close(drv, pool, logger) }

	if err := repo.HealthCheck(ctx, drv, cfg.Database.DialTimeout, logger); err != nil {
		cleanup()
		return nil, NewAppError("DB_PING", "database is not reachable", errors.Join(ErrUnavailable, err))
	}

	records, err := repo.NewPalletRecordRepository(drv, cfg.Database.Table, logger)
	if err != nil {
		cleanup()
		return nil, NewAppError("CONFIG_ERROR", "invalid DB_TABLE", errors.Join(ErrInvalidInput, err))
	}
	if err := records.Migrate(ctx); err != nil {
		cleanup()
		return nil, NewAppError("DB_MIGRATE", "failed to prepare record table", errors.Join(ErrDatabase, err))
	}
	return &DatabaseResult{Driver: drv, Records: records, Cleanup: cleanup}, nil
}
