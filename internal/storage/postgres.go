package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"engdash/internal/core"
)

// PostgresConfig configures the Postgres connection pool.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
	DialTimeout     time.Duration
	// Migrate creates the engineering table when it does not exist.
	Migrate bool
}

// PostgresRepository reads time entries from Postgres through a pgx pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
	db   *sql.DB
}

// NewPostgresRepository connects to Postgres and optionally migrates the schema.
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "engdash"

	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if cfg.Migrate {
		if err := RunPostgresMigrations(db); err != nil {
			db.Close()
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	slog.InfoContext(ctx, "Connected to Postgres", "max_conns", pc.MaxConns)
	return &PostgresRepository{pool: pool, db: db}, nil
}

// FetchAll returns every valid row of the engineering table.
func (r *PostgresRepository) FetchAll(ctx context.Context) ([]core.TimeEntry, error) {
	return fetchEntries(ctx, r.db, "postgres")
}

// Ping checks the pool can reach the server.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) Close() error {
	err := r.db.Close()
	r.pool.Close()
	return err
}
