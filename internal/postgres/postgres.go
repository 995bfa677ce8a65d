// Package postgres provides access to the archive database: the pgx
// connection pool, schema migrations, and the read/write helpers the
// core layers use.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mr-karan/abode/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store provides access to the archive tables.
type Store struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// Options holds configuration for creating a new Store.
type Options struct {
	Config config.PostgresConfig
	Logger *slog.Logger
}

// New connects to Postgres, runs pending migrations, and returns a
// Store ready for use.
func New(ctx context.Context, opts Options) (*Store, error) {
	log := opts.Logger.With("component", "postgres")

	if err := runMigrations(opts.Config.DSN, log); err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(opts.Config.DSN)
	if err != nil {
		return nil, fmt.Errorf("error parsing postgres dsn: %w", err)
	}
	if opts.Config.MaxConns > 0 {
		poolConfig.MaxConns = int32(opts.Config.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("error creating postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging postgres: %w", err)
	}

	log.Debug("postgres initialized")
	return &Store{pool: pool, log: log}, nil
}

// runMigrations applies the embedded schema migrations using a
// throwaway database/sql connection.
func runMigrations(dsn string, log *slog.Logger) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("error opening migration connection: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		return fmt.Errorf("error creating migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("error loading embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "pgx", driver)
	if err != nil {
		return fmt.Errorf("error creating migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error applying migrations: %w", err)
	}

	log.Debug("migrations applied")
	return nil
}

// Ping checks connectivity for health reporting.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
