package components

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cellwarden/cellwarden/internal/config"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver for database/sql
)

// Database wraps a pooled PostgreSQL connection used by the database
// condition kinds and the database_update/restart_orders actions.
// Scenarios never hold a connection across actions; every call borrows
// from the pool.
type Database struct {
	name   string
	dsn    string
	logger *slog.Logger
	db     *sql.DB

	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
}

// Interface guard
var _ Component = (*Database)(nil)

// NewDatabase creates an unconnected database component from raw config.
// Recognized keys: host, port, user, password, database, sslmode, and
// the pool settings max_open_conns, max_idle_conns.
func NewDatabase(name string, cfg config.ComponentConfig, logger *slog.Logger) (*Database, error) {
	host := cfg.String("host")
	if host == "" {
		return nil, fmt.Errorf("%w: database %q has no host", ErrComponentInitialization, name)
	}
	port := cfg.Int("port")
	if port == 0 {
		port = 5432
	}
	sslmode := cfg.String("sslmode")
	if sslmode == "" {
		sslmode = "disable"
	}
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, cfg.String("user"), cfg.String("password"), cfg.String("database"), sslmode,
	)

	maxOpen := cfg.Int("max_open_conns")
	if maxOpen == 0 {
		maxOpen = 10
	}
	maxIdle := cfg.Int("max_idle_conns")
	if maxIdle == 0 {
		maxIdle = 2
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Database{
		name:            name,
		dsn:             dsn,
		logger:          logger.WithGroup("components.Database").With("component", name),
		maxOpenConns:    maxOpen,
		maxIdleConns:    maxIdle,
		connMaxLifetime: 30 * time.Minute,
	}, nil
}

// Name returns the component's configured name.
func (d *Database) Name() string {
	return d.name
}

// Initialize opens the pool without dialing.
func (d *Database) Initialize(_ context.Context) error {
	if d.db != nil {
		return nil
	}
	db, err := sql.Open("pgx", d.dsn)
	if err != nil {
		return fmt.Errorf("%w: open %q: %w", ErrComponentInitialization, d.name, err)
	}
	db.SetMaxOpenConns(d.maxOpenConns)
	db.SetMaxIdleConns(d.maxIdleConns)
	db.SetConnMaxLifetime(d.connMaxLifetime)
	d.db = db
	return nil
}

// Connect verifies the pool can reach the server.
func (d *Database) Connect(ctx context.Context) error {
	if d.db == nil {
		if err := d.Initialize(ctx); err != nil {
			return err
		}
	}
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping %q: %w", ErrComponentInitialization, d.name, err)
	}
	d.logger.Debug("Database connected")
	return nil
}

// HealthCheck pings the database.
func (d *Database) HealthCheck(ctx context.Context) error {
	if d.db == nil {
		return fmt.Errorf("%w: database %q not initialized", ErrComponentInitialization, d.name)
	}
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: health check %q: %w", ErrComponentInitialization, d.name, err)
	}
	return nil
}

// Close releases the pool.
func (d *Database) Close() error {
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

// QueryValue executes a single-row, single-column query and returns the
// value. sql.ErrNoRows passes through so callers can distinguish an
// empty result.
func (d *Database) QueryValue(ctx context.Context, query string, args ...any) (any, error) {
	if d.db == nil {
		return nil, fmt.Errorf("%w: database %q not initialized", ErrComponentInitialization, d.name)
	}
	var value any
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		return nil, err
	}
	return value, nil
}

// QueryRows executes a multi-row query and returns each row as a map
// keyed by column name.
func (d *Database) QueryRows(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	if d.db == nil {
		return nil, fmt.Errorf("%w: database %q not initialized", ErrComponentInitialization, d.name)
	}
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Exec runs a statement inside a transaction and returns the number of
// affected rows.
func (d *Database) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	if d.db == nil {
		return 0, fmt.Errorf("%w: database %q not initialized", ErrComponentInitialization, d.name)
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return affected, nil
}
