package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// ErrUnsupportedDriver is returned by New for a driver other than sqlite or postgres.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Options describes how to reach the directory database.
type Options struct {
	Driver   Dialect
	Name     string // SQLite file path, or PostgreSQL database name
	User     string
	Password string
	Host     string
	Port     int
	SSLMode  string
}

type db struct {
	conn    *sql.DB
	dialect Dialect
	name    string
	mu      sync.Mutex
}

// DB is the client directory store handle. It owns exactly one connection
// for its whole lifetime.
type DB struct {
	*db
}

// New opens the database described by opts and verifies the connection.
func New(opts Options) (*DB, error) {
	driverName, dsn, err := opts.dsn()
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection, held until Close.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Debug().Str("driver", string(opts.Driver)).Str("name", opts.Name).Msg("Database connection established")

	return &DB{db: &db{
		conn:    conn,
		dialect: opts.Driver,
		name:    opts.Name,
	}}, nil
}

// Close releases the connection.
func (d *DB) Close() error {
	if d == nil || d.db == nil || d.conn == nil {
		return nil
	}
	return d.conn.Close()
}

// Name returns the database name (file path for SQLite).
func (d *DB) Name() string {
	return d.name
}

// Dialect returns the SQL dialect the store speaks.
func (d *DB) Dialect() Dialect {
	return d.dialect
}

// Transaction wraps a function in a database transaction
func (db *db) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("Failed to rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (o Options) dsn() (driverName, dsn string, err error) {
	switch o.Driver {
	case DialectSQLite, "":
		if strings.TrimSpace(o.Name) == "" {
			return "", "", fmt.Errorf("database path is required")
		}
		return "sqlite", o.Name + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", nil
	case DialectPostgres:
		if strings.TrimSpace(o.Name) == "" {
			return "", "", fmt.Errorf("database name is required")
		}
		host := o.Host
		if host == "" {
			host = "localhost"
		}
		port := o.Port
		if port == 0 {
			port = 5432
		}
		u := &url.URL{
			Scheme: "postgres",
			Host:   net.JoinHostPort(host, strconv.Itoa(port)),
			Path:   "/" + o.Name,
		}
		if o.User != "" {
			if o.Password != "" {
				u.User = url.UserPassword(o.User, o.Password)
			} else {
				u.User = url.User(o.User)
			}
		}
		if o.SSLMode != "" {
			u.RawQuery = url.Values{"sslmode": {o.SSLMode}}.Encode()
		}
		return "pgx", u.String(), nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, o.Driver)
	}
}
