package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// DatabaseFile is the SQLite file name inside the data directory.
const DatabaseFile = "blockphrase.db"

// SQLiteKV stores settings in a SQLite database.
type SQLiteKV struct {
	db     *sql.DB
	dbPath string
}

// SQLiteOptions configures SQLiteKV behavior.
type SQLiteOptions struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultSQLiteOptions returns the default database options.
func DefaultSQLiteOptions() SQLiteOptions {
	return SQLiteOptions{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// OpenSQLite opens or creates the settings database in dbDir.
func OpenSQLite(dbDir string, opts SQLiteOptions) (*SQLiteKV, error) {
	dbPath := filepath.Join(dbDir, DatabaseFile)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	kv := &SQLiteKV{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := kv.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return kv, nil
}

// Path returns the database file path.
func (s *SQLiteKV) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *SQLiteKV) Close() error {
	return s.db.Close()
}

func (s *SQLiteKV) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// Get implements KV.
func (s *SQLiteKV) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	query := "SELECT key, value FROM settings WHERE key IN (" + placeholders(len(keys)) + ")"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	return out, nil
}

// Set implements KV. All items are written in one transaction.
func (s *SQLiteKV) Set(ctx context.Context, items map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
	INSERT INTO settings (key, value, updated_at)
	VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = CURRENT_TIMESTAMP
	`
	for key, value := range items {
		if _, err := tx.ExecContext(ctx, query, key, value); err != nil {
			return fmt.Errorf("failed to write setting %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settings: %w", err)
	}
	return nil
}

// Delete implements KV.
func (s *SQLiteKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	query := "DELETE FROM settings WHERE key IN (" + placeholders(len(keys)) + ")"
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete settings: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
