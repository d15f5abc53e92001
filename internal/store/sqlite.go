package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bizonboard/internal/logging"
	"bizonboard/internal/profile"

	_ "github.com/mattn/go-sqlite3" // cgo driver, "sqlite3"
	_ "modernc.org/sqlite"          // pure Go driver, "sqlite"
)

// SQLite stores one JSON document per account in a single table. The pool is
// capped at one connection so every transaction is the only writer.
type SQLite struct {
	db     *sql.DB
	table  string
	driver string
	path   string
}

// NewSQLite opens (creating if needed) the database at path. driver is
// "sqlite" for modernc.org/sqlite or "sqlite3" for mattn/go-sqlite3.
func NewSQLite(path, driver, table string) (*SQLite, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewSQLite")
	defer timer.Stop()

	if err := checkCollection(table); err != nil {
		return nil, err
	}
	if driver == "" {
		driver = "sqlite"
	}

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			logging.Get(logging.CategoryStore).Error("Failed to create directory %s: %v", dir, err)
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open(driver, sqliteDSN(path, driver))
	if err != nil {
		return nil, unavailable("open sqlite", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLite{db: db, table: table, driver: driver, path: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Store("SQLite profile store ready at %s (driver=%s table=%s)", path, driver, table)
	return s, nil
}

// sqliteDSN builds the DSN for either driver. Both accept _txlock; pragma
// syntax differs.
func sqliteDSN(path, driver string) string {
	if driver == "sqlite3" {
		return path + "?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"
	}
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

// initialize creates the table at the current layout, or migrates an older
// one in place.
func (s *SQLite) initialize() error {
	ctx := context.Background()
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		account_id TEXT PRIMARY KEY,
		doc TEXT NOT NULL,
		onboarding_status TEXT NOT NULL,
		last_saved_at TEXT NOT NULL
	)`, s.table)
	if !tableExists(ctx, s.db, s.table) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return unavailable("create table", err)
		}
	}
	return RunMigrations(ctx, s.db, s.table)
}

func (s *SQLite) Name() string { return "sqlite" }

func (s *SQLite) Get(ctx context.Context, accountID string) (*profile.Profile, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT doc FROM %s WHERE account_id = ?", s.table), accountID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, profile.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get", err)
	}
	return decode([]byte(doc))
}

func (s *SQLite) Create(ctx context.Context, p *profile.Profile) error {
	data, err := encode(p)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (account_id, doc, onboarding_status, last_saved_at)
			VALUES (?, ?, ?, ?) ON CONFLICT(account_id) DO NOTHING`, s.table),
		p.AccountID, string(data), string(p.OnboardingStatus), formatTime(p.LastSavedAt))
	if err != nil {
		return unavailable("create", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("create", err)
	}
	if n == 0 {
		return profile.ErrAlreadyExists
	}
	return nil
}

func (s *SQLite) Put(ctx context.Context, p *profile.Profile) error {
	data, err := encode(p)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.upsertSQL(),
		p.AccountID, string(data), string(p.OnboardingStatus), formatTime(p.LastSavedAt)); err != nil {
		return unavailable("put", err)
	}
	return nil
}

// Update reads and writes inside one immediate transaction.
func (s *SQLite) Update(ctx context.Context, accountID string, fn profile.UpdateFunc) (*profile.Profile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable("begin", err)
	}
	defer tx.Rollback()

	var cur *profile.Profile
	var doc string
	err = tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT doc FROM %s WHERE account_id = ?", s.table), accountID).Scan(&doc)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, unavailable("update read", err)
	default:
		if cur, err = decode([]byte(doc)); err != nil {
			return nil, err
		}
	}

	next, err := fn(cur)
	if err != nil {
		return nil, err
	}
	if next, err = prepare(accountID, next); err != nil {
		return nil, err
	}
	data, err := encode(next)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, s.upsertSQL(),
		accountID, string(data), string(next.OnboardingStatus), formatTime(next.LastSavedAt)); err != nil {
		return nil, unavailable("update write", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, unavailable("commit", err)
	}
	return next, nil
}

func (s *SQLite) upsertSQL() string {
	return fmt.Sprintf(`INSERT INTO %s (account_id, doc, onboarding_status, last_saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			doc = excluded.doc,
			onboarding_status = excluded.onboarding_status,
			last_saved_at = excluded.last_saved_at`, s.table)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
