package store

import (
	"context"
	"database/sql"
	"fmt"

	"bizonboard/internal/logging"
)

// Schema versions of the SQLite profile table:
// v1: account_id, doc
// v2: onboarding_status and last_saved_at columns mirrored from doc
// v3: index on onboarding_status
const CurrentSchemaVersion = 3

// Migration adds one column to the profile table when it is missing.
type Migration struct {
	Column string
	Def    string
}

// pendingMigrations bring a v1 table up to the current column set.
var pendingMigrations = []Migration{
	{"onboarding_status", "TEXT NOT NULL DEFAULT 'in_progress'"},
	{"last_saved_at", "TEXT NOT NULL DEFAULT ''"},
}

// RunMigrations upgrades table in place and records the version in
// schema_versions. It is safe to call on every open.
func RunMigrations(ctx context.Context, db *sql.DB, table string) error {
	timer := logging.StartTimer(logging.CategoryStore, "RunMigrations")
	defer timer.Stop()

	from := GetSchemaVersion(ctx, db, table)
	if from >= CurrentSchemaVersion {
		logging.StoreDebug("%s already at schema version %d", table, from)
		return nil
	}

	applied := 0
	for _, m := range pendingMigrations {
		if columnExists(ctx, db, table, m.Column) {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, m.Column, m.Def)
		if _, err := db.ExecContext(ctx, query); err != nil {
			return unavailable("migrate "+table+"."+m.Column, err)
		}
		logging.Store("Migration applied: added %s.%s", table, m.Column)
		applied++
	}

	// Rows written before v2 carry their status only inside doc.
	if from < 2 {
		backfill := fmt.Sprintf(`UPDATE %s SET
			onboarding_status = COALESCE(json_extract(doc, '$.onboardingStatus'), onboarding_status),
			last_saved_at = COALESCE(json_extract(doc, '$.lastSavedAt'), last_saved_at)`, table)
		if _, err := db.ExecContext(ctx, backfill); err != nil {
			return unavailable("backfill "+table, err)
		}
	}

	index := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_status ON %s (onboarding_status)", table, table)
	if _, err := db.ExecContext(ctx, index); err != nil {
		return unavailable("index "+table, err)
	}

	if err := SetSchemaVersion(ctx, db, table, CurrentSchemaVersion); err != nil {
		return err
	}
	logging.Store("Schema migrations complete for %s: v%d -> v%d, columns added=%d", table, from, CurrentSchemaVersion, applied)
	return nil
}

// GetSchemaVersion returns the recorded version of table, inferring it from
// the columns when nothing was recorded. A missing table is version 0.
func GetSchemaVersion(ctx context.Context, db *sql.DB, table string) int {
	if tableExists(ctx, db, "schema_versions") {
		var version int
		err := db.QueryRowContext(ctx,
			"SELECT version FROM schema_versions WHERE table_name = ? ORDER BY id DESC LIMIT 1", table).Scan(&version)
		if err == nil {
			return version
		}
	}

	switch {
	case !tableExists(ctx, db, table):
		return 0
	case columnExists(ctx, db, table, "onboarding_status"):
		return 2
	default:
		return 1
	}
}

// SetSchemaVersion records version for table.
func SetSchemaVersion(ctx context.Context, db *sql.DB, table string, version int) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_versions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		table_name TEXT NOT NULL,
		version INTEGER NOT NULL,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return unavailable("create schema_versions", err)
	}
	if _, err := db.ExecContext(ctx,
		"INSERT INTO schema_versions (table_name, version) VALUES (?, ?)", table, version); err != nil {
		return unavailable("record schema version", err)
	}
	return nil
}

// columnExists checks a column with PRAGMA table_info.
func columnExists(ctx context.Context, db *sql.DB, table, column string) bool {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		logging.StoreDebug("PRAGMA table_info(%s) failed: %v", table, err)
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid, notnull, pk int
			name, ctype      string
			dflt             any
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

func tableExists(ctx context.Context, db *sql.DB, table string) bool {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
	if err != nil {
		logging.StoreDebug("table existence check failed for %s: %v", table, err)
		return false
	}
	return count > 0
}
