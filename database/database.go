package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Store is the durable state of the bot: key-value records, the idempotency
// sets, the pending-unban queue and the ban history log.
// It is accessed from the single polling loop only.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// InitDB opens (or creates) the state database at dbPath and ensures the schema.
// Re-opening an existing file is safe; schema creation and migration are idempotent.
func InitDB(dbPath string, logger *zap.Logger) (*Store, error) {
	// The state file may live in a not yet created subdirectory.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer, one connection.
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db, logger: logger.Named("store")}

	ctx := context.Background()
	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	if err := s.migratePendingUnbans(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate pending_unbans: %w", err)
	}

	s.logger.Info("Successfully connected to the database", zap.String("path", dbPath))
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) createTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS seen_posts (post_id TEXT PRIMARY KEY)`,
		`CREATE TABLE IF NOT EXISTS seen_threads (thread_id TEXT PRIMARY KEY)`,
		`CREATE TABLE IF NOT EXISTS kv (k TEXT PRIMARY KEY, v TEXT)`,
		`CREATE TABLE IF NOT EXISTS liked_posts (post_id TEXT PRIMARY KEY)`,
		`CREATE TABLE IF NOT EXISTS pending_unbans (
        blacklist_id TEXT PRIMARY KEY,
        due_unix INTEGER NOT NULL
    )`,
		`CREATE TABLE IF NOT EXISTS bans_log (
        blacklist_id TEXT PRIMARY KEY,
        thread_id TEXT,
        ban_cmd_post_id TEXT,
        target_post_id TEXT,
        subject_type TEXT,
        subject_label TEXT,
        started_at_unix INTEGER NOT NULL,
        duration_secs INTEGER,
        due_unix INTEGER,
        unbanned_at_unix INTEGER
    )`,
		`CREATE INDEX IF NOT EXISTS idx_bans_log_started ON bans_log(started_at_unix)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// migratePendingUnbans rebuilds pending_unbans when an older column layout is found,
// keeping rows from the first recognizable id column.
func (s *Store) migratePendingUnbans(ctx context.Context) error {
	cols, err := s.tableColumns(ctx, "pending_unbans")
	if err != nil {
		return err
	}
	if len(cols) == 2 && cols[0] == "blacklist_id" && cols[1] == "due_unix" {
		return nil
	}

	s.logger.Warn("Rebuilding pending_unbans table", zap.Strings("columns", cols))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `ALTER TABLE pending_unbans RENAME TO pending_unbans_old`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `CREATE TABLE pending_unbans (
        blacklist_id TEXT PRIMARY KEY,
        due_unix INTEGER NOT NULL
    )`); err != nil {
		return err
	}

	var oldIDCol string
	for _, candidate := range []string{"blacklist_id", "id", "block_id", "blacklist"} {
		if slices.Contains(cols, candidate) {
			oldIDCol = candidate
			break
		}
	}

	if oldIDCol != "" && slices.Contains(cols, "due_unix") {
		query := fmt.Sprintf(`
    INSERT OR IGNORE INTO pending_unbans (blacklist_id, due_unix)
    SELECT CAST(%s AS TEXT), due_unix FROM pending_unbans_old`, oldIDCol)
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `DROP TABLE pending_unbans_old`); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) tableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}
