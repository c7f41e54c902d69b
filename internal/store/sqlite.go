package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/studytrack/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
// Every query is scoped to a single user; a store without a user returns
// model.ErrAuthRequired from every data method.
type SQLiteStore struct {
	db     *sqlx.DB
	userID string
	feed   *changeFeed
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations. The returned
// store has no user scope; call ForUser before reading or writing data.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	inMemory := dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory")
	if !inMemory {
		if err := ensureDir(dbPath); err != nil {
			return nil, err
		}
	}

	db, err := sqlx.Open("sqlite", dsn(dbPath, inMemory))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Each connection to ":memory:" is a separate database.
	if inMemory {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to sqlite db: %w", err)
	}

	s := &SQLiteStore{db: db, feed: newChangeFeed()}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// dsn adds per-connection pragmas so every pooled connection gets them,
// not just the first one. Transactions take the write lock when they begin,
// so a read-then-write inside one cannot interleave with another writer.
func dsn(dbPath string, inMemory bool) string {
	pragmas := "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite&_txlock=immediate"
	if !inMemory {
		pragmas += "&_pragma=journal_mode(WAL)"
	}
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + pragmas
}

func ensureDir(dbPath string) error {
	path := strings.TrimPrefix(dbPath, "file:")
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating database directory %s: %w", dir, err)
	}
	return nil
}

// ForUser returns a view of the store scoped to userID. The returned store
// shares the database handle and change feed with s.
func (s *SQLiteStore) ForUser(userID string) *SQLiteStore {
	return &SQLiteStore{db: s.db, userID: strings.TrimSpace(userID), feed: s.feed}
}

// UserID returns the user the store is scoped to, or "" if none.
func (s *SQLiteStore) UserID() string {
	return s.userID
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// owner returns the scoped user id or model.ErrAuthRequired.
func (s *SQLiteStore) owner() (string, error) {
	if s.userID == "" {
		return "", model.ErrAuthRequired
	}
	return s.userID, nil
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// notFound reports a missing row as model.ErrNotFound when nothing was
// affected.
func notFound(result interface{ RowsAffected() (int64, error) }, kind, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows for %s %s: %w", kind, id, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, model.ErrNotFound)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// utcPtr converts an optional timestamp to UTC for storage.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
