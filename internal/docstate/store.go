package docstate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"git.home.luguber.info/inful/mdconvert/internal/docstate/migrations"
)

// MemoryPath opens a private in-memory database, mainly for tests.
const MemoryPath = ":memory:"

// Store persists document records in SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for debug output of staleness decisions.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open opens or creates the document state database at path and applies
// pending migrations. Parent directories are created as needed.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:   path,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	dsn := path
	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, storageErr(ErrOpenFailed, err).WithContext("path", path).Build()
			}
		}
		// WAL lets workers read while one writes; busy_timeout waits out short
		// write locks; immediate transactions avoid upgrade deadlocks.
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storageErr(ErrOpenFailed, err).WithContext("path", path).Build()
	}
	if path == MemoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	s.db = db

	if err := s.migrate(context.Background(), migrations.FS); err != nil {
		_ = db.Close()
		return nil, storageErr(ErrMigrationFailed, err).WithContext("path", path).Build()
	}
	return s, nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SchemaVersion returns the highest applied migration version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v); err != nil {
		return 0, storageErr(ErrQueryFailed, err).Build()
	}
	return v, nil
}

// migrate applies every embedded NNN_name.up.sql newer than the recorded
// version, each in its own transaction together with its version row.
func (s *Store) migrate(ctx context.Context, fsys fs.FS) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at INTEGER NOT NULL
		)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if err := s.applyMigration(ctx, version, string(body)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		s.logger.Debug("Applied document state migration", "version", version, "name", name)
	}
	return nil
}

func (s *Store) applyMigration(ctx context.Context, version int, body string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, body); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		version, s.now().UnixNano(),
	); err != nil {
		return err
	}
	return tx.Commit()
}
