// Package store owns the transactions schema and exposes the read/write
// contract over it: idempotent initialization, generic parameterized query and
// update execution, and typed operations keyed by the source_id dedup
// invariant. Everything above it (ingestion adapters, categorizers,
// retrievers) talks to the database exclusively through this package.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/username/fintrack/backend/src/database"
)

// DuplicatePolicy decides what happens when an insert collides with an
// existing non-null source_id.
type DuplicatePolicy int

const (
	// DuplicateReject surfaces the collision as a constraint violation.
	DuplicateReject DuplicatePolicy = iota
	// DuplicateIgnore treats re-ingestion of a known source record as an
	// idempotent no-op: the insert succeeds without touching the stored row.
	DuplicateIgnore
)

// ParseDuplicatePolicy maps a configuration string onto a DuplicatePolicy.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return DuplicateReject, nil
	case "ignore":
		return DuplicateIgnore, nil
	default:
		return DuplicateReject, fmt.Errorf("invalid duplicate policy %q (want \"reject\" or \"ignore\")", s)
	}
}

// Config carries everything the store needs at construction time. It is
// passed explicitly so the store holds no hidden process-wide state.
type Config struct {
	// DatabasePath is the SQLite file backing the store.
	DatabasePath string
	// OnDuplicate selects the source_id collision policy. Zero value rejects.
	OnDuplicate DuplicatePolicy
	// Logger receives statement-level failure context. Defaults to
	// slog.Default when nil.
	Logger *slog.Logger
}

// Store is the transaction persistence layer. It owns a single *sql.DB
// limited to one open connection; conflicting writers are serialized by
// SQLite itself (WAL + busy_timeout), not by the store.
type Store struct {
	db          *sql.DB
	onDuplicate DuplicatePolicy
	logger      *slog.Logger
}

// New opens the backing database described by cfg. The schema is not touched
// until Initialize is called.
func New(cfg Config) (*Store, error) {
	db, err := database.Connect(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Store{
		db:          db,
		onDuplicate: cfg.OnDuplicate,
		logger:      log,
	}, nil
}

// Initialize idempotently ensures the transactions table, its indexes and the
// updated_at touch trigger exist. Safe to invoke on every startup. Failures
// are logged and returned; each migration step is transactional, so a failed
// initialization leaves no partial schema behind.
func (s *Store) Initialize() error {
	if err := s.db.Ping(); err != nil {
		s.logger.Error("Database initialization failed", "error", err)
		return fmt.Errorf("initialize: %w", err)
	}
	if err := database.Migrate(s.db); err != nil {
		s.logger.Error("Database initialization failed", "error", err)
		return fmt.Errorf("initialize: %w", err)
	}
	s.logger.Info("Database initialization complete")
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct access.
// Use with caution - prefer Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}
