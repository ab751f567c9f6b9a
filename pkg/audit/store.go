package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
	_ "modernc.org/sqlite"          // registers "sqlite"

	"mercator-hq/cascade/pkg/compose"
)

// Driver names accepted by Open.
const (
	DriverSQLite  = "sqlite"
	DriverSQLite3 = "sqlite3"
)

// ErrNotFound is returned by Get for an unknown record id.
var ErrNotFound = errors.New("audit record not found")

// Config contains configuration for the audit store.
type Config struct {
	// Driver is DriverSQLite or DriverSQLite3.
	// Default: DriverSQLite
	Driver string

	// Path is the database file. Its directory is created if missing.
	// ":memory:" keeps the trail in memory.
	Path string

	// BusyTimeout is how long a writer waits on a locked database.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() *Config {
	return &Config{
		Driver:      DriverSQLite,
		Path:        "data/audit.db",
		BusyTimeout: 5 * time.Second,
	}
}

// StorageError wraps a failed database operation.
type StorageError struct {
	Operation string
	Cause     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("audit storage %s failed: %v", e.Operation, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// Store persists audit records in SQLite. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	config *Config
	logger *slog.Logger
}

// Open opens (and if needed creates) the audit database.
func Open(config *Config) (*Store, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Driver == "" {
		config.Driver = DriverSQLite
	}
	if config.BusyTimeout == 0 {
		config.BusyTimeout = 5 * time.Second
	}
	switch config.Driver {
	case DriverSQLite, DriverSQLite3:
	default:
		return nil, fmt.Errorf("unsupported audit driver %q (want %s or %s)", config.Driver, DriverSQLite, DriverSQLite3)
	}
	if config.Path == "" {
		return nil, fmt.Errorf("audit database path cannot be empty")
	}

	if config.Path != ":memory:" {
		if dir := filepath.Dir(config.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, &StorageError{Operation: "create_directory", Cause: err}
			}
		}
	}

	logger := slog.Default().With("component", "audit.store")

	db, err := sql.Open(config.Driver, config.Path)
	if err != nil {
		return nil, &StorageError{Operation: "open", Cause: err}
	}
	// One connection keeps pragmas and in-memory databases consistent.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, config: config, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("audit store initialized",
		"driver", config.Driver,
		"path", config.Path,
	)
	return s, nil
}

func (s *Store) initialize() error {
	if s.config.Path != ":memory:" {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return &StorageError{Operation: "enable_wal", Cause: err}
		}
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return &StorageError{Operation: "set_busy_timeout", Cause: err}
	}
	if _, err := s.db.Exec(schema); err != nil {
		return &StorageError{Operation: "create_schema", Cause: err}
	}
	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion); err != nil {
		return &StorageError{Operation: "insert_schema_version", Cause: err}
	}

	var version int
	if err := s.db.QueryRow(getSchemaVersion).Scan(&version); err != nil {
		return &StorageError{Operation: "get_schema_version", Cause: err}
	}
	if version != SchemaVersion {
		return &StorageError{
			Operation: "schema_version_mismatch",
			Cause:     fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version),
		}
	}
	return nil
}

// Record stores rec. Missing ID and CreatedAt are filled in.
func (s *Store) Record(ctx context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	diags, err := json.Marshal(rec.Diagnostics)
	if err != nil {
		return &StorageError{Operation: "marshal_diagnostics", Cause: err}
	}
	layers, err := json.Marshal(rec.Layers)
	if err != nil {
		return &StorageError{Operation: "marshal_layers", Cause: err}
	}

	_, err = s.db.ExecContext(ctx, insertRecord,
		rec.ID, nullString(rec.ReloadID), string(rec.Outcome), int64(rec.Generation), nullString(rec.Fingerprint),
		string(diags), rec.DiagnosticCount(), string(layers), rec.Rules, rec.Duration.Nanoseconds(), rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return &StorageError{Operation: "insert", Cause: err}
	}

	s.logger.Debug("composition recorded",
		"id", rec.ID,
		"outcome", rec.Outcome,
		"generation", rec.Generation,
	)
	return nil
}

// List returns up to limit records, newest first. A limit of zero or less
// returns every record.
func (s *Store) List(ctx context.Context, limit int) ([]*Record, error) {
	query := selectColumns + ` ORDER BY created_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StorageError{Operation: "list", Cause: err}
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Operation: "list", Cause: err}
	}
	return out, nil
}

// Get returns the record with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, countRecords).Scan(&n); err != nil {
		return 0, &StorageError{Operation: "count", Cause: err}
	}
	return n, nil
}

// Prune deletes records created before olderThan and returns how many were
// removed.
func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, pruneRecords, olderThan.UnixNano())
	if err != nil {
		return 0, &StorageError{Operation: "prune", Cause: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &StorageError{Operation: "prune", Cause: err}
	}
	if n > 0 {
		s.logger.Info("pruned audit records", "deleted_count", n, "older_than", olderThan)
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec         Record
		reloadID    sql.NullString
		outcome     string
		generation  int64
		fingerprint sql.NullString
		diags       string
		layers      string
		duration    int64
		createdAt   int64
	)
	err := row.Scan(&rec.ID, &reloadID, &outcome, &generation, &fingerprint,
		&diags, &layers, &rec.Rules, &duration, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, &StorageError{Operation: "scan", Cause: err}
	}

	rec.ReloadID = reloadID.String
	rec.Outcome = compose.Outcome(outcome)
	rec.Generation = uint64(generation)
	rec.Fingerprint = fingerprint.String
	rec.Duration = time.Duration(duration)
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	if err := json.Unmarshal([]byte(diags), &rec.Diagnostics); err != nil {
		return nil, &StorageError{Operation: "unmarshal_diagnostics", Cause: err}
	}
	if err := json.Unmarshal([]byte(layers), &rec.Layers); err != nil {
		return nil, &StorageError{Operation: "unmarshal_layers", Cause: err}
	}
	return &rec, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
