package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"lookout-gallery/internal/logging"
	"lookout-gallery/internal/metrics"
)

const (
	// schemaVersion is bumped whenever the record layout changes. A
	// mismatch on open drops and recreates the record space; records are
	// regenerable so no migration is attempted.
	schemaVersion = 2

	// DefaultRetention is how long a cached record stays usable. Get
	// treats anything older as absent.
	DefaultRetention = 30 * 24 * time.Hour

	// defaultTimeout bounds individual store operations.
	defaultTimeout = 5 * time.Second
)

// Record is one cached thumbnail classification result.
type Record struct {
	ID        string
	Payload   []byte // nil when no thumbnail was produced
	IsBroken  bool
	CreatedAt time.Time
}

// Store is a durable, versioned thumbnail cache backed by SQLite.
// It survives process restarts and transparently reopens a severed
// connection; callers only ever see operation-level errors.
type Store struct {
	mu        sync.Mutex
	db        *sql.DB
	dbPath    string
	retention time.Duration

	// now is swappable for expiry tests.
	now func() time.Time
}

// New opens (or creates) the thumbnail store at dbPath. The parent
// directory must already exist and be writable.
func New(ctx context.Context, dbPath string) (*Store, error) {
	s := &Store{
		dbPath:    dbPath,
		retention: DefaultRetention,
		now:       time.Now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.openLocked(ctx); err != nil {
		return nil, err
	}

	logging.Info("Thumbnail store initialized at %s (schema v%d)", dbPath, schemaVersion)
	return s, nil
}

// SetRetention overrides the record lifetime. Non-positive values are
// ignored.
func (s *Store) SetRetention(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.retention = d
	s.mu.Unlock()
}

// openLocked opens the database and brings the schema to the current
// version. Callers must hold s.mu.
func (s *Store) openLocked(ctx context.Context) error {
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", s.dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return fmt.Errorf("failed to open thumbnail store: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close store after ping failure: %v", closeErr)
		}
		return fmt.Errorf("failed to connect to thumbnail store: %w", err)
	}

	// The store is a single-writer cache; a small pool is plenty.
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(time.Hour)

	if err := initSchema(ctx, db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close store after schema failure: %v", closeErr)
		}
		return fmt.Errorf("failed to initialize store schema: %w", err)
	}

	s.db = db
	return nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	CREATE TABLE IF NOT EXISTS thumbnails (
		id TEXT PRIMARY KEY,
		payload BLOB,
		is_broken INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_thumbnails_created_at ON thumbnails(created_at);
	`)
	if err != nil {
		return err
	}

	var versionStr string
	err = db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&versionStr)
	switch {
	case err == sql.ErrNoRows:
		versionStr = ""
	case err != nil:
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	current := fmt.Sprintf("%d", schemaVersion)
	if versionStr != current {
		// Destructive rebuild: cached thumbnails are regenerable, so an
		// old record space is simply dropped.
		if versionStr != "" {
			logging.Info("Thumbnail store schema v%s found, rebuilding for v%d", versionStr, schemaVersion)
		}
		_, err = db.ExecContext(ctx, `
		DROP TABLE IF EXISTS thumbnails;
		CREATE TABLE thumbnails (
			id TEXT PRIMARY KEY,
			payload BLOB,
			is_broken INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_thumbnails_created_at ON thumbnails(created_at);
		INSERT INTO meta (key, value) VALUES ('schema_version', ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value;
		`, current)
		if err != nil {
			return fmt.Errorf("failed to rebuild store schema: %w", err)
		}
	}

	return nil
}

// conn returns a live database handle, transparently reopening the store
// if the underlying connection was severed (for example by another process
// rebuilding the schema).
func (s *Store) conn(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
		err := s.db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return s.db, nil
		}

		logging.Warn("Thumbnail store connection lost, reopening: %v", err)
		metrics.StoreReopens.Inc()
		if closeErr := s.db.Close(); closeErr != nil {
			logging.Debug("failed to close severed store connection: %v", closeErr)
		}
		s.db = nil
	}

	if err := s.openLocked(ctx); err != nil {
		return nil, err
	}
	return s.db, nil
}

// Get returns the cached record for id, or nil when no usable record
// exists. A record older than the retention window is treated as absent
// and deleted in the background; a failed delete just leaves it for the
// next pass.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	db, err := s.conn(ctx)
	if err != nil {
		recordOp("get", err)
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rec Record
	var createdAt int64
	err = db.QueryRowContext(opCtx,
		`SELECT id, payload, is_broken, created_at FROM thumbnails WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.Payload, &rec.IsBroken, &createdAt)
	if err == sql.ErrNoRows {
		recordOp("get", nil)
		metrics.StoreMisses.Inc()
		return nil, nil
	}
	if err != nil {
		recordOp("get", err)
		return nil, fmt.Errorf("failed to read record %s: %w", id, err)
	}

	rec.CreatedAt = time.Unix(createdAt, 0)
	if s.now().Sub(rec.CreatedAt) > s.retention {
		metrics.StoreExpiredRecords.Inc()
		metrics.StoreMisses.Inc()
		go func() {
			if err := s.Delete(context.Background(), id); err != nil {
				logging.Debug("failed to delete expired record %s: %v", id, err)
			}
		}()
		recordOp("get", nil)
		return nil, nil
	}

	recordOp("get", nil)
	metrics.StoreHits.Inc()
	return &rec, nil
}

// Put stores a record for id, overwriting any existing one. A nil payload
// is valid: broken items are cached without a thumbnail. Callers treat a
// returned error as non-fatal; the in-memory result is still usable for
// the current session.
func (s *Store) Put(ctx context.Context, id string, payload []byte, isBroken bool) error {
	db, err := s.conn(ctx)
	if err != nil {
		recordOp("put", err)
		return err
	}

	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = db.ExecContext(opCtx, `
	INSERT INTO thumbnails (id, payload, is_broken, created_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		payload = excluded.payload,
		is_broken = excluded.is_broken,
		created_at = excluded.created_at
	`, id, payload, isBroken, s.now().Unix())
	recordOp("put", err)
	if err != nil {
		return fmt.Errorf("failed to store record %s: %w", id, err)
	}
	return nil
}

// Delete removes the record for id, if any.
func (s *Store) Delete(ctx context.Context, id string) error {
	db, err := s.conn(ctx)
	if err != nil {
		recordOp("delete", err)
		return err
	}

	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = db.ExecContext(opCtx, `DELETE FROM thumbnails WHERE id = ?`, id)
	recordOp("delete", err)
	return err
}

// Clear removes every record from the store.
func (s *Store) Clear(ctx context.Context) error {
	db, err := s.conn(ctx)
	if err != nil {
		recordOp("clear", err)
		return err
	}

	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = db.ExecContext(opCtx, `DELETE FROM thumbnails`)
	recordOp("clear", err)
	return err
}

// PurgeExpired removes all records older than the retention window and
// returns how many were removed. The created_at index keeps the sweep
// cheap.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	db, err := s.conn(ctx)
	if err != nil {
		recordOp("purge_expired", err)
		return 0, err
	}

	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cutoff := s.now().Add(-s.retention).Unix()
	result, err := db.ExecContext(opCtx, `DELETE FROM thumbnails WHERE created_at < ?`, cutoff)
	recordOp("purge_expired", err)
	if err != nil {
		return 0, err
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		logging.Info("Purged %d expired thumbnail records", removed)
	}
	return removed, nil
}

// Stats reports the total record count and how many records are past the
// retention window.
func (s *Store) Stats(ctx context.Context) (total, expired int64, err error) {
	db, err := s.conn(ctx)
	if err != nil {
		recordOp("stats", err)
		return 0, 0, err
	}

	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cutoff := s.now().Add(-s.retention).Unix()
	err = db.QueryRowContext(opCtx,
		`SELECT COUNT(*), COUNT(CASE WHEN created_at < ? THEN 1 END) FROM thumbnails`,
		cutoff,
	).Scan(&total, &expired)
	recordOp("stats", err)
	if err != nil {
		return 0, 0, err
	}
	return total, expired, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func recordOp(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.StoreOperationsTotal.WithLabelValues(operation, status).Inc()
}
