package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/journey-mapper/internal/domain"
	"github.com/ashureev/journey-mapper/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository as a key-value table in SQLite.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex // serializes writers to avoid SQLITE_BUSY
	logger *slog.Logger
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, logger: logger}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Load reads the four state keys. A value that no longer decodes is logged
// and treated as missing so startup falls back to defaults.
func (s *SQLiteStore) Load(ctx context.Context) (*State, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM kv WHERE key IN (?, ?, ?, ?)`,
		KeyCredential, KeyBusiness, KeyPersonas, KeyJourney)
	if err != nil {
		return nil, fmt.Errorf("query state: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn("failed to close state rows", "error", closeErr)
		}
	}()

	values := make(map[string]string, 4)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan state row: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate state rows: %w", err)
	}

	return decodeState(values, s.logger), nil
}

// Save writes every present value in a single transaction, retrying when the
// database is locked.
func (s *SQLiteStore) Save(ctx context.Context, state *State) error {
	values, err := encodeState(state)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return shared.RetryOnSQLiteConflict(ctx, shared.DefaultRetry, func() error {
		return s.saveOnce(ctx, values)
	})
}

func (s *SQLiteStore) saveOnce(ctx context.Context, values map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
	INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at`

	now := time.Now().Unix()
	for key, value := range values {
		if _, err := tx.ExecContext(ctx, query, key, value, now); err != nil {
			return fmt.Errorf("upsert %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func encodeState(state *State) (map[string]string, error) {
	values := make(map[string]string, 4)
	if state == nil {
		return values, nil
	}
	if state.Credential != nil {
		values[KeyCredential] = *state.Credential
	}
	put := func(key string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		values[key] = string(data)
		return nil
	}
	if state.Business != nil {
		if err := put(KeyBusiness, state.Business); err != nil {
			return nil, err
		}
	}
	if state.Personas != nil {
		if err := put(KeyPersonas, state.Personas); err != nil {
			return nil, err
		}
	}
	if state.Journey != nil {
		if err := put(KeyJourney, state.Journey); err != nil {
			return nil, err
		}
	}
	return values, nil
}

func decodeState(values map[string]string, logger *slog.Logger) *State {
	state := &State{}
	if v, ok := values[KeyCredential]; ok {
		state.Credential = &v
	}
	if v, ok := values[KeyBusiness]; ok {
		var b domain.BusinessProfile
		if err := json.Unmarshal([]byte(v), &b); err != nil {
			logger.Warn("Ignoring unreadable stored value", "key", KeyBusiness, "error", err)
		} else {
			state.Business = &b
		}
	}
	if v, ok := values[KeyPersonas]; ok {
		var p []domain.Persona
		if err := json.Unmarshal([]byte(v), &p); err != nil {
			logger.Warn("Ignoring unreadable stored value", "key", KeyPersonas, "error", err)
		} else {
			state.Personas = &p
		}
	}
	if v, ok := values[KeyJourney]; ok {
		var j domain.JourneyMap
		if err := json.Unmarshal([]byte(v), &j); err != nil {
			logger.Warn("Ignoring unreadable stored value", "key", KeyJourney, "error", err)
		} else {
			state.Journey = &j
		}
	}
	return state
}
