// Package sqldb stores sessions in a SQL database through sqlx.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/domain"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/core/ports"
	"github.com/RedHatInsights/astro-virtual-assistant-v2/internal/storage/dialect"
)

// Store is a SQL implementation of ports.SessionStore.
type Store struct {
	db      *sqlx.DB
	dialect dialect.Dialect
	ttl     time.Duration
	now     func() time.Time
}

var _ ports.SessionStore = (*Store)(nil)

// Config holds database connection configuration
type Config struct {
	Driver string        // Driver name: sqlite
	DSN    string        // Data source name / connection string
	TTL    time.Duration // Sessions untouched for longer than TTL are treated as absent; zero disables
}

type sessionRow struct {
	Key          string    `db:"session_key"`
	UserID       string    `db:"user_id"`
	UserIdentity string    `db:"user_identity"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// New creates a new SQL store with the specified configuration.
func New(cfg Config) (*Store, error) {
	d, err := dialect.FromDriverName(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("unsupported database driver: %w", err)
	}

	db, err := sqlx.Open(d.DriverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, stmt := range d.PragmaStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute pragma: %w", err)
		}
	}

	store := &Store{db: db, dialect: d, ttl: cfg.TTL, now: time.Now}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if _, err := store.PurgeExpired(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// NewSQLite opens (creating if needed) a SQLite database at path.
func NewSQLite(path string, ttl time.Duration) (*Store, error) {
	return New(Config{Driver: "sqlite", DSN: path, TTL: ttl})
}

func (s *Store) initSchema() error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS sessions (
	session_key TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	user_identity TEXT NOT NULL,
	updated_at %s NOT NULL
)`, s.dialect.TimestampType()),
		`CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*domain.Session, error) {
	query := s.dialect.Rebind(`SELECT session_key, user_id, user_identity, updated_at
	          FROM sessions WHERE session_key = ?`)

	var row sessionRow
	err := s.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if s.ttl > 0 && s.now().After(row.UpdatedAt.Add(s.ttl)) {
		return nil, nil
	}

	return &domain.Session{
		Key:          row.Key,
		UserID:       row.UserID,
		UserIdentity: row.UserIdentity,
	}, nil
}

func (s *Store) Put(ctx context.Context, session *domain.Session) error {
	query := s.dialect.Rebind(`INSERT INTO sessions (session_key, user_id, user_identity, updated_at)
	          VALUES (?, ?, ?, ?) ` + s.dialect.UpsertClause("session_key", []string{"user_id", "user_identity", "updated_at"}))

	_, err := s.db.ExecContext(ctx, query, session.Key, session.UserID, session.UserIdentity, s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// PurgeExpired deletes sessions older than the configured TTL and returns
// how many were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}

	query := s.dialect.Rebind(`DELETE FROM sessions WHERE updated_at < ?`)
	res, err := s.db.ExecContext(ctx, query, s.now().Add(-s.ttl).UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) Close() error {
	return s.db.Close()
}
