package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel/trace"

	"github.com/duplexagent/core/internal/observability"
)

// PostgresStore implements Store against a Postgres-compatible database.
// One row per session, with context and message history stored as JSONB.
type PostgresStore struct {
	db     *sql.DB
	tracer *observability.Tracer

	stmtGet    *sql.Stmt
	stmtUpsert *sql.Stmt
	stmtDelete *sql.Stmt
}

// SetTracer attaches a tracer for the session table's query spans. A nil
// tracer (the default) leaves Get/Save/Delete untraced.
func (s *PostgresStore) SetTracer(t *observability.Tracer) {
	s.tracer = t
}

// PostgresConfig holds connection settings for PostgresStore.
type PostgresConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// DefaultPostgresConfig returns sane pool defaults.
func DefaultPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
}

// NewPostgresStore opens dsn, verifies connectivity, and prepares statements.
// Schema expected (see migrations):
//
//	CREATE TABLE sessions (
//	    id          TEXT PRIMARY KEY,
//	    context     JSONB NOT NULL DEFAULT '{}',
//	    messages    JSONB NOT NULL DEFAULT '[]',
//	    updated_at  TIMESTAMPTZ NOT NULL
//	);
func NewPostgresStore(dsn string, cfg *PostgresConfig) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	if cfg == nil {
		cfg = DefaultPostgresConfig()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare statements: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) prepareStatements() error {
	var err error

	s.stmtGet, err = s.db.Prepare(`SELECT context, messages FROM sessions WHERE id = $1`)
	if err != nil {
		return fmt.Errorf("prepare get: %w", err)
	}

	s.stmtUpsert, err = s.db.Prepare(`
		INSERT INTO sessions (id, context, messages, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET context = $2, messages = $3, updated_at = $4
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}

	s.stmtDelete, err = s.db.Prepare(`DELETE FROM sessions WHERE id = $1`)
	if err != nil {
		return fmt.Errorf("prepare delete: %w", err)
	}
	return nil
}

// Close releases prepared statements and the underlying connection pool.
func (s *PostgresStore) Close() error {
	var errs []error
	for _, stmt := range []*sql.Stmt{s.stmtGet, s.stmtUpsert, s.stmtDelete} {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing store: %v", errs)
	}
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	if s.tracer != nil {
		var span trace.Span
		ctx, span = s.tracer.TraceDatabaseQuery(ctx, "select", "sessions")
		defer span.End()
	}

	var contextJSON, messagesJSON []byte
	err := s.stmtGet.QueryRowContext(ctx, id).Scan(&contextJSON, &messagesJSON)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	rec := &Record{}
	if err := json.Unmarshal(contextJSON, &rec.Context); err != nil {
		return nil, fmt.Errorf("unmarshal context: %w", err)
	}
	if err := json.Unmarshal(messagesJSON, &rec.Messages); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}
	return rec, nil
}

// Save implements Store.
func (s *PostgresStore) Save(ctx context.Context, id string, record *Record) error {
	if s.tracer != nil {
		var span trace.Span
		ctx, span = s.tracer.TraceDatabaseQuery(ctx, "upsert", "sessions")
		defer span.End()
	}

	contextJSON, err := json.Marshal(record.Context)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}
	messagesJSON, err := json.Marshal(record.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}

	_, err = s.stmtUpsert.ExecContext(ctx, id, contextJSON, messagesJSON, time.Now())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if s.tracer != nil {
		var span trace.Span
		ctx, span = s.tracer.TraceDatabaseQuery(ctx, "delete", "sessions")
		defer span.End()
	}

	_, err := s.stmtDelete.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
