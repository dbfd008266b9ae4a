package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is the subset of *pgxpool.Pool the store uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schema = `CREATE TABLE IF NOT EXISTS portal_sessions (
	sid        TEXT PRIMARY KEY,
	record     JSONB NOT NULL,
	saved_at   TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
)`

// PostgresStore keeps the record in the portal_sessions table.
type PostgresStore struct {
	db  querier
	sid string
	ttl time.Duration
	now func() time.Time
}

func NewPostgresStore(db querier, sid string, ttl time.Duration) *PostgresStore {
	return &PostgresStore{db: db, sid: sid, ttl: ttl, now: time.Now}
}

// EnsureSchema creates the sessions table when it does not exist.
func EnsureSchema(ctx context.Context, db querier) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create portal_sessions: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (*Record, error) {
	var data []byte
	err := s.db.QueryRow(ctx,
		"SELECT record FROM portal_sessions WHERE sid = $1 AND expires_at > $2",
		s.sid, s.now()).Scan(&data)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}
	return decodeRecord(data)
}

func (s *PostgresStore) Save(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	now := s.now()
	_, err = s.db.Exec(ctx,
		`INSERT INTO portal_sessions (sid, record, saved_at, expires_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (sid) DO UPDATE SET record = EXCLUDED.record, saved_at = EXCLUDED.saved_at, expires_at = EXCLUDED.expires_at`,
		s.sid, data, now, now.Add(s.ttl))
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, "DELETE FROM portal_sessions WHERE sid = $1", s.sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PostgresProvider hands out a PostgresStore per session id.
type PostgresProvider struct {
	db  querier
	ttl time.Duration
}

func NewPostgresProvider(db querier, ttl time.Duration) *PostgresProvider {
	return &PostgresProvider{db: db, ttl: ttl}
}

func (p *PostgresProvider) Store(sid string) Store {
	return NewPostgresStore(p.db, sid, p.ttl)
}

// Purge deletes expired rows and reports how many were removed.
func (p *PostgresProvider) Purge(ctx context.Context) (int64, error) {
	tag, err := p.db.Exec(ctx, "DELETE FROM portal_sessions WHERE expires_at <= $1", time.Now())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
