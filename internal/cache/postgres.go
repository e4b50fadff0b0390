package cache

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/gameradar/dealwatch/internal/model"
)

// Pool is the subset of pgxpool.Pool the cache uses, satisfied by pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS posted_deals (
	id        TEXT PRIMARY KEY,
	title     TEXT NOT NULL,
	source    TEXT NOT NULL,
	kind      TEXT NOT NULL,
	posted_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS weekend_promos (
	id         TEXT PRIMARY KEY,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_posted_deals_posted_at ON posted_deals(posted_at);
CREATE INDEX IF NOT EXISTS idx_weekend_promos_expires_at ON weekend_promos(expires_at);
`

// OpenPostgres connects to the database, verifies the connection and runs
// the migration.
func OpenPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "cache: postgres parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "cache: postgres create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "cache: postgres ping")
	}

	s := &PostgresStore{pool: pool}
	if _, err := pool.Exec(ctx, postgresMigration); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "cache: postgres migrate")
	}
	return s, nil
}

// NewPostgresWithPool wraps an existing pool (used by tests with pgxmock).
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) IsPosted(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx, `SELECT 1 FROM posted_deals WHERE id = $1`, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "cache: postgres lookup %s", id)
	}
	return true, nil
}

func (s *PostgresStore) MarkPosted(ctx context.Context, d *model.Deal) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO posted_deals (id, title, source, kind, posted_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		d.ID(), d.Title, string(d.Source), string(d.Kind), time.Now().UTC(),
	)
	return eris.Wrapf(err, "cache: postgres mark %s", d.ID())
}

func (s *PostgresStore) WeekendActive(ctx context.Context, id string, now time.Time) (bool, error) {
	var expires time.Time
	err := s.pool.QueryRow(ctx, `SELECT expires_at FROM weekend_promos WHERE id = $1`, id).Scan(&expires)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "cache: postgres weekend lookup %s", id)
	}
	return now.Before(expires), nil
}

func (s *PostgresStore) MarkWeekend(ctx context.Context, id string, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO weekend_promos (id, expires_at) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET expires_at = excluded.expires_at`,
		id, expiresAt.UTC(),
	)
	return eris.Wrapf(err, "cache: postgres mark weekend %s", id)
}

func (s *PostgresStore) Prune(ctx context.Context, cutoff, now time.Time) (int, error) {
	total := 0
	tag, err := s.pool.Exec(ctx, `DELETE FROM posted_deals WHERE posted_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, eris.Wrap(err, "cache: postgres prune posted")
	}
	total += int(tag.RowsAffected())

	tag, err = s.pool.Exec(ctx, `DELETE FROM weekend_promos WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, eris.Wrap(err, "cache: postgres prune weekends")
	}
	total += int(tag.RowsAffected())
	return total, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Driver: "postgres"}
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM posted_deals`).Scan(&stats.Posted); err != nil {
		return nil, eris.Wrap(err, "cache: postgres count posted")
	}
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM weekend_promos`).Scan(&stats.Weekends); err != nil {
		return nil, eris.Wrap(err, "cache: postgres count weekends")
	}
	return stats, nil
}

func (s *PostgresStore) Save(context.Context) error { return nil }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
