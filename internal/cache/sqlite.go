package cache

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/gameradar/dealwatch/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS posted_deals (
	id        TEXT PRIMARY KEY,
	title     TEXT NOT NULL,
	source    TEXT NOT NULL,
	kind      TEXT NOT NULL,
	posted_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS weekend_promos (
	id         TEXT PRIMARY KEY,
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_posted_deals_posted_at ON posted_deals(posted_at);
CREATE INDEX IF NOT EXISTS idx_weekend_promos_expires_at ON weekend_promos(expires_at);
`

// OpenSQLite opens (or creates) the cache database at path and configures
// WAL mode.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		path = "dealwatch-cache.db"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "cache: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "cache: sqlite exec %s", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteMigration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "cache: sqlite migrate")
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) IsPosted(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM posted_deals WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "cache: sqlite lookup %s", id)
	}
	return true, nil
}

func (s *SQLiteStore) MarkPosted(ctx context.Context, d *model.Deal) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO posted_deals (id, title, source, kind, posted_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		d.ID(), d.Title, string(d.Source), string(d.Kind), time.Now().UTC(),
	)
	return eris.Wrapf(err, "cache: sqlite mark %s", d.ID())
}

func (s *SQLiteStore) WeekendActive(ctx context.Context, id string, now time.Time) (bool, error) {
	var expires time.Time
	err := s.db.QueryRowContext(ctx, `SELECT expires_at FROM weekend_promos WHERE id = ?`, id).Scan(&expires)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "cache: sqlite weekend lookup %s", id)
	}
	return now.Before(expires), nil
}

func (s *SQLiteStore) MarkWeekend(ctx context.Context, id string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO weekend_promos (id, expires_at) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET expires_at = excluded.expires_at`,
		id, expiresAt.UTC(),
	)
	return eris.Wrapf(err, "cache: sqlite mark weekend %s", id)
}

func (s *SQLiteStore) Prune(ctx context.Context, cutoff, now time.Time) (int, error) {
	total := 0
	res, err := s.db.ExecContext(ctx, `DELETE FROM posted_deals WHERE posted_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, eris.Wrap(err, "cache: sqlite prune posted")
	}
	if n, err := res.RowsAffected(); err == nil {
		total += int(n)
	}

	res, err = s.db.ExecContext(ctx, `DELETE FROM weekend_promos WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return 0, eris.Wrap(err, "cache: sqlite prune weekends")
	}
	if n, err := res.RowsAffected(); err == nil {
		total += int(n)
	}
	return total, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Driver: "sqlite"}
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM posted_deals`).Scan(&stats.Posted); err != nil {
		return nil, eris.Wrap(err, "cache: sqlite count posted")
	}
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM weekend_promos`).Scan(&stats.Weekends); err != nil {
		return nil, eris.Wrap(err, "cache: sqlite count weekends")
	}
	return stats, nil
}

func (s *SQLiteStore) Save(context.Context) error { return nil }

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
