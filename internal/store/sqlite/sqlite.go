// Package sqlite provides a SQLite-backed implementation of the app.Registry
// port for recording issued identifiers.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/haukened/upid"
	"github.com/haukened/upid/internal/app"

	// database/sql SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

var _ app.Registry = (*Registry)(nil)

// Registry implements app.Registry using SQLite (via database/sql). It is safe
// for concurrent use; database/sql manages connection pooling and
// serialization.
//
// Each identifier is stored twice: as its canonical text in id, and as its raw
// 16 bytes in bin. Byte order of bin is time order, so range deletes run
// against bin.
type Registry struct{ db *sql.DB }

// New constructs a Registry, initializing the required schema if absent.
func New(db *sql.DB) (*Registry, error) {
	r := &Registry{db: db}
	if err := r.init(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) init() error {
	const schema = `CREATE TABLE IF NOT EXISTS upids (
id TEXT PRIMARY KEY,
bin BLOB NOT NULL UNIQUE,
uuid TEXT NOT NULL,
prefix TEXT NOT NULL,
created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS upids_prefix_id ON upids (prefix, id);`
	_, err := r.db.Exec(schema)
	return err
}

// Insert stores a new identifier row.
func (r *Registry) Insert(ctx context.Context, rec app.Record) error {
	const q = `INSERT INTO upids (id, bin, uuid, prefix, created_at) VALUES (?,?,?,?,?)`
	_, err := r.db.ExecContext(ctx, q, rec.ID, rec.ID.Bytes(), rec.ID.UUID().String(), rec.ID.Prefix(), rec.IssuedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns the row for id or app.ErrNotFound.
func (r *Registry) Get(ctx context.Context, id upid.UPID) (app.Record, error) {
	const q = `SELECT bin, created_at FROM upids WHERE bin=?`
	var (
		rec     app.Record
		created int64
	)
	if err := r.db.QueryRowContext(ctx, q, id.Bytes()).Scan(&rec.ID, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return app.Record{}, app.ErrNotFound
		}
		return app.Record{}, err
	}
	rec.IssuedAt = time.UnixMilli(created).UTC()
	return rec, nil
}

// List returns up to limit rows for prefix ordered by identifier, which is
// time order within a single prefix.
func (r *Registry) List(ctx context.Context, prefix string, limit int) ([]app.Record, error) {
	const q = `SELECT id, created_at FROM upids WHERE prefix=? ORDER BY id LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, prefix, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	recs := []app.Record{}
	for rows.Next() {
		var (
			rec     app.Record
			created int64
		)
		if err = rows.Scan(&rec.ID, &created); err != nil {
			return nil, err
		}
		rec.IssuedAt = time.UnixMilli(created).UTC()
		recs = append(recs, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// DeleteBefore removes rows whose embedded timestamp is earlier than t. A t
// past the largest representable timestamp removes every row.
func (r *Registry) DeleteBefore(ctx context.Context, t time.Time) (int, error) {
	var (
		res sql.Result
		err error
	)
	if bound, ok := upid.LowerBound(t); ok {
		res, err = r.db.ExecContext(ctx, `DELETE FROM upids WHERE bin < ?`, bound.Bytes())
	} else {
		res, err = r.db.ExecContext(ctx, `DELETE FROM upids`)
	}
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Ping reports whether the underlying database is reachable.
func (r *Registry) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
