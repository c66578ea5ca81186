package docstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/dmitrijs2005/glucokeeper/internal/common"
	"github.com/dmitrijs2005/glucokeeper/internal/dbx"
	"github.com/dmitrijs2005/glucokeeper/internal/docstore/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres keeps documents in a single table keyed by path. The parent
// column holds the collection path so List is an index lookup.
type Postgres struct {
	db dbx.DBTX
}

func NewPostgres(db dbx.DBTX) *Postgres {
	return &Postgres{db: db}
}

// OpenPostgres connects with the pgx driver and applies migrations.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, *sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("db open error: %w", err)
	}
	if err := migrations.Run(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migration error: %w", err)
	}
	return NewPostgres(db), db, nil
}

func (p *Postgres) Put(ctx context.Context, path string, body []byte) error {
	parent, _ := Split(path)
	query :=
		`INSERT INTO documents (path, parent, body, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (path) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`

	if _, err := p.db.ExecContext(ctx, query, path, parent, string(body)); err != nil {
		return dbErr(err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, path string) ([]byte, error) {
	var body []byte
	err := p.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE path = $1`, path).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, dbErr(err)
	}
	return body, nil
}

func (p *Postgres) List(ctx context.Context, collection string) (map[string][]byte, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT path, body FROM documents WHERE parent = $1 ORDER BY path`, collection)
	if err != nil {
		return nil, dbErr(err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var path string
		var body []byte
		if err := rows.Scan(&path, &body); err != nil {
			return nil, dbErr(err)
		}
		_, id := Split(path)
		out[id] = body
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}

func (p *Postgres) Delete(ctx context.Context, path string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM documents WHERE path = $1`, path); err != nil {
		return dbErr(err)
	}
	return nil
}

func dbErr(err error) error {
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: db error: %v", common.ErrUnavailable, err)
	}
	return fmt.Errorf("db error: %w", err)
}
