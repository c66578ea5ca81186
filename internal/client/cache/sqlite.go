package cache

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/glucokeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/glucokeeper/internal/dbx"
	"github.com/dmitrijs2005/glucokeeper/internal/logging"
)

// SQLiteKV is a KV over the metadata table that can batch writes in one
// transaction.
type SQLiteKV struct {
	*metadata.SQLiteRepository
	db *sql.DB
}

func NewSQLiteKV(db *sql.DB) *SQLiteKV {
	return &SQLiteKV{SQLiteRepository: metadata.NewSQLiteRepository(db), db: db}
}

// Batch runs fn against a KV bound to a single transaction.
func (s *SQLiteKV) Batch(ctx context.Context, fn func(ctx context.Context, kv KV) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, metadata.NewSQLiteRepository(tx))
	})
}

// NewSQLite returns a Cache kept in the metadata table of a migrated SQLite
// database.
func NewSQLite(db *sql.DB, log logging.Logger) *Cache {
	return New(NewSQLiteKV(db), log)
}
