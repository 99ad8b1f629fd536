package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/courier/internal/common"
	"github.com/dmitrijs2005/courier/internal/dbx"
)

// Collection names used by the client.
const (
	CollectionAttachments = "attachments"
	CollectionSettings    = "settings"
	CollectionContacts    = "contacts"
)

type SQLiteRepository struct {
	db         dbx.DBTX
	collection string
	now        func() time.Time
}

func NewSQLiteRepository(db dbx.DBTX, collection string) *SQLiteRepository {
	return &SQLiteRepository{db: db, collection: collection, now: time.Now}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM objects WHERE collection = ? AND key = ?`, r.collection, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s[%s]: %w", r.collection, key, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s[%s]: %w", r.collection, key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO objects (collection, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(collection, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, r.collection, key, value, r.now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("failed to set %s[%s]: %w", r.collection, key, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM objects WHERE collection = ? AND key = ?`, r.collection, key)
	if err != nil {
		return fmt.Errorf("failed to delete %s[%s]: %w", r.collection, key, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM objects WHERE collection = ?`, r.collection)
	if err != nil {
		return fmt.Errorf("failed to clear %s: %w", r.collection, err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM objects WHERE collection = ?`, r.collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", r.collection, err)
	}
	return n, nil
}

func (r *SQLiteRepository) List(ctx context.Context) (map[string][]byte, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, value FROM objects WHERE collection = ?`, r.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.collection, err)
	}
	defer rows.Close()

	result := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", r.collection, err)
		}
		result[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", r.collection, err)
	}

	return result, nil
}
