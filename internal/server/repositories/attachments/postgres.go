package attachments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/courier/internal/common"
	"github.com/dmitrijs2005/courier/internal/dbx"
	"github.com/dmitrijs2005/courier/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Attachment) (*models.Attachment, error) {
	query :=
		`INSERT INTO attachments (owner_id, storage_key, content_type, size)
		 VALUES ($1, $2, $3, $4)
		 RETURNING remote_id, created_at
		 `

	var remoteID int64
	err := r.db.QueryRowContext(ctx, query, a.OwnerID, a.StorageKey, a.ContentType, a.Size).Scan(&remoteID, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	a.RemoteID = uint64(remoteID)
	return a, nil
}

func (r *PostgresRepository) Get(ctx context.Context, remoteID uint64) (*models.Attachment, error) {
	query :=
		`SELECT remote_id, owner_id, storage_key, content_type, size, created_at FROM attachments
		 WHERE remote_id = $1
		 `

	var id int64
	a := &models.Attachment{}
	err := r.db.QueryRowContext(ctx, query, int64(remoteID)).Scan(&id, &a.OwnerID, &a.StorageKey, &a.ContentType, &a.Size, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewNotFoundError("attachment")
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	a.RemoteID = uint64(id)
	return a, nil
}
