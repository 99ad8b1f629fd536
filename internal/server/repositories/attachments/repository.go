// Package attachments records uploaded ciphertext blobs. The remote id is
// allocated by the database and never reused.
package attachments

import (
	"context"

	"github.com/dmitrijs2005/courier/internal/server/models"
)

type Repository interface {
	// Create stores a and fills in RemoteID and CreatedAt.
	Create(ctx context.Context, a *models.Attachment) (*models.Attachment, error)
	Get(ctx context.Context, remoteID uint64) (*models.Attachment, error)
}
