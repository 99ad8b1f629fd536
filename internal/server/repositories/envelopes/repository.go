// Package envelopes is the relay mailbox: sealed payloads queued per
// recipient until fetched.
package envelopes

import (
	"context"

	"github.com/dmitrijs2005/courier/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, e *models.Envelope) error
	// Take removes and returns up to limit of the oldest envelopes for
	// recipientID, oldest first.
	Take(ctx context.Context, recipientID string, limit int) ([]*models.Envelope, error)
}
