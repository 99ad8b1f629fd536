package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/courier/internal/common"
	"github.com/dmitrijs2005/courier/internal/dbx"
	"github.com/dmitrijs2005/courier/internal/server/models"
	"github.com/dmitrijs2005/courier/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	defaultFetchLimit = 50
	maxFetchLimit     = 500
)

type MailboxService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewMailboxService(db *sql.DB, m repomanager.RepositoryManager) *MailboxService {
	return &MailboxService{db: db, repomanager: m}
}

// Deliver queues payload for the account registered as recipient.
func (s *MailboxService) Deliver(ctx context.Context, sender, recipient string, payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", fmt.Errorf("empty payload: %w", common.ErrInvalidArgument)
	}

	acc, err := s.repomanager.Accounts(s.db).GetByIdentifier(ctx, recipient)
	if err != nil {
		return "", err
	}

	e := &models.Envelope{
		ID:          uuid.NewString(),
		RecipientID: acc.ID,
		Sender:      sender,
		Payload:     payload,
	}
	if err := s.repomanager.Envelopes(s.db).Create(ctx, e); err != nil {
		return "", fmt.Errorf("error storing envelope: %w", err)
	}
	return e.ID, nil
}

// Fetch removes and returns the oldest waiting envelopes of accountID.
// Out of range limits fall back to the default.
func (s *MailboxService) Fetch(ctx context.Context, accountID string, limit int) ([]*models.Envelope, error) {
	if limit <= 0 || limit > maxFetchLimit {
		limit = defaultFetchLimit
	}

	out, err := dbx.InTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) ([]*models.Envelope, error) {
		return s.repomanager.Envelopes(tx).Take(ctx, accountID, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("error fetching envelopes: %w", err)
	}
	return out, nil
}
