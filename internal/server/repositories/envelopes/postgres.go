package envelopes

import (
	"context"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/courier/internal/dbx"
	"github.com/dmitrijs2005/courier/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, e *models.Envelope) error {
	query :=
		`INSERT INTO envelopes (id, recipient_id, sender, payload)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at
		 `

	if err := r.db.QueryRowContext(ctx, query, e.ID, e.RecipientID, e.Sender, e.Payload).Scan(&e.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Take(ctx context.Context, recipientID string, limit int) ([]*models.Envelope, error) {
	query :=
		`DELETE FROM envelopes
		 WHERE id IN (
			SELECT id FROM envelopes WHERE recipient_id = $1
			ORDER BY created_at LIMIT $2 FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, recipient_id, sender, payload, created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Envelope
	for rows.Next() {
		var e models.Envelope
		if err := rows.Scan(&e.ID, &e.RecipientID, &e.Sender, &e.Payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// RETURNING order is unspecified.
	slices.SortStableFunc(result, func(a, b *models.Envelope) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return result, nil
}
