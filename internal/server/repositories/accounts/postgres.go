package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

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

func (r *PostgresRepository) Upsert(ctx context.Context, a *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (identifier, relay, discovery_token)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (identifier) DO UPDATE SET relay = EXCLUDED.relay
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query, a.Identifier, a.Relay, a.DiscoveryToken).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) GetByIdentifier(ctx context.Context, identifier string) (*models.Account, error) {
	query :=
		`SELECT id, identifier, relay, discovery_token, created_at FROM accounts
		 WHERE identifier = $1
		 `

	a := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, identifier).Scan(&a.ID, &a.Identifier, &a.Relay, &a.DiscoveryToken, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewNotFoundError("account")
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) IdentifiersByToken(ctx context.Context, token string) ([]string, error) {
	query :=
		`SELECT identifier FROM accounts
		 WHERE discovery_token = $1
		 ORDER BY identifier
		 `

	rows, err := r.db.QueryContext(ctx, query, token)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, common.NewNotFoundError("identifier")
	}
	return result, nil
}

func (r *PostgresRepository) MatchTokens(ctx context.Context, tokens []string) (map[string][]string, error) {
	result := map[string][]string{}
	if len(tokens) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(tokens))
	args := make([]any, len(tokens))
	for i, t := range tokens {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = t
	}
	query := `SELECT discovery_token, identifier FROM accounts WHERE discovery_token IN (` +
		strings.Join(placeholders, ", ") + `) ORDER BY identifier`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var token, id string
		if err := rows.Scan(&token, &id); err != nil {
			return nil, err
		}
		result[token] = append(result[token], id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
