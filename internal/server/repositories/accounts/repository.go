// Package accounts stores registered identifiers and answers discovery
// queries against their hashed tokens.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/courier/internal/server/models"
)

type Repository interface {
	// Upsert registers a.Identifier, or refreshes its relay if already
	// registered, and fills in ID and CreatedAt.
	Upsert(ctx context.Context, a *models.Account) (*models.Account, error)
	GetByIdentifier(ctx context.Context, identifier string) (*models.Account, error)
	IdentifiersByToken(ctx context.Context, token string) ([]string, error)
	// MatchTokens returns registered identifiers keyed by token. Unknown
	// tokens are absent from the result.
	MatchTokens(ctx context.Context, tokens []string) (map[string][]string, error)
}
