package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/courier/internal/common"
	"github.com/dmitrijs2005/courier/internal/cryptox"
	"github.com/dmitrijs2005/courier/internal/dbx"
	"github.com/dmitrijs2005/courier/internal/server/auth"
	"github.com/dmitrijs2005/courier/internal/server/config"
	"github.com/dmitrijs2005/courier/internal/server/models"
	"github.com/dmitrijs2005/courier/internal/server/repositories/repomanager"
)

// maxIntersectTokens caps one BatchIntersect request.
const maxIntersectTokens = 2048

type AccountService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *AccountService {
	return &AccountService{
		db:                          db,
		repomanager:                 m,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

// Register creates the account for identifier, or refreshes its relay, and
// issues an access token. Registering again is how clients renew an
// expired token.
func (s *AccountService) Register(ctx context.Context, identifier, relay string) (*models.Account, string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, "", fmt.Errorf("empty identifier: %w", common.ErrInvalidArgument)
	}

	acc := &models.Account{
		Identifier:     identifier,
		Relay:          relay,
		DiscoveryToken: cryptox.DiscoveryToken(identifier),
	}

	acc, err := dbx.InTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.Account, error) {
		return s.repomanager.Accounts(tx).Upsert(ctx, acc)
	})
	if err != nil {
		return nil, "", fmt.Errorf("error registering account: %w", err)
	}

	token, err := auth.GenerateToken(auth.Principal{AccountID: acc.ID, Identifier: acc.Identifier},
		s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, "", fmt.Errorf("error generating token: %w", err)
	}
	return acc, token, nil
}

// Lookup returns the identifiers registered under a discovery token.
func (s *AccountService) Lookup(ctx context.Context, token string) ([]string, error) {
	if token == "" {
		return nil, fmt.Errorf("empty token: %w", common.ErrInvalidArgument)
	}
	return s.repomanager.Accounts(s.db).IdentifiersByToken(ctx, token)
}

// BatchIntersect returns matches for the registered tokens among tokens.
func (s *AccountService) BatchIntersect(ctx context.Context, tokens []string) (map[string][]string, error) {
	if len(tokens) > maxIntersectTokens {
		return nil, fmt.Errorf("%d tokens exceeds limit %d: %w", len(tokens), maxIntersectTokens, common.ErrInvalidArgument)
	}
	if len(tokens) == 0 {
		return map[string][]string{}, nil
	}
	return s.repomanager.Accounts(s.db).MatchTokens(ctx, tokens)
}
