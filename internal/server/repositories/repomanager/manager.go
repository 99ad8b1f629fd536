package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/courier/internal/dbx"
	"github.com/dmitrijs2005/courier/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/courier/internal/server/repositories/attachments"
	"github.com/dmitrijs2005/courier/internal/server/repositories/envelopes"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Attachments(db dbx.DBTX) attachments.Repository
	Envelopes(db dbx.DBTX) envelopes.Repository
}
