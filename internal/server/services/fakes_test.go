package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/courier/internal/common"
	"github.com/dmitrijs2005/courier/internal/dbx"
	"github.com/dmitrijs2005/courier/internal/server/models"
	"github.com/dmitrijs2005/courier/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/courier/internal/server/repositories/attachments"
	"github.com/dmitrijs2005/courier/internal/server/repositories/envelopes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

// fakeRepoMgr hands out the same in-memory repositories regardless of the
// DBTX, so transactions only show up as Begin/Commit on the mock.
type fakeRepoMgr struct {
	accounts    *fakeAccounts
	attachments *fakeAttachments
	envelopes   *fakeEnvelopes
}

func newFakeRepoMgr() *fakeRepoMgr {
	return &fakeRepoMgr{
		accounts:    &fakeAccounts{byIdentifier: map[string]*models.Account{}},
		attachments: &fakeAttachments{byID: map[uint64]*models.Attachment{}},
		envelopes:   &fakeEnvelopes{},
	}
}

func (m *fakeRepoMgr) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoMgr) Accounts(dbx.DBTX) accounts.Repository       { return m.accounts }
func (m *fakeRepoMgr) Attachments(dbx.DBTX) attachments.Repository { return m.attachments }
func (m *fakeRepoMgr) Envelopes(dbx.DBTX) envelopes.Repository     { return m.envelopes }

type fakeAccounts struct {
	byIdentifier map[string]*models.Account
	err          error
}

func (f *fakeAccounts) Upsert(_ context.Context, a *models.Account) (*models.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	if existing, ok := f.byIdentifier[a.Identifier]; ok {
		existing.Relay = a.Relay
		return existing, nil
	}
	cp := *a
	cp.ID = "acc-" + a.Identifier
	cp.CreatedAt = time.Now()
	f.byIdentifier[a.Identifier] = &cp
	return &cp, nil
}

func (f *fakeAccounts) GetByIdentifier(_ context.Context, identifier string) (*models.Account, error) {
	if a, ok := f.byIdentifier[identifier]; ok {
		return a, nil
	}
	return nil, common.NewNotFoundError("account")
}

func (f *fakeAccounts) IdentifiersByToken(_ context.Context, token string) ([]string, error) {
	var out []string
	for _, a := range f.byIdentifier {
		if a.DiscoveryToken == token {
			out = append(out, a.Identifier)
		}
	}
	if len(out) == 0 {
		return nil, common.NewNotFoundError("identifier")
	}
	return out, nil
}

func (f *fakeAccounts) MatchTokens(_ context.Context, tokens []string) (map[string][]string, error) {
	out := map[string][]string{}
	for _, tok := range tokens {
		for _, a := range f.byIdentifier {
			if a.DiscoveryToken == tok {
				out[tok] = append(out[tok], a.Identifier)
			}
		}
	}
	return out, nil
}

type fakeAttachments struct {
	byID map[uint64]*models.Attachment
	next uint64
	err  error
}

func (f *fakeAttachments) Create(_ context.Context, a *models.Attachment) (*models.Attachment, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.next++
	cp := *a
	cp.RemoteID = f.next
	f.byID[cp.RemoteID] = &cp
	return &cp, nil
}

func (f *fakeAttachments) Get(_ context.Context, remoteID uint64) (*models.Attachment, error) {
	if a, ok := f.byID[remoteID]; ok {
		return a, nil
	}
	return nil, common.NewNotFoundError("attachment")
}

type fakeEnvelopes struct {
	stored    []*models.Envelope
	lastLimit int
	err       error
}

func (f *fakeEnvelopes) Create(_ context.Context, e *models.Envelope) error {
	if f.err != nil {
		return f.err
	}
	e.CreatedAt = time.Now()
	f.stored = append(f.stored, e)
	return nil
}

func (f *fakeEnvelopes) Take(_ context.Context, recipientID string, limit int) ([]*models.Envelope, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	var out, rest []*models.Envelope
	for _, e := range f.stored {
		if e.RecipientID == recipientID && len(out) < limit {
			out = append(out, e)
			continue
		}
		rest = append(rest, e)
	}
	f.stored = rest
	return out, nil
}

type fakePresigner struct {
	putKey, putContentType string
	getKey                 string
	err                    error
}

func (p *fakePresigner) PresignPut(_ context.Context, key, contentType string) (string, map[string]string, error) {
	if p.err != nil {
		return "", nil, p.err
	}
	p.putKey, p.putContentType = key, contentType
	return "http://s3/put/" + key, map[string]string{"Content-Type": contentType}, nil
}

func (p *fakePresigner) PresignGet(_ context.Context, key string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.getKey = key
	return "http://s3/get/" + key, nil
}
