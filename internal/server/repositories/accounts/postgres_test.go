package accounts

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/courier/internal/common"
	"github.com/dmitrijs2005/courier/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewPostgresRepository(db), mock
}

func TestUpsert_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	q := `(?s)^INSERT\s+INTO\s+accounts\s*\(identifier,\s*relay,\s*discovery_token\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*ON\s+CONFLICT\s*\(identifier\)\s*DO\s+UPDATE\s+SET\s+relay\s*=\s*EXCLUDED\.relay\s*RETURNING\s+id,\s*created_at\s*$`
	mock.ExpectQuery(q).
		WithArgs("+15550001", "", "tok").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("acc-1", now))

	got, err := repo.Upsert(context.Background(), &models.Account{Identifier: "+15550001", DiscoveryToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, "acc-1", got.ID)
	assert.Equal(t, now, got.CreatedAt)
}

func TestUpsert_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO accounts`).WillReturnError(errors.New("db down"))

	_, err := repo.Upsert(context.Background(), &models.Account{Identifier: "+1"})
	require.ErrorContains(t, err, "db error: db down")
}

func TestGetByIdentifier(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	q := `(?s)^SELECT\s+id,\s*identifier,\s*relay,\s*discovery_token,\s*created_at\s+FROM\s+accounts\s+WHERE\s+identifier\s*=\s*\$1\s*$`
	mock.ExpectQuery(q).WithArgs("+1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "identifier", "relay", "discovery_token", "created_at"}).
			AddRow("acc-1", "+1", "r", "tok", now))
	mock.ExpectQuery(q).WithArgs("+2").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(q).WithArgs("+3").WillReturnError(errors.New("boom"))

	got, err := repo.GetByIdentifier(context.Background(), "+1")
	require.NoError(t, err)
	assert.Equal(t, &models.Account{ID: "acc-1", Identifier: "+1", Relay: "r", DiscoveryToken: "tok", CreatedAt: now}, got)

	_, err = repo.GetByIdentifier(context.Background(), "+2")
	var nf *common.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, common.NotFoundCode, nf.Code)

	_, err = repo.GetByIdentifier(context.Background(), "+3")
	require.ErrorContains(t, err, "db error")
	assert.NotErrorIs(t, err, common.ErrNotFound)
}

func TestIdentifiersByToken(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	q := `(?s)^SELECT\s+identifier\s+FROM\s+accounts\s+WHERE\s+discovery_token\s*=\s*\$1\s+ORDER\s+BY\s+identifier\s*$`
	mock.ExpectQuery(q).WithArgs("tok").
		WillReturnRows(sqlmock.NewRows([]string{"identifier"}).AddRow("+1").AddRow("+1-alt"))
	mock.ExpectQuery(q).WithArgs("none").
		WillReturnRows(sqlmock.NewRows([]string{"identifier"}))

	got, err := repo.IdentifiersByToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, []string{"+1", "+1-alt"}, got)

	_, err = repo.IdentifiersByToken(context.Background(), "none")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestMatchTokens(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	q := `(?s)^SELECT\s+discovery_token,\s*identifier\s+FROM\s+accounts\s+WHERE\s+discovery_token\s+IN\s+\(\$1,\s*\$2,\s*\$3\)\s+ORDER\s+BY\s+identifier$`
	mock.ExpectQuery(q).WithArgs("a", "b", "c").
		WillReturnRows(sqlmock.NewRows([]string{"discovery_token", "identifier"}).
			AddRow("a", "+1").AddRow("c", "+3"))

	got, err := repo.MatchTokens(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"a": {"+1"}, "c": {"+3"}}, got)
}

func TestMatchTokens_EmptySkipsQuery(t *testing.T) {
	repo, _ := newRepoWithMock(t)

	got, err := repo.MatchTokens(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
