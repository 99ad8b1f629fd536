package envelopes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
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

func TestCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	q := `(?s)^INSERT\s+INTO\s+envelopes\s*\(id,\s*recipient_id,\s*sender,\s*payload\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*RETURNING\s+created_at\s*$`
	mock.ExpectQuery(q).
		WithArgs("env-1", "acc-2", "+15550001", []byte("sealed")).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	e := &models.Envelope{ID: "env-1", RecipientID: "acc-2", Sender: "+15550001", Payload: []byte("sealed")}
	require.NoError(t, repo.Create(context.Background(), e))
	assert.Equal(t, now, e.CreatedAt)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`INSERT INTO envelopes`).WillReturnError(errors.New("fk violation"))

	err := repo.Create(context.Background(), &models.Envelope{ID: "env-1"})
	require.ErrorContains(t, err, "db error: fk violation")
}

func TestTake_ReturnsOldestFirst(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	q := `(?s)^DELETE\s+FROM\s+envelopes\s+WHERE\s+id\s+IN\s*\(.*recipient_id\s*=\s*\$1.*LIMIT\s+\$2.*\)\s*RETURNING\s+id,\s*recipient_id,\s*sender,\s*payload,\s*created_at\s*$`
	mock.ExpectQuery(q).WithArgs("acc-2", 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "recipient_id", "sender", "payload", "created_at"}).
			AddRow("b", "acc-2", "+1", []byte("2"), t0.Add(time.Second)).
			AddRow("a", "acc-2", "+1", []byte("1"), t0))

	got, err := repo.Take(context.Background(), "acc-2", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, []byte("2"), got[1].Payload)
}

func TestTake_Empty(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`DELETE FROM envelopes`).WithArgs("acc-2", 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "recipient_id", "sender", "payload", "created_at"}))

	got, err := repo.Take(context.Background(), "acc-2", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}
