package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/expresscouriers/checkout/internal/domain"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestSessionStore_PutUpserts(t *testing.T) {
	db, mock := newMock(t)
	store := NewSessionStore(db, "web", zap.NewNop())

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO session_entries")).
		WithArgs("web", "pendingOrder", []byte(`{"a":1}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Put(context.Background(), "pendingOrder", []byte(`{"a":1}`)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionStore_GetMissingReturnsNil(t *testing.T) {
	db, mock := newMock(t)
	store := NewSessionStore(db, "web", zap.NewNop())

	mock.ExpectQuery("SELECT scope, key, value, updated_at").
		WithArgs("web", "pendingOrder").
		WillReturnRows(sqlmock.NewRows([]string{"scope", "key", "value", "updated_at"}))

	entry, err := store.Get(context.Background(), "pendingOrder")
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionStore_GetAndList(t *testing.T) {
	db, mock := newMock(t)
	store := NewSessionStore(db, "web", zap.NewNop())
	now := time.Now()

	mock.ExpectQuery("SELECT scope, key, value, updated_at").
		WithArgs("web", "pendingOrder").
		WillReturnRows(sqlmock.NewRows([]string{"scope", "key", "value", "updated_at"}).
			AddRow("web", "pendingOrder", []byte(`{"city_id":"airdrie"}`), now))

	entry, err := store.Get(context.Background(), "pendingOrder")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.JSONEq(t, `{"city_id":"airdrie"}`, string(entry.Value))

	mock.ExpectQuery(regexp.QuoteMeta("left(key, length($2)) = $2")).
		WithArgs("web", "failedOrder_").
		WillReturnRows(sqlmock.NewRows([]string{"scope", "key", "value", "updated_at"}).
			AddRow("web", "failedOrder_1_a", []byte(`{}`), now).
			AddRow("web", "failedOrder_2_b", []byte(`{}`), now))

	entries, err := store.List(context.Background(), "failedOrder_")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "failedOrder_2_b", entries[1].Key)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionStore_Delete(t *testing.T) {
	db, mock := newMock(t)
	store := NewSessionStore(db, "web", zap.NewNop())

	mock.ExpectExec("DELETE FROM session_entries").
		WithArgs("web", "pendingOrder").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Delete(context.Background(), "pendingOrder"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionEventRepository_CreateAndGet(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSubmissionEventRepository(db, zap.NewNop())
	submissionID := uuid.New()

	mock.ExpectExec("INSERT INTO submission_events").
		WithArgs(sqlmock.AnyArg(), submissionID, "DISPATCHING", []byte(`{"attempts":3}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	event := &domain.SubmissionEvent{
		SubmissionID: submissionID,
		EventType:    "DISPATCHING",
		EventData:    map[string]interface{}{"attempts": 3},
	}
	require.NoError(t, repo.Create(context.Background(), event))
	assert.NotEqual(t, uuid.Nil, event.ID)

	mock.ExpectQuery("FROM submission_events").
		WithArgs(submissionID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "submission_id", "event_type", "event_data", "created_at"}).
			AddRow(event.ID.String(), submissionID.String(), "DISPATCHING", []byte(`{"attempts":3}`), event.CreatedAt))

	events, err := repo.GetBySubmissionID(context.Background(), submissionID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, float64(3), events[0].EventData["attempts"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyKeyRepository(t *testing.T) {
	db, mock := newMock(t)
	repo := NewIdempotencyKeyRepository(db, zap.NewNop())

	mock.ExpectQuery("FROM idempotency_keys").
		WithArgs("k1").
		WillReturnError(sql.ErrNoRows)

	got, err := repo.GetByKey(context.Background(), "k1")
	require.NoError(t, err)
	assert.Nil(t, got)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (key) DO NOTHING")).
		WithArgs("k1", "hash", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (key) DO NOTHING")).
		WithArgs("k1", "hash", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE idempotency_keys")).
		WithArgs("k1", 200, []byte(`{"ok":true}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("response_status = 0")).
		WithArgs("k2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	won, err := repo.Reserve(ctx, "k1", "hash")
	require.NoError(t, err)
	assert.True(t, won)

	won, err = repo.Reserve(ctx, "k1", "hash")
	require.NoError(t, err)
	assert.False(t, won, "second reservation of the same key loses")

	require.NoError(t, repo.Complete(ctx, "k1", 200, []byte(`{"ok":true}`)))
	require.NoError(t, repo.Release(ctx, "k2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS session_entries").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, RunMigrations(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
