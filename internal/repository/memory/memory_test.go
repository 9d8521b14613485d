package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expresscouriers/checkout/internal/domain"
	"github.com/expresscouriers/checkout/internal/repository"
)

func TestSessionStore_PutGetDeleteList(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore("web")

	got, err := s.Get(ctx, repository.PendingOrderKey)
	require.NoError(t, err)
	assert.Nil(t, got)

	value := []byte(`{"city_id":"airdrie"}`)
	require.NoError(t, s.Put(ctx, repository.PendingOrderKey, value))
	value[0] = 'X'

	got, err = s.Get(ctx, repository.PendingOrderKey)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.JSONEq(t, `{"city_id":"airdrie"}`, string(got.Value), "store keeps its own copy")
	assert.Equal(t, "web", got.Scope)

	require.NoError(t, s.Put(ctx, "failedOrder_2_b", []byte(`{}`)))
	require.NoError(t, s.Put(ctx, "failedOrder_1_a", []byte(`{}`)))

	list, err := s.List(ctx, repository.FailedOrderKeyPrefix)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "failedOrder_1_a", list[0].Key)
	assert.Equal(t, "failedOrder_2_b", list[1].Key)

	require.NoError(t, s.Delete(ctx, repository.PendingOrderKey))
	got, err = s.Get(ctx, repository.PendingOrderKey)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSubmissionEventRepository(t *testing.T) {
	ctx := context.Background()
	r := NewSubmissionEventRepository()
	a, b := uuid.New(), uuid.New()

	require.NoError(t, r.Create(ctx, &domain.SubmissionEvent{SubmissionID: a, EventType: "VALIDATING"}))
	require.NoError(t, r.Create(ctx, &domain.SubmissionEvent{SubmissionID: b, EventType: "VALIDATING"}))
	require.NoError(t, r.Create(ctx, &domain.SubmissionEvent{SubmissionID: a, EventType: "SUCCEEDED"}))

	events, err := r.GetBySubmissionID(ctx, a)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "VALIDATING", events[0].EventType)
	assert.Equal(t, "SUCCEEDED", events[1].EventType)
	assert.NotEqual(t, uuid.Nil, events[0].ID)
	assert.False(t, events[0].CreatedAt.IsZero())
}

func TestIdempotencyKeyRepository_ReserveCompleteRelease(t *testing.T) {
	ctx := context.Background()
	r := NewIdempotencyKeyRepository()

	won, err := r.Reserve(ctx, "k", "h1")
	require.NoError(t, err)
	assert.True(t, won)

	won, err = r.Reserve(ctx, "k", "h2")
	require.NoError(t, err)
	assert.False(t, won)

	got, err := r.GetByKey(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "h1", got.RequestHash)
	assert.True(t, got.InProgress())

	require.NoError(t, r.Complete(ctx, "k", 200, []byte(`{}`)))
	got, err = r.GetByKey(ctx, "k")
	require.NoError(t, err)
	assert.False(t, got.InProgress())
	assert.Equal(t, []byte(`{}`), got.ResponseBody)

	// completed keys survive a release
	require.NoError(t, r.Release(ctx, "k"))
	got, err = r.GetByKey(ctx, "k")
	require.NoError(t, err)
	assert.NotNil(t, got)

	_, err = r.Reserve(ctx, "open", "h")
	require.NoError(t, err)
	require.NoError(t, r.Release(ctx, "open"))
	missing, err := r.GetByKey(ctx, "open")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Error(t, r.Complete(ctx, "never-reserved", 200, nil))
}

func TestIsFailedOrderKey(t *testing.T) {
	assert.True(t, repository.IsFailedOrderKey("failedOrder_1700000000000_ab12cd34"))
	assert.False(t, repository.IsFailedOrderKey("failedOrder_"))
	assert.False(t, repository.IsFailedOrderKey(repository.PendingOrderKey))
}
