package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueue(t *testing.T, attempts int) *Queue {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewQueue(rdb, "exports", attempts, nil)
}

func TestEnqueueDequeue(t *testing.T) {
	q := newQueue(t, 3)
	ctx := context.Background()
	payload := ExportPayload{ExportID: uuid.New(), EventID: uuid.New()}

	id, err := q.EnqueueExport(ctx, payload)
	require.NoError(t, err)
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, JobTypeAttendeeExport, job.Type)
	var got ExportPayload
	require.NoError(t, json.Unmarshal(job.Payload, &got))
	assert.Equal(t, payload, got)
}

func TestDequeueEmpty(t *testing.T) {
	q := newQueue(t, 3)
	job, err := q.Dequeue(context.Background(), 100*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestRetryThenDeadLetter(t *testing.T) {
	q := newQueue(t, 2)
	ctx := context.Background()
	_, err := q.EnqueueExport(ctx, ExportPayload{ExportID: uuid.New()})
	require.NoError(t, err)

	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	dead, err := q.Retry(ctx, job, errors.New("s3 down"))
	require.NoError(t, err)
	assert.False(t, dead)

	job, err = q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, 1, job.Attempt)
	assert.Equal(t, "s3 down", job.LastError)

	dead, err = q.Retry(ctx, job, errors.New("s3 still down"))
	require.NoError(t, err)
	assert.True(t, dead)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = q.DeadLetters(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
