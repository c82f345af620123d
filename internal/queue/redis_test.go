package queue

import (
	"context"
	"testing"
	"time"

	"producttrends/crawler/internal/config"
	"producttrends/crawler/internal/domain/task"
	"producttrends/crawler/internal/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisQueue_FailedURLRoundTrip(t *testing.T) {
	client := testhelpers.RedisClient(t)
	ctx := context.Background()

	q, err := NewRedisQueue(ctx, client, config.RedisConfig{ConsumerGroup: "test_group"})
	require.NoError(t, err)
	// a second bootstrap finds the group already there
	require.NoError(t, q.EnsureStreamsExist(ctx))

	failed := &task.FailedURLTask{RunID: "run-1", URL: "https://shop.example/p/1", Site: "acme.json", Error: "timeout", FailureStage: "fetch"}
	id, err := q.AddTask(ctx, failed)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	stream := q.StreamName(failed.TaskType())
	msg, err := q.GetTask(ctx, "c1", stream, 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, id, msg.ID)

	decoded, err := DecodeFailedURL(*msg)
	require.NoError(t, err)
	assert.Equal(t, failed, decoded)

	next, err := q.GetTask(ctx, "c1", stream, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, next)

	// unacknowledged messages can be claimed by another consumer
	claimed, err := q.AutoClaim(ctx, "c2", stream, 0)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, id, claimed[0].ID)

	require.NoError(t, q.AckTask(ctx, stream, id))
	claimed, err = q.AutoClaim(ctx, "c2", stream, 0)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}
