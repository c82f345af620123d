package state

import (
	"context"
	"testing"

	"producttrends/crawler/internal/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStateManager_Progress(t *testing.T) {
	sm := NewRedisStateManager(testhelpers.RedisClient(t))
	ctx := context.Background()

	index, err := sm.GetLastCompletedListing(ctx, "seeds/acme.txt")
	require.NoError(t, err)
	assert.Zero(t, index)

	require.NoError(t, sm.SetLastCompletedListing(ctx, "seeds/acme.txt", 3))
	index, err = sm.GetLastCompletedListing(ctx, "seeds/acme.txt")
	require.NoError(t, err)
	assert.Equal(t, 3, index)

	other, err := sm.GetLastCompletedListing(ctx, "seeds/other.txt")
	require.NoError(t, err)
	assert.Zero(t, other)

	require.NoError(t, sm.Reset(ctx, "seeds/acme.txt"))
	index, err = sm.GetLastCompletedListing(ctx, "seeds/acme.txt")
	require.NoError(t, err)
	assert.Zero(t, index)
}

func TestNopStateManager(t *testing.T) {
	var sm StateManager = NopStateManager{}
	require.NoError(t, sm.SetLastCompletedListing(context.Background(), "f", 5))
	index, err := sm.GetLastCompletedListing(context.Background(), "f")
	require.NoError(t, err)
	assert.Zero(t, index)
}
