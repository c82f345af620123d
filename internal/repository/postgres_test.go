package repository

import (
	"context"
	"testing"

	"producttrends/crawler/internal/testhelpers"

	"github.com/stretchr/testify/require"
)

func TestPostgresStore_Contract(t *testing.T) {
	dsn := testhelpers.PostgresDSN(t)

	store, err := NewPostgresStoreFromDSN(context.Background(), dsn, 2)
	require.NoError(t, err)
	defer store.Close()

	testStoreContract(t, store)
	// the schema bootstrap must be repeatable
	require.NoError(t, store.EnsureSchema(context.Background()))
}
