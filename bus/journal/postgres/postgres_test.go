package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x-research-team/dtx-mediator/bus/journal"
	"github.com/x-research-team/dtx-mediator/bus/journal/postgres"
)

// dsnEnv задает строку подключения к тестовой базе.
const dsnEnv = "MEDIATOR_TEST_POSTGRES_DSN"

func TestStorage_SaveList(t *testing.T) {
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s не задана", dsnEnv)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback(ctx) })

	storage, err := postgres.NewStorageWithQuerier(ctx, tx)
	require.NoError(t, err)

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, action := range []string{"recorded", "undone", "redone"} {
		require.NoError(t, storage.Save(ctx, &journal.Entry{
			ID:          uuid.New(),
			Action:      action,
			RequestType: "ChangeAge",
			Status:      "success",
			Payload:     []byte(`{"NewAge":30}`),
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		}))
	}

	entries, err := storage.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "undone", entries[0].Action)
	assert.Equal(t, "redone", entries[1].Action)
	assert.JSONEq(t, `{"NewAge":30}`, string(entries[1].Payload))

	all, err := storage.List(ctx, 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(all), 3)
}

func TestStorage_ListKeepsInsertionOrderForEqualTimestamps(t *testing.T) {
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s не задана", dsnEnv)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback(ctx) })

	storage, err := postgres.NewStorageWithQuerier(ctx, tx)
	require.NoError(t, err)

	// Вытеснение, отбрасывание и запись одного Execute.
	at := time.Now().UTC()
	actions := []string{"evicted", "discarded", "recorded", "evicted", "discarded", "recorded"}
	for _, action := range actions {
		require.NoError(t, storage.Save(ctx, &journal.Entry{
			ID:          uuid.New(),
			Action:      action,
			RequestType: "ChangeAge",
			Status:      "success",
			CreatedAt:   at,
		}))
	}

	entries, err := storage.List(ctx, len(actions))
	require.NoError(t, err)
	require.Len(t, entries, len(actions))
	for i, e := range entries {
		assert.Equal(t, actions[i], e.Action)
	}
}
