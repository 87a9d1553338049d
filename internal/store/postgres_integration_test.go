//go:build integration

package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func getTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()

	url := os.Getenv("MATCHAGIG_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("MATCHAGIG_TEST_POSTGRES_URL is not set")
	}

	s, err := OpenPostgres(context.Background(), url, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestIntegration_Postgres_RecordLifecycle(t *testing.T) {
	ctx := context.Background()
	s := getTestPostgres(t)

	id := "it-" + uuid.New().String()
	rec := sampleRecord(id)
	require.NoError(t, s.Put(ctx, rec))
	defer func() {
		_, _ = s.pool.Exec(ctx, `DELETE FROM matchagig_records WHERE resume_id = $1`, id)
	}()

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	require.NoError(t, s.MarkSeeded(ctx, id))
	got, err = s.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.IsSeeded)
	assert.Equal(t, int64(1), got.Version)

	missing := "it-missing-" + uuid.New().String()
	require.ErrorIs(t, s.MarkSeeded(ctx, missing), ErrNotFound)
	got, err = s.Get(ctx, missing)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestIntegration_Postgres_ChatHistory(t *testing.T) {
	ctx := context.Background()
	s := getTestPostgres(t)

	id := "it-" + uuid.New().String()
	defer func() { _ = s.ClearChatHistory(ctx, id) }()

	messages := []ChatMessage{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "hi"},
	}
	require.NoError(t, s.SaveChatHistory(ctx, id, messages))

	got, err := s.LoadChatHistory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, messages, got)
}
