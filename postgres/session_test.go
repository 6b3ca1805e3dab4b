package postgres

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/flowagent"
)

// newTestStore connects to DATABASE_URL and recreates the schema.
// Tests are skipped when no database is configured.
func newTestStore(t *testing.T) *PGStore {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := New(pool)
	require.NoError(t, s.DropSchema(ctx))
	require.NoError(t, s.CreateSchema(ctx))
	t.Cleanup(func() { _ = s.DropSchema(context.Background()) })
	return s
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Get(ctx, "s1")
	assert.ErrorIs(t, err, flowagent.ErrSessionNotFound)
	assert.ErrorIs(t, s.Clear(ctx, "s1"), flowagent.ErrSessionNotFound)

	ts := time.Now().UTC().Truncate(time.Microsecond)
	user := flowagent.SessionEntry{ID: uuid.NewString(), Role: flowagent.RoleUser, Content: "A[x]", Timestamp: ts}
	agent := flowagent.SessionEntry{
		ID: uuid.NewString(), Role: flowagent.RoleAgent, Content: "done", Timestamp: ts,
		Workflow: json.RawMessage(`{"id": "wf-1"}`),
	}
	require.NoError(t, s.Append(ctx, "s1", user))
	require.NoError(t, s.Append(ctx, "s1", agent))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, user.ID, got[0].ID)
	assert.Nil(t, got[0].Workflow)
	assert.JSONEq(t, `{"id":"wf-1"}`, string(got[1].Workflow))
	assert.True(t, ts.Equal(got[1].Timestamp))

	require.NoError(t, s.Clear(ctx, "s1"))
	got, err = s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
