package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/bundlegrid/internal/executor"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func batch(id string, started time.Time) *executor.Batch {
	return &executor.Batch{
		ID:       id,
		Started:  started,
		Duration: 3 * time.Second,
		Results: []executor.Result{
			{
				Unit: "browser_tests",
				Outputs: []executor.Output{
					{ArtifactName: "browser-tests.js", Bytes: []byte("abc")},
					{ArtifactName: "browser-tests-worker.js", Bytes: []byte("de")},
				},
				Duration: time.Second,
			},
			{Unit: "server_repl", Err: errors.New("compile failed"), Duration: 2 * time.Second},
		},
	}
}

func TestRecordBatch(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordBatch(ctx, batch("b1", started)))

	batches, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "b1", batches[0].ID)
	assert.True(t, started.Equal(batches[0].StartedAt))
	assert.Equal(t, 3*time.Second, batches[0].Duration)
	assert.Equal(t, 2, batches[0].UnitCount)
	assert.Equal(t, 1, batches[0].FailedUnit)

	units, err := s.Units(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "browser_tests", units[0].Unit)
	assert.Equal(t, []string{"browser-tests.js", "browser-tests-worker.js"}, units[0].Artifacts)
	assert.Equal(t, 5, units[0].Bytes)
	assert.Empty(t, units[0].Error)
	assert.Equal(t, "server_repl", units[1].Unit)
	assert.Nil(t, units[1].Artifacts)
	assert.Equal(t, "compile failed", units[1].Error)
}

func TestRecent_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, s.RecordBatch(ctx, batch(id, base.Add(time.Duration(i)*time.Minute))))
	}

	batches, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, "new", batches[0].ID)
	assert.Equal(t, "mid", batches[1].ID)
}

func TestRecordBatch_DuplicateIDFails(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Now()

	require.NoError(t, s.RecordBatch(ctx, batch("b1", now)))
	require.Error(t, s.RecordBatch(ctx, batch("b1", now)))

	units, err := s.Units(ctx, "b1")
	require.NoError(t, err)
	assert.Len(t, units, 2, "failed insert must roll back")
}

func TestOpen_File(t *testing.T) {
	p := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(p)
	require.NoError(t, err)
	require.NoError(t, s.RecordBatch(context.Background(), batch("b1", time.Now())))
	require.NoError(t, s.Close())

	s, err = Open(p)
	require.NoError(t, err)
	defer s.Close()
	batches, err := s.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, batches, 1)
}
