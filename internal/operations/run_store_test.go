package operations

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "wbbcli/internal/errors"
)

func TestMemoryRunStore(t *testing.T) {
	store := NewMemoryRunStore()
	base := time.Now()

	require.NoError(t, store.Create(&Run{ID: "a", Status: RunStatusCompleted, CreatedAt: base}))
	require.NoError(t, store.Create(&Run{ID: "b", Status: RunStatusRunning, CreatedAt: base.Add(time.Second)}))
	assert.Error(t, store.Create(&Run{ID: "a"}))

	run, err := store.Get("a")
	require.NoError(t, err)
	run.Status = RunStatusFailed

	// Get returns a copy
	again, err := store.Get("a")
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, again.Status)

	_, err = store.Get("missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))

	runs := store.List(RunFilter{})
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].ID, "newest first")

	assert.Len(t, store.List(RunFilter{Status: RunStatusRunning}), 1)
	assert.Len(t, store.List(RunFilter{Limit: 1}), 1)

	require.NoError(t, store.Update(run))
	updated, _ := store.Get("a")
	assert.Equal(t, RunStatusFailed, updated.Status)
	assert.Error(t, store.Update(&Run{ID: "missing"}))

	require.NoError(t, store.Delete("b"))
	assert.Error(t, store.Delete("b"))
}

func TestMemoryRunStore_CleanupFinished(t *testing.T) {
	store := NewMemoryRunStore()
	old := time.Now().Add(-2 * time.Hour)
	recent := time.Now()

	require.NoError(t, store.Create(&Run{ID: "old", FinishedAt: &old}))
	require.NoError(t, store.Create(&Run{ID: "recent", FinishedAt: &recent}))
	require.NoError(t, store.Create(&Run{ID: "running"}))

	assert.Equal(t, 1, store.CleanupFinished(time.Hour))
	assert.Len(t, store.List(RunFilter{}), 2)
}
