package status

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_ConsecutiveFailures(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	tr.Begin("indicators", "background", base)
	tr.Complete("indicators", base, errors.New("backend unavailable"))
	tr.Begin("indicators", "background", base.Add(time.Minute))
	tr.Complete("indicators", base.Add(time.Minute), errors.New("backend unavailable"))

	st, err := tr.Get("indicators")
	require.NoError(t, err)
	assert.Equal(t, RefreshPhaseFailed, st.Phase)
	assert.Equal(t, 2, st.ConsecutiveFailures)
	assert.Equal(t, 2, st.RefreshCount)
	assert.Equal(t, "backend unavailable", st.Message)
	assert.Nil(t, st.LastRefreshTime)

	success := base.Add(2 * time.Minute)
	tr.Begin("indicators", "manual", success)
	tr.Complete("indicators", success, nil)

	st, err = tr.Get("indicators")
	require.NoError(t, err)
	assert.Equal(t, RefreshPhaseComplete, st.Phase)
	assert.Equal(t, 0, st.ConsecutiveFailures)
	assert.Equal(t, 3, st.RefreshCount)
	assert.Equal(t, "manual", st.LastReason)
	require.NotNil(t, st.LastRefreshTime)
	assert.Equal(t, success, *st.LastRefreshTime)
}

func TestTracker_BeginSetsRefreshing(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.Ensure("dashboard")

	st, err := tr.Get("dashboard")
	require.NoError(t, err)
	assert.Equal(t, RefreshPhasePending, st.Phase)

	tr.Begin("dashboard", "queued", time.Now())
	st, err = tr.Get("dashboard")
	require.NoError(t, err)
	assert.Equal(t, RefreshPhaseRefreshing, st.Phase)
}

func TestTracker_SnapshotIsSortedCopy(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	tr.Begin("users", "r", at)
	tr.Ensure("assets")

	snap := tr.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "assets", snap[0].Topic)
	assert.Equal(t, "users", snap[1].Topic)

	*snap[1].LastAttempt = at.Add(time.Hour)
	st, err := tr.Get("users")
	require.NoError(t, err)
	assert.Equal(t, at, *st.LastAttempt)
}

func TestTracker_RemoveAndReset(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.Ensure("a")
	tr.Ensure("b")

	tr.Remove("a")
	_, err := tr.Get("a")
	assert.Error(t, err)

	tr.Reset()
	assert.Empty(t, tr.Snapshot())
}
