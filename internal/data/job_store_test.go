package data

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/boostd/internal/domain/model"
	"github.com/target/boostd/internal/testutil"
)

func finishAs(status model.JobStatus, at time.Time) func(*model.Job) {
	return func(j *model.Job) {
		j.Status = status
		end := at
		j.EndTime = &end
		j.LastUpdate = at
	}
}

func TestJobStore_CreateAndFinish(t *testing.T) {
	store := NewJobStore(JobStoreOptions{HistoryCapacity: 10})
	now := testutil.TestTime()
	job := testutil.NewJob("job_a").Build()

	sess, err := store.Create(CreateParams{Job: job, Now: now})
	require.NoError(t, err)
	assert.Equal(t, 1, sess.Active)
	assert.Equal(t, 1, sess.Submitted)

	got, active, found := store.Lookup("job_a")
	require.True(t, found)
	assert.True(t, active)
	assert.Equal(t, model.JobStatusRunning, got.Status)

	final, ok := store.Finish("job_a", now.Add(time.Second), finishAs(model.JobStatusCompleted, now.Add(time.Second)))
	require.True(t, ok)
	assert.Equal(t, model.JobStatusCompleted, final.Status)

	_, live := store.Get("job_a")
	assert.False(t, live, "finished job must leave the registry")

	got, active, found = store.Lookup("job_a")
	require.True(t, found)
	assert.False(t, active)
	assert.Equal(t, model.JobStatusCompleted, got.Status)

	sess, _ = store.Session("owner-1")
	assert.Equal(t, 0, sess.Active)
	assert.Equal(t, 1, sess.Submitted)
}

func TestJobStore_FinishIsIdempotent(t *testing.T) {
	store := NewJobStore(JobStoreOptions{HistoryCapacity: 10})
	now := testutil.TestTime()
	_, err := store.Create(CreateParams{Job: testutil.NewJob("job_a").Build(), Now: now})
	require.NoError(t, err)

	_, first := store.Finish("job_a", now, finishAs(model.JobStatusStopped, now))
	_, second := store.Finish("job_a", now, finishAs(model.JobStatusTimeout, now))

	assert.True(t, first)
	assert.False(t, second)
	hist := store.ListHistory(0)
	require.Len(t, hist, 1)
	assert.Equal(t, model.JobStatusStopped, hist[0].Status)

	sess, _ := store.Session("owner-1")
	assert.Equal(t, 0, sess.Active, "active count is floored at zero")
}

func TestJobStore_ConcurrentFinishRecordsOnce(t *testing.T) {
	store := NewJobStore(JobStoreOptions{HistoryCapacity: 100})
	now := testutil.TestTime()
	_, err := store.Create(CreateParams{Job: testutil.NewJob("job_race").Build(), Now: now})
	require.NoError(t, err)

	statuses := []model.JobStatus{
		model.JobStatusStopped, model.JobStatusTimeout, model.JobStatusCompleted, model.JobStatusTimeoutCleanup,
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for _, s := range statuses {
		wg.Add(1)
		go func(s model.JobStatus) {
			defer wg.Done()
			if _, ok := store.Finish("job_race", now, finishAs(s, now)); ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(s)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Len(t, store.ListHistory(0), 1)
	assert.Empty(t, store.ListActive())
}

func TestJobStore_MutateOnlyWhilePresent(t *testing.T) {
	store := NewJobStore(JobStoreOptions{HistoryCapacity: 10})
	now := testutil.TestTime()
	_, err := store.Create(CreateParams{Job: testutil.NewJob("job_a").Build(), Now: now})
	require.NoError(t, err)

	updated, ok := store.Mutate("job_a", func(j *model.Job) { j.Count++ })
	require.True(t, ok)
	assert.Equal(t, 1, updated.Count)

	store.Finish("job_a", now, finishAs(model.JobStatusStopped, now))

	called := false
	_, ok = store.Mutate("job_a", func(j *model.Job) { called = true })
	assert.False(t, ok)
	assert.False(t, called)
}

func TestJobStore_HistorySnapshotsAreIsolated(t *testing.T) {
	store := NewJobStore(JobStoreOptions{HistoryCapacity: 10})
	now := testutil.TestTime()
	_, err := store.Create(CreateParams{Job: testutil.NewJob("job_a").Build(), Now: now})
	require.NoError(t, err)
	store.Finish("job_a", now, finishAs(model.JobStatusStopped, now))

	h := store.ListHistory(1)
	require.Len(t, h, 1)
	h[0].Count = 99
	*h[0].EndTime = now.Add(time.Hour)

	again := store.ListHistory(1)
	assert.Equal(t, 0, again[0].Count)
	assert.Equal(t, now, *again[0].EndTime)
}

func TestJobStore_OwnerQuota(t *testing.T) {
	store := NewJobStore(JobStoreOptions{HistoryCapacity: 10})
	now := testutil.TestTime()

	_, err := store.Create(CreateParams{Job: testutil.NewJob("job_1").Build(), MaxActivePerOwner: 1, Now: now})
	require.NoError(t, err)
	_, err = store.Create(CreateParams{Job: testutil.NewJob("job_2").Build(), MaxActivePerOwner: 1, Now: now})
	require.ErrorIs(t, err, ErrOwnerQuotaExceeded)

	_, err = store.Create(CreateParams{
		Job:               testutil.NewJob("job_3").WithOwner("owner-2").Build(),
		MaxActivePerOwner: 1,
		Now:               now,
	})
	require.NoError(t, err)
}

func TestJobStore_DuplicateIDs(t *testing.T) {
	store := NewJobStore(JobStoreOptions{HistoryCapacity: 10})
	now := testutil.TestTime()
	_, err := store.Create(CreateParams{Job: testutil.NewJob("job_a").Build(), Now: now})
	require.NoError(t, err)
	_, err = store.Create(CreateParams{Job: testutil.NewJob("job_a").Build(), Now: now})
	require.ErrorIs(t, err, ErrDuplicateJob)

	store.Finish("job_a", now, finishAs(model.JobStatusStopped, now))
	_, err = store.Create(CreateParams{Job: testutil.NewJob("job_a").Build(), Now: now})
	require.ErrorIs(t, err, ErrDuplicateJob, "an id already in history may not be reused")
}

func TestJobStore_StartedBeforeAndStats(t *testing.T) {
	store := NewJobStore(JobStoreOptions{HistoryCapacity: 10})
	now := testutil.TestTime()

	old := testutil.NewJob("job_old").StartedAt(now.Add(-20 * time.Minute)).Build()
	fresh := testutil.NewJob("job_new").StartedAt(now).Build()
	for _, j := range []*model.Job{old, fresh} {
		_, err := store.Create(CreateParams{Job: j, Now: now})
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"job_old"}, store.StartedBefore(now.Add(-10*time.Minute)))

	stats := store.Stats()
	assert.Equal(t, 2, stats.Active)
	assert.Equal(t, 2, stats.ByStatus[model.JobStatusRunning])
	assert.Equal(t, 1, stats.Owners)
}

func TestJobStore_Snapshot(t *testing.T) {
	store := NewJobStore(JobStoreOptions{HistoryCapacity: 10})
	now := testutil.TestTime()
	for i := 0; i < 4; i++ {
		id := fmt.Sprintf("job_%d", i)
		_, err := store.Create(CreateParams{Job: testutil.NewJob(id).StartedAt(now.Add(time.Duration(i) * time.Second)).Build(), Now: now})
		require.NoError(t, err)
	}
	store.Finish("job_0", now, finishAs(model.JobStatusStopped, now))
	store.Finish("job_1", now, finishAs(model.JobStatusStopped, now))

	active, history := store.Snapshot(1)
	require.Len(t, active, 2)
	assert.Equal(t, "job_2", active[0].ID)
	require.Len(t, history, 1)
	assert.Equal(t, "job_1", history[0].ID)

	_, none := store.Snapshot(0)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
