package inmemory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-sync/internal/jobs"
)

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestQueueProcessesJob(t *testing.T) {
	store := NewStore()
	queue := NewQueue(4, store)
	defer queue.Close()

	handled := make(chan struct{})
	err := queue.Start(context.Background(), func(_ context.Context, job jobs.Job) error {
		assert.Equal(t, jobs.JobTypeSyncAccount, job.GetType())
		close(handled)
		return nil
	})
	require.NoError(t, err)

	job := &jobs.SyncAccountJob{AccountKey: "bbva_mx_mxn"}
	require.NoError(t, queue.PublishSyncAccount(context.Background(), job))
	assert.NotEmpty(t, job.JobID)
	assert.Equal(t, 3, job.MaxRetries)

	waitFor(t, handled, "job to be handled")

	// Completion is eventually visible in the store.
	require.Eventually(t, func() bool {
		stored, err := store.GetJob(context.Background(), job.JobID)
		return err == nil && stored.Status == jobs.JobStatusCompleted
	}, 5*time.Second, 10*time.Millisecond)
}

func TestQueueRejectsSecondJobForSameAccount(t *testing.T) {
	queue := NewQueue(4, NewStore())
	defer queue.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	var startOnce sync.Once
	err := queue.Start(context.Background(), func(_ context.Context, _ jobs.Job) error {
		startOnce.Do(func() { close(started) })
		<-release
		return nil
	})
	require.NoError(t, err)

	first := &jobs.SyncAccountJob{AccountKey: "bbva_mx_mxn"}
	require.NoError(t, queue.PublishSyncAccount(context.Background(), first))
	waitFor(t, started, "first job to start")

	// Same account while in flight: rejected.
	second := &jobs.SyncAccountJob{AccountKey: "bbva_mx_mxn"}
	assert.ErrorIs(t, queue.PublishSyncAccount(context.Background(), second), jobs.ErrAccountBusy)

	// A different account is fine.
	other := &jobs.SyncAccountJob{AccountKey: "bbva_mx_usd"}
	assert.NoError(t, queue.PublishSyncAccount(context.Background(), other))

	close(release)

	// The slot frees up once the first job completes.
	require.Eventually(t, func() bool {
		err := queue.PublishSyncAccount(context.Background(), &jobs.SyncAccountJob{AccountKey: "bbva_mx_mxn"})
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
}

func TestQueueRetriesFailedJob(t *testing.T) {
	store := NewStore()
	queue := NewQueue(4, store)
	defer queue.Close()

	var mu sync.Mutex
	attempts := 0
	err := queue.Start(context.Background(), func(_ context.Context, _ jobs.Job) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)

	job := &jobs.SyncAccountJob{AccountKey: "bbva_mx_mxn", MaxRetries: 2}
	require.NoError(t, queue.PublishSyncAccount(context.Background(), job))

	require.Eventually(t, func() bool {
		stored, err := store.GetJob(context.Background(), job.JobID)
		return err == nil && stored.Status == jobs.JobStatusCompleted
	}, 10*time.Second, 25*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, attempts)
}

func TestQueueClosedPublishFails(t *testing.T) {
	queue := NewQueue(1, nil)
	require.NoError(t, queue.Close())

	err := queue.PublishSyncAccount(context.Background(), &jobs.SyncAccountJob{AccountKey: "bbva_mx_mxn"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, jobs.ErrAccountBusy)
}

func TestStoreCRUD(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	assert.Error(t, store.SaveJob(ctx, &jobs.SyncAccountJob{}))

	job := &jobs.SyncAccountJob{JobID: "j1", AccountKey: "bbva_mx_mxn", Status: jobs.JobStatusPending}
	require.NoError(t, store.SaveJob(ctx, job))

	// Stored value is a copy.
	job.AccountKey = "mutated"
	stored, err := store.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, "bbva_mx_mxn", stored.AccountKey)

	_, err = store.GetJob(ctx, "missing")
	assert.Error(t, err)

	require.NoError(t, store.SaveJob(ctx, &jobs.SyncAccountJob{JobID: "j2", AccountKey: "bbva_mx_usd", Status: jobs.JobStatusFailed}))

	byAccount, err := store.ListJobs(ctx, jobs.JobFilter{AccountKey: "bbva_mx_usd"})
	require.NoError(t, err)
	require.Len(t, byAccount, 1)
	assert.Equal(t, "j2", byAccount[0].JobID)

	byStatus, err := store.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusPending})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "j1", byStatus[0].JobID)

	require.NoError(t, store.UpdateJobStatus(ctx, "j1", jobs.JobStatusFailed, "boom"))
	updated, err := store.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusFailed, updated.Status)
	assert.Equal(t, "boom", updated.Error)

	assert.Error(t, store.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, ""))
}
