package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/statement-sync/internal/jobs"
)

// Queue is an in-memory job publisher and consumer backed by a channel.
// It is safe for concurrent use and suitable for single-instance
// deployments; multi-instance deployments should migrate to Cloud Tasks or
// Pub/Sub behind the same interfaces.
//
// At most one job per account is in flight at a time, counted from publish
// until the job's final completion including retries. Concurrent syncs of
// different accounts are fine; two for the same account are not.
type Queue struct {
	jobChan   chan *jobs.SyncAccountJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	store     jobs.JobStore

	mu       sync.Mutex
	closed   bool
	inFlight map[string]struct{}
}

// NewQueue creates an in-memory job queue. bufferSize determines how many
// jobs can be queued before PublishSyncAccount blocks.
func NewQueue(bufferSize int, store jobs.JobStore) *Queue {
	return &Queue{
		jobChan:   make(chan *jobs.SyncAccountJob, bufferSize),
		closeChan: make(chan struct{}),
		store:     store,
		inFlight:  make(map[string]struct{}),
	}
}

// PublishSyncAccount implements Publisher. It claims the account's in-flight
// slot and enqueues the job.
func (q *Queue) PublishSyncAccount(ctx context.Context, job *jobs.SyncAccountJob) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return fmt.Errorf("queue is closed")
	}
	if _, busy := q.inFlight[job.AccountKey]; busy {
		q.mu.Unlock()
		return jobs.ErrAccountBusy
	}
	q.inFlight[job.AccountKey] = struct{}{}
	q.mu.Unlock()

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = 3
	}

	if err := q.enqueue(ctx, job); err != nil {
		q.release(job.AccountKey)
		return err
	}
	return nil
}

// enqueue saves and queues a job without touching the in-flight slot; used
// both for first publication and for retries, which already hold the slot.
func (q *Queue) enqueue(ctx context.Context, job *jobs.SyncAccountJob) error {
	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}
	}
	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("queue is closed")
	}
}

func (q *Queue) release(accountKey string) {
	q.mu.Lock()
	delete(q.inFlight, accountKey)
	q.mu.Unlock()
}

// Start implements Consumer. Workers run jobs concurrently; the per-account
// in-flight guard keeps same-account jobs from overlapping.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return fmt.Errorf("queue is closed")
	}
	q.mu.Unlock()

	workerCount := 5
	for i := 0; i < workerCount; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}
			q.processJob(ctx, job, handler)
		}
	}
}

// processJob executes a single job with retry logic. The account's in-flight
// slot is released only on final completion.
func (q *Queue) processJob(ctx context.Context, job *jobs.SyncAccountJob, handler jobs.JobHandler) {
	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}

	err := handler(ctx, job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	switch {
	case err == nil:
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
		q.release(job.AccountKey)
	case job.RetryCount < job.MaxRetries:
		job.Error = err.Error()
		job.RetryCount++
		job.Status = jobs.JobStatusRetrying

		backoff := time.Duration(job.RetryCount) * time.Second
		time.AfterFunc(backoff, func() {
			job.Status = jobs.JobStatusPending
			job.StartedAt = nil
			job.CompletedAt = nil
			if enqErr := q.enqueue(ctx, job); enqErr != nil {
				job.Status = jobs.JobStatusFailed
				if q.store != nil {
					_ = q.store.SaveJob(context.Background(), job)
				}
				q.release(job.AccountKey)
			}
		})
	default:
		job.Error = err.Error()
		job.Status = jobs.JobStatusFailed
		q.release(job.AccountKey)
	}

	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}
}

// Stop implements Consumer. It stops the queue and waits for in-flight jobs.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements Publisher.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
