package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/statement-sync/internal/jobs"
)

// Store is an in-memory JobStore, safe for concurrent use. Data is lost on
// restart; use a database-backed store for durable job history.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.SyncAccountJob
}

// NewStore creates a new in-memory job store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]*jobs.SyncAccountJob)}
}

// SaveJob saves or updates a job. Stored jobs are copies so later mutations
// by the queue don't bleed into reads.
func (s *Store) SaveJob(_ context.Context, job *jobs.SyncAccountJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	jobCopy := *job
	s.jobs[job.JobID] = &jobCopy
	return nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(_ context.Context, jobID string) (*jobs.SyncAccountJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	jobCopy := *job
	return &jobCopy, nil
}

// ListJobs retrieves jobs matching the filter.
func (s *Store) ListJobs(_ context.Context, filter jobs.JobFilter) ([]*jobs.SyncAccountJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*jobs.SyncAccountJob
	for _, job := range s.jobs {
		if filter.AccountKey != "" && job.AccountKey != filter.AccountKey {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		jobCopy := *job
		result = append(result, &jobCopy)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.SyncAccountJob{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// UpdateJobStatus updates the status of a stored job.
func (s *Store) UpdateJobStatus(_ context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}
	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	return nil
}

var _ jobs.JobStore = (*Store)(nil)
