package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/ledger-bot/internal/jobs"
)

// DefaultCapacity is the number of jobs kept before the oldest are dropped.
const DefaultCapacity = 1000

// Store is an in-memory implementation of JobStore.
// It keeps the most recent jobs only and is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	capacity int
	jobs     map[string]*jobs.EventJob
	byUpdate map[int]string
	order    []string
}

// NewStore creates a new in-memory job store holding up to capacity jobs.
// A non-positive capacity uses DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		jobs:     make(map[string]*jobs.EventJob),
		byUpdate: make(map[int]string),
	}
}

// SaveJob implements the JobStore interface.
func (s *Store) SaveJob(ctx context.Context, job *jobs.EventJob) error {
	if job.JobID == "" {
		return fmt.Errorf("SaveJob: job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.JobID]; !exists {
		s.order = append(s.order, job.JobID)
		s.evict()
	}

	// Store a copy so callers can keep mutating theirs.
	jobCopy := *job
	s.jobs[job.JobID] = &jobCopy
	if job.UpdateID != 0 {
		s.byUpdate[job.UpdateID] = job.JobID
	}

	return nil
}

// evict drops the oldest jobs above capacity. Callers hold s.mu.
func (s *Store) evict() {
	for len(s.order) > s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		if job, ok := s.jobs[oldest]; ok && job.UpdateID != 0 {
			delete(s.byUpdate, job.UpdateID)
		}
		delete(s.jobs, oldest)
	}
}

// GetJob implements the JobStore interface.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.EventJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("GetJob: %s: %w", jobID, jobs.ErrJobNotFound)
	}

	jobCopy := *job
	return &jobCopy, nil
}

// FindByUpdateID implements the JobStore interface.
func (s *Store) FindByUpdateID(ctx context.Context, updateID int) (*jobs.EventJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobID, ok := s.byUpdate[updateID]
	if !ok {
		return nil, fmt.Errorf("FindByUpdateID: %d: %w", updateID, jobs.ErrJobNotFound)
	}
	jobCopy := *s.jobs[jobID]
	return &jobCopy, nil
}

// ListJobs implements the JobStore interface.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.EventJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*jobs.EventJob{}
	for _, job := range s.jobs {
		if filter.UserID != 0 && job.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}

		jobCopy := *job
		result = append(result, &jobCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.EventJob{}, nil
		}
		result = result[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

// UpdateJobStatus implements the JobStore interface.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("UpdateJobStatus: %s: %w", jobID, jobs.ErrJobNotFound)
	}

	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}

	return nil
}

// Ensure Store implements JobStore interface.
var _ jobs.JobStore = (*Store)(nil)
