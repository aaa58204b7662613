package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/ledger-bot/internal/jobs"
	"github.com/google/uuid"
)

// DefaultWorkers is the number of worker goroutines when none is configured.
const DefaultWorkers = 4

// Queue is an in-memory implementation of job publisher and consumer.
// Jobs are sharded by user over one channel per worker, so the jobs of one
// user run in publish order while different users run concurrently.
// This implementation is suitable for single-instance deployments and testing.
type Queue struct {
	shards    []chan *jobs.EventJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	publishMu sync.Mutex
	store     jobs.JobStore
	closed    bool
	now       func() time.Time
}

// NewQueue creates a new in-memory job queue with the given number of
// workers. bufferSize is the per-worker backlog before PublishEvent blocks.
func NewQueue(workers, bufferSize int, store jobs.JobStore) *Queue {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	shards := make([]chan *jobs.EventJob, workers)
	for i := range shards {
		shards[i] = make(chan *jobs.EventJob, bufferSize)
	}
	return &Queue{
		shards:    shards,
		closeChan: make(chan struct{}),
		store:     store,
		now:       time.Now,
	}
}

// PublishEvent implements the Publisher interface.
func (q *Queue) PublishEvent(ctx context.Context, job *jobs.EventJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return jobs.ErrQueueClosed
	}

	if err := q.register(ctx, job); err != nil {
		return err
	}

	select {
	case q.shardFor(job.UserID) <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return jobs.ErrQueueClosed
	}
}

// register assigns defaults and records the job, rejecting redelivered updates.
func (q *Queue) register(ctx context.Context, job *jobs.EventJob) error {
	q.publishMu.Lock()
	defer q.publishMu.Unlock()

	if q.store != nil && job.UpdateID != 0 {
		_, err := q.store.FindByUpdateID(ctx, job.UpdateID)
		if err == nil {
			return fmt.Errorf("PublishEvent: update %d: %w", job.UpdateID, jobs.ErrDuplicateUpdate)
		}
		if !errors.Is(err, jobs.ErrJobNotFound) {
			return fmt.Errorf("PublishEvent: find update: %w", err)
		}
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = q.now()
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("PublishEvent: save job: %w", err)
		}
	}
	return nil
}

func (q *Queue) shardFor(userID int64) chan *jobs.EventJob {
	return q.shards[uint64(userID)%uint64(len(q.shards))]
}

// Start implements the Consumer interface.
// It starts one worker per shard.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return jobs.ErrQueueClosed
	}
	q.mu.RUnlock()

	for _, shard := range q.shards {
		q.wg.Add(1)
		go q.worker(ctx, shard, handler)
	}

	return nil
}

// worker processes jobs of one shard in order.
func (q *Queue) worker(ctx context.Context, shard <-chan *jobs.EventJob, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-shard:
			if job == nil {
				return
			}

			q.processJob(ctx, job, handler)
		}
	}
}

// processJob executes a single job and records its outcome.
func (q *Queue) processJob(ctx context.Context, job *jobs.EventJob, handler jobs.JobHandler) {
	job.Status = jobs.JobStatusRunning
	startedAt := q.now()
	job.StartedAt = &startedAt

	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}

	err := handler(ctx, job)

	completedAt := q.now()
	job.CompletedAt = &completedAt

	if err != nil {
		job.Status = jobs.JobStatusFailed
		job.Error = err.Error()
	} else {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
	}

	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}
}

// Stop implements the Consumer interface.
// It stops the queue and waits for in-flight jobs to complete.
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

// Close implements the Publisher interface.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

// Ensure Queue implements both Publisher and Consumer interfaces.
var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
