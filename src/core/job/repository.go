package job

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CreateParams carries the payment binding fields attached to a new job.
type CreateParams struct {
	InputHash            string
	BlockchainIdentifier string
	PayByTime            int64
	SellerVKey           string
	SubmitResultTime     int64
	UnlockTime           int64
}

// Repository defines the interface for job persistence
type Repository interface {
	Create(ctx context.Context, params CreateParams) (Job, error)
	Get(ctx context.Context, jobID string) (Job, error)
	UpdateStatus(ctx context.Context, jobID string, target Status, result, jobErr *string) (Job, error)
	Count(ctx context.Context) (int, error)
}

// InMemoryRepository stores job snapshots in a mutex-guarded map. It is safe
// for concurrent use; for a single job id the read-validate-write sequence of
// UpdateStatus is indivisible, so concurrent status changes serialize and a
// racing caller always validates against the latest snapshot.
type InMemoryRepository struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

// NewInMemoryRepository creates an empty repository. Each instance owns its
// own store, so independent repositories can coexist in tests.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		jobs: make(map[string]Job),
	}
}

// Create stores a new job in StatusAwaitingPayment and returns its snapshot.
func (r *InMemoryRepository) Create(ctx context.Context, params CreateParams) (Job, error) {
	now := time.Now().UTC()
	j := Job{
		JobID:                uuid.NewString(),
		Status:               StatusAwaitingPayment,
		InputHash:            params.InputHash,
		BlockchainIdentifier: params.BlockchainIdentifier,
		PayByTime:            params.PayByTime,
		SellerVKey:           params.SellerVKey,
		SubmitResultTime:     params.SubmitResultTime,
		UnlockTime:           params.UnlockTime,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	r.mu.Lock()
	r.jobs[j.JobID] = j
	r.mu.Unlock()

	return j, nil
}

// Get returns the current snapshot for the given id.
func (r *InMemoryRepository) Get(ctx context.Context, jobID string) (Job, error) {
	r.mu.RLock()
	j, ok := r.jobs[jobID]
	r.mu.RUnlock()

	if !ok {
		return Job{}, &NotFoundError{JobID: jobID}
	}
	return j, nil
}

// UpdateStatus atomically validates and applies a status change, returning
// the new snapshot. The lock is held across lookup, validation and store so
// the loser of a race observes the winner's state, never a stale one.
func (r *InMemoryRepository) UpdateStatus(ctx context.Context, jobID string, target Status, result, jobErr *string) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.jobs[jobID]
	if !ok {
		return Job{}, &NotFoundError{JobID: jobID}
	}
	if err := ValidateTransition(current.Status, target); err != nil {
		return Job{}, err
	}

	updated := current
	updated.Status = target
	updated.UpdatedAt = time.Now().UTC()
	updated.Result = result
	updated.Error = jobErr
	r.jobs[jobID] = updated

	return updated, nil
}

// Count returns the number of stored jobs.
func (r *InMemoryRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs), nil
}
