package track

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/genstudio/jobtrack/pkg/log"
)

// BlobStorage persists the serialized job list under a single fixed key.
// The SQLite implementation lives in internal/persistence; tests substitute
// an in-memory one.
type BlobStorage interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte) error
}

// Store is the durable record of in-flight jobs. Tracking is an
// optimization for resumability, not a correctness requirement of the
// submission flow, so every storage failure is logged and swallowed: an
// unreadable store behaves as an empty one and a failed write as a no-op.
//
// The mutex keeps each read-filter-rewrite cycle atomic with respect to
// concurrent store calls.
type Store struct {
	storage BlobStorage

	mu  sync.Mutex
	now func() time.Time
}

func NewStore(storage BlobStorage) *Store {
	return &Store{
		storage: storage,
		now:     time.Now,
	}
}

// ListActiveJobs returns the persisted jobs that have not passed the expiry
// window. Expired entries are purged from storage before returning.
func (s *Store) ListActiveJobs(ctx context.Context) []TrackedJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := s.readLocked(ctx)
	if len(jobs) == 0 {
		return nil
	}

	now := s.now()
	active := make([]TrackedJob, 0, len(jobs))
	for _, job := range jobs {
		if job.Expired(now) {
			continue
		}
		active = append(active, job)
	}
	if len(active) != len(jobs) {
		s.writeLocked(ctx, active)
	}
	return active
}

// RegisterJob appends job to the persisted collection. Registering a jobId
// that already exists is a no-op.
func (s *Store) RegisterJob(ctx context.Context, job TrackedJob) {
	if job.JobID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := s.readLocked(ctx)
	for _, existing := range jobs {
		if existing.JobID == job.JobID {
			return
		}
	}
	s.writeLocked(ctx, append(jobs, job))
}

// UnregisterJob removes the entry with the given jobId, if present.
func (s *Store) UnregisterJob(ctx context.Context, jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := s.readLocked(ctx)
	remaining := make([]TrackedJob, 0, len(jobs))
	for _, job := range jobs {
		if job.JobID == jobID {
			continue
		}
		remaining = append(remaining, job)
	}
	if len(remaining) != len(jobs) {
		s.writeLocked(ctx, remaining)
	}
}

func (s *Store) readLocked(ctx context.Context) []TrackedJob {
	value, ok, err := s.storage.Load(ctx, StorageKey)
	if err != nil {
		log.Warn("Failed to read tracked jobs, treating store as empty: %v", err)
		return nil
	}
	if !ok || len(value) == 0 {
		return nil
	}

	var jobs []TrackedJob
	if err := json.Unmarshal(value, &jobs); err != nil {
		log.Warn("Tracked job record is malformed, treating store as empty: %v", err)
		return nil
	}
	return jobs
}

func (s *Store) writeLocked(ctx context.Context, jobs []TrackedJob) {
	value, err := json.Marshal(jobs)
	if err != nil {
		log.Error("Failed to serialize tracked jobs: %v", err)
		return
	}
	if err := s.storage.Save(ctx, StorageKey, value); err != nil {
		log.Error("Failed to persist tracked jobs: %v", err)
	}
}
