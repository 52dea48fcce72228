package track

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/genstudio/jobtrack/internal/gateway"
	"github.com/genstudio/jobtrack/pkg/log"
)

// Tracker ties the store, submitter and poller together and is the entry
// point callers use.
type Tracker struct {
	store     *Store
	submitter *Submitter
	poller    *Poller

	// Deduplicates concurrent poll loops per job id, so a resumed job and
	// a freshly submitted one never race on the same entry.
	polls singleflight.Group
}

func New(storage BlobStorage, gw GatewayClient, reducer MediaReducer, opts ...PollerOption) *Tracker {
	store := NewStore(storage)
	return &Tracker{
		store:     store,
		submitter: NewSubmitter(store, gw, reducer),
		poller:    NewPoller(store, gw, opts...),
	}
}

// Submit registers a new generation job. See Submitter.Submit.
func (t *Tracker) Submit(ctx context.Context, ownerRef string, req gateway.GenerationRequest) (*TrackedJob, error) {
	return t.submitter.Submit(ctx, ownerRef, req)
}

// Poll drives job to a terminal outcome. Concurrent calls for the same job
// id share a single poll loop and its outcome.
func (t *Tracker) Poll(ctx context.Context, job TrackedJob, cb Callbacks) (Outcome, error) {
	result, err, _ := t.polls.Do(job.JobID, func() (any, error) {
		outcome, pollErr := t.poller.Poll(ctx, job, cb)
		if pollErr != nil {
			return nil, pollErr
		}
		return outcome, nil
	})
	if err != nil {
		return Outcome{State: StatePolling}, err
	}
	return result.(Outcome), nil
}

// ActiveJobs lists the currently tracked, non-expired jobs.
func (t *Tracker) ActiveJobs(ctx context.Context) []TrackedJob {
	return t.store.ListActiveJobs(ctx)
}

// Sweep reads the store, purging stale entries as a side effect, and
// returns how many jobs remain tracked.
func (t *Tracker) Sweep(ctx context.Context) int {
	return len(t.store.ListActiveJobs(ctx))
}

// Resume picks up the jobs persisted by a previous run and polls each of
// them concurrently. callbacks, when non-nil, supplies the Callbacks for
// each rehydrated job. Resume returns once every resumed job reaches a
// terminal outcome or ctx is cancelled.
func (t *Tracker) Resume(ctx context.Context, callbacks func(TrackedJob) Callbacks) error {
	jobs := t.store.ListActiveJobs(ctx)
	if len(jobs) == 0 {
		return nil
	}
	log.Info("Resuming %d tracked generation jobs", len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			cb := Callbacks{}
			if callbacks != nil {
				cb = callbacks(job)
			}
			_, err := t.Poll(ctx, job, cb)
			return err
		})
	}
	return g.Wait()
}
