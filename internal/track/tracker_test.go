package track

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genstudio/jobtrack/internal/gateway"
)

// countingGateway answers every status query with the same response and
// counts the queries.
type countingGateway struct {
	mu       sync.Mutex
	queries  int
	response gateway.StatusResponse
	delay    time.Duration
}

func (g *countingGateway) CreateJob(context.Context, gateway.GenerationRequest) (*gateway.CreateJobResponse, error) {
	return &gateway.CreateJobResponse{TaskID: "abc123", Provider: "veo"}, nil
}

func (g *countingGateway) JobStatus(context.Context, string, string) (*gateway.StatusResponse, error) {
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	g.mu.Lock()
	g.queries++
	g.mu.Unlock()
	resp := g.response
	return &resp, nil
}

func (g *countingGateway) queryCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.queries
}

func TestTracker_SubmitThenPollRemovesJob(t *testing.T) {
	gw := &countingGateway{response: gateway.StatusResponse{
		Status:   gateway.StateSuccess,
		VideoURL: "https://cdn.example/v.mp4",
	}}
	tracker := New(newMemoryStorage(), gw, &markingReducer{}, WithInterval(time.Millisecond))

	job, err := tracker.Submit(context.Background(), "node-1", gateway.GenerationRequest{
		Prompt: "a cat",
		Model:  "veo3.1",
	})
	require.NoError(t, err)
	require.Len(t, tracker.ActiveJobs(context.Background()), 1)

	outcome, err := tracker.Poll(context.Background(), *job, Callbacks{})
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, outcome.State)
	assert.Empty(t, tracker.ActiveJobs(context.Background()))
}

func TestTracker_ConcurrentPollsShareOneLoop(t *testing.T) {
	gw := &countingGateway{
		response: gateway.StatusResponse{Status: gateway.StateSuccess, VideoURL: "u"},
		delay:    50 * time.Millisecond,
	}
	tracker := New(newMemoryStorage(), gw, &markingReducer{}, WithInterval(time.Millisecond))
	job := testJob("abc123", time.Now())

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 2)
	for i := range outcomes {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := tracker.Poll(context.Background(), job, Callbacks{})
			require.NoError(t, err)
			outcomes[i] = outcome
		}()
	}
	wg.Wait()

	assert.Equal(t, StateSucceeded, outcomes[0].State)
	assert.Equal(t, outcomes[0], outcomes[1])
	assert.Equal(t, 1, gw.queryCount())
}

func TestTracker_ResumePollsPersistedJobs(t *testing.T) {
	storage := newMemoryStorage()

	// A previous run left two jobs behind.
	seed := NewStore(storage)
	seed.RegisterJob(context.Background(), testJob("job-a", time.Now()))
	seed.RegisterJob(context.Background(), testJob("job-b", time.Now()))

	gw := &countingGateway{response: gateway.StatusResponse{Status: gateway.StateSuccess, VideoURL: "u"}}
	tracker := New(storage, gw, &markingReducer{}, WithInterval(time.Millisecond))

	var mu sync.Mutex
	completed := map[string]string{}
	err := tracker.Resume(context.Background(), func(job TrackedJob) Callbacks {
		return Callbacks{
			OnComplete: func(url string) {
				mu.Lock()
				completed[job.JobID] = url
				mu.Unlock()
			},
		}
	})
	require.NoError(t, err)

	assert.Len(t, completed, 2)
	assert.Empty(t, tracker.ActiveJobs(context.Background()))
}

func TestTracker_ResumeWithEmptyStoreIsNoop(t *testing.T) {
	gw := &countingGateway{response: gateway.StatusResponse{Status: gateway.StateInProgress}}
	tracker := New(newMemoryStorage(), gw, &markingReducer{}, WithInterval(time.Millisecond))

	require.NoError(t, tracker.Resume(context.Background(), nil))
	assert.Equal(t, 0, gw.queryCount())
}

func TestTracker_SweepReportsActiveCount(t *testing.T) {
	storage := newMemoryStorage()
	seed := NewStore(storage)
	seed.RegisterJob(context.Background(), testJob("fresh", time.Now()))
	seed.RegisterJob(context.Background(), testJob("stale", time.Now().Add(-31*time.Minute)))

	gw := &countingGateway{response: gateway.StatusResponse{Status: gateway.StateInProgress}}
	tracker := New(storage, gw, &markingReducer{})

	assert.Equal(t, 1, tracker.Sweep(context.Background()))
}
