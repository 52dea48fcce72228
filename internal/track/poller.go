package track

import (
	"context"
	"time"

	"github.com/genstudio/jobtrack/internal/gateway"
	"github.com/genstudio/jobtrack/pkg/log"
)

const (
	// DefaultPollInterval is the pause between status queries.
	DefaultPollInterval = 5 * time.Second

	// DefaultMaxAttempts bounds the tracked lifetime of one job:
	// 120 attempts at 5s is roughly ten minutes.
	DefaultMaxAttempts = 120

	timeoutMessage         = "timeout after 10 minutes"
	fallbackFailureMessage = "video generation failed"
)

// State is the poller's view of a job.
type State string

const (
	StatePolling   State = "polling"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed_out"
)

// Terminal reports whether no further polling will happen for this state.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateTimedOut
}

// Outcome is the result of driving one job to rest. Failure and timeout are
// normal terminal outcomes, not errors.
type Outcome struct {
	State    State  `json:"state"`
	VideoURL string `json:"videoUrl,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Callbacks receives progress and terminal notifications during a poll
// loop. Any of the fields may be nil.
type Callbacks struct {
	OnProgress func(status string)
	OnComplete func(videoURL string)
	OnError    func(message string)
}

func (c Callbacks) progress(status string) {
	if c.OnProgress != nil {
		c.OnProgress(status)
	}
}

func (c Callbacks) complete(videoURL string) {
	if c.OnComplete != nil {
		c.OnComplete(videoURL)
	}
}

func (c Callbacks) fail(message string) {
	if c.OnError != nil {
		c.OnError(message)
	}
}

// Poller drives tracked jobs to a terminal outcome via repeated status
// queries against the gateway.
type Poller struct {
	store       *Store
	gateway     GatewayClient
	interval    time.Duration
	maxAttempts int
}

// PollerOption customizes a Poller.
type PollerOption func(*Poller)

// WithInterval overrides the pause between status queries.
func WithInterval(interval time.Duration) PollerOption {
	return func(p *Poller) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

// WithMaxAttempts overrides the attempt budget.
func WithMaxAttempts(maxAttempts int) PollerOption {
	return func(p *Poller) {
		if maxAttempts > 0 {
			p.maxAttempts = maxAttempts
		}
	}
}

func NewPoller(store *Store, gw GatewayClient, opts ...PollerOption) *Poller {
	p := &Poller{
		store:       store,
		gateway:     gw,
		interval:    DefaultPollInterval,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Poll queries the job's status until it reaches a terminal outcome or the
// attempt budget runs out. Any terminal outcome removes the job from the
// store in the same step that reports it. Transient query failures consume
// one attempt and the loop continues.
//
// The only error Poll returns is the context's: cancellation ends the loop
// without a terminal outcome and leaves the job registered, so it can be
// resumed later.
func (p *Poller) Poll(ctx context.Context, job TrackedJob, cb Callbacks) (Outcome, error) {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, p.interval); err != nil {
				return Outcome{State: StatePolling}, err
			}
		}

		status, err := p.gateway.JobStatus(ctx, job.JobID, job.ProviderKey)
		if err != nil {
			if ctx.Err() != nil {
				return Outcome{State: StatePolling}, ctx.Err()
			}
			// Transient: tolerate flaky connectivity, spend the attempt.
			log.Warn("Status query for job %s failed (attempt %d/%d): %v",
				job.JobID, attempt, p.maxAttempts, err)
			continue
		}

		switch status.Status {
		case gateway.StateSuccess:
			p.store.UnregisterJob(ctx, job.JobID)
			log.Info("Job %s succeeded after %d attempts", job.JobID, attempt)
			cb.complete(status.VideoURL)
			return Outcome{State: StateSucceeded, VideoURL: status.VideoURL}, nil

		case gateway.StateFailure:
			message := status.Error
			if message == "" {
				message = fallbackFailureMessage
			}
			p.store.UnregisterJob(ctx, job.JobID)
			log.Info("Job %s failed: %s", job.JobID, message)
			cb.fail(message)
			return Outcome{State: StateFailed, Message: message}, nil

		default:
			cb.progress(string(status.Status))
		}
	}

	p.store.UnregisterJob(ctx, job.JobID)
	log.Warn("Job %s timed out after %d attempts", job.JobID, p.maxAttempts)
	cb.fail(timeoutMessage)
	return Outcome{State: StateTimedOut, Message: timeoutMessage}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
