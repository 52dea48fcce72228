package track

import (
	"context"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/genstudio/jobtrack/internal/gateway"
	"github.com/genstudio/jobtrack/pkg/log"
)

// GatewayClient is the slice of the gateway API the tracker needs.
type GatewayClient interface {
	CreateJob(ctx context.Context, req gateway.GenerationRequest) (*gateway.CreateJobResponse, error)
	JobStatus(ctx context.Context, taskID, provider string) (*gateway.StatusResponse, error)
}

// MediaReducer shrinks one embedded media item to fit the transport budget.
type MediaReducer interface {
	Reduce(item string) string
}

// Submitter turns a generation request into a transport-safe payload,
// submits it to the gateway and registers the resulting job.
type Submitter struct {
	store   *Store
	gateway GatewayClient
	reducer MediaReducer
}

func NewSubmitter(store *Store, gw GatewayClient, reducer MediaReducer) *Submitter {
	return &Submitter{
		store:   store,
		gateway: gw,
		reducer: reducer,
	}
}

// Submit reduces every embedded media item, sends the request to the
// gateway's job-creation endpoint and registers the returned job in the
// store. A rejected submission is returned as an error (no job exists to
// track); a failed store write is not (tracking is best effort).
func (s *Submitter) Submit(ctx context.Context, ownerRef string, req gateway.GenerationRequest) (*TrackedJob, error) {
	if ownerRef == "" {
		ownerRef = uuid.NewString()
	}

	req.Images = s.reduceAll(req.Images)
	if len(req.ViduSubjects) > 0 {
		subjects := make([]gateway.SubjectBundle, len(req.ViduSubjects))
		for i, subject := range req.ViduSubjects {
			subjects[i] = gateway.SubjectBundle{
				Name:   subject.Name,
				Images: s.reduceAll(subject.Images),
			}
		}
		req.ViduSubjects = subjects
	}

	if req.PromptLanguage == "" {
		req.PromptLanguage = detectPromptLanguage(req.Prompt)
	}

	created, err := s.gateway.CreateJob(ctx, req)
	if err != nil {
		return nil, err
	}

	job := TrackedJob{
		JobID:       created.TaskID,
		ProviderKey: created.Provider,
		OwnerRef:    ownerRef,
		Params: JobParams{
			Model:          req.Model,
			AspectRatio:    req.AspectRatio,
			PromptLanguage: req.PromptLanguage,
		},
		CreatedAt: time.Now().UnixMilli(),
	}
	s.store.RegisterJob(ctx, job)

	log.Info("Submitted generation job %s (provider=%s, model=%s, owner=%s)",
		job.JobID, job.ProviderKey, job.Params.Model, job.OwnerRef)
	return &job, nil
}

func (s *Submitter) reduceAll(items []string) []string {
	if len(items) == 0 || s.reducer == nil {
		return items
	}
	reduced := make([]string, len(items))
	for i, item := range items {
		reduced[i] = s.reducer.Reduce(item)
	}
	return reduced
}

// detectPromptLanguage guesses the prompt's language as a normalized BCP 47
// tag. Some providers use the hint for lyric and speech generation. Returns
// "" when detection is unreliable.
func detectPromptLanguage(prompt string) string {
	if prompt == "" {
		return ""
	}
	info := whatlanggo.Detect(prompt)
	if !info.IsReliable() {
		return ""
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	return tag.String()
}
