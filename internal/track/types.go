package track

import "time"

const (
	// StorageKey names the single persisted record holding the job list.
	StorageKey = "video_generation_tasks"

	// ExpiryWindow is how long a tracked job stays in the store before it
	// is considered stale and purged on the next read.
	ExpiryWindow = 30 * time.Minute
)

// JobParams is the small parameter subset kept for re-querying and
// re-displaying a job after a reload. It is not the full request payload.
type JobParams struct {
	Model          string `json:"model"`
	AspectRatio    string `json:"aspectRatio,omitempty"`
	PromptLanguage string `json:"promptLanguage,omitempty"`
}

// TrackedJob is one outstanding unit of external asynchronous work. Jobs
// are immutable once created; the store only adds and removes whole
// entries.
type TrackedJob struct {
	JobID       string    `json:"jobId"`
	ProviderKey string    `json:"providerKey"`
	OwnerRef    string    `json:"ownerRef"`
	Params      JobParams `json:"jobParameters"`
	CreatedAt   int64     `json:"createdAt"` // milliseconds since epoch
}

// Expired reports whether the job is older than the expiry window at now.
func (j TrackedJob) Expired(now time.Time) bool {
	return now.UnixMilli()-j.CreatedAt >= ExpiryWindow.Milliseconds()
}
