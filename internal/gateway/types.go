package gateway

import "fmt"

// GenerationRequest is the body of a job-creation call.
//
// Images carries base64/data-URL reference images; ImageRoles labels them
// positionally (e.g. "first_frame", "last_frame"). ViduSubjects bundles
// per-subject reference images for multi-subject providers. VideoConfig is
// forwarded verbatim; its shape is provider-specific and owned by the
// gateway.
type GenerationRequest struct {
	Prompt         string          `json:"prompt"`
	Model          string          `json:"model"`
	AspectRatio    string          `json:"aspectRatio,omitempty"`
	Duration       int             `json:"duration,omitempty"`
	PromptLanguage string          `json:"promptLanguage,omitempty"`
	Images         []string        `json:"images,omitempty"`
	ImageRoles     []string        `json:"imageRoles,omitempty"`
	VideoConfig    map[string]any  `json:"videoConfig,omitempty"`
	ViduSubjects   []SubjectBundle `json:"viduSubjects,omitempty"`
}

// SubjectBundle groups the reference images of one subject.
type SubjectBundle struct {
	Name   string   `json:"name,omitempty"`
	Images []string `json:"images,omitempty"`
}

// CreateJobResponse is the gateway's answer to an accepted job creation.
type CreateJobResponse struct {
	TaskID   string `json:"taskId"`
	Provider string `json:"provider"`
}

// JobState is the gateway-reported state of a running job.
type JobState string

const (
	StateSuccess    JobState = "SUCCESS"
	StateFailure    JobState = "FAILURE"
	StateInProgress JobState = "IN_PROGRESS"
)

// StatusResponse is the gateway's answer to a status query.
type StatusResponse struct {
	Status   JobState `json:"status"`
	VideoURL string   `json:"videoUrl,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// errorBody is the optional JSON body of a non-2xx gateway response.
type errorBody struct {
	Error string `json:"error"`
}

// APIError is returned when the gateway rejects a request. Message carries
// the service-reported error when one was present.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("API error: %d", e.StatusCode)
}
