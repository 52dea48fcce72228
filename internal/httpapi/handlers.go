package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/genstudio/jobtrack/internal/config"
	"github.com/genstudio/jobtrack/internal/gateway"
	"github.com/genstudio/jobtrack/internal/track"
	"github.com/genstudio/jobtrack/pkg/icron"
	"github.com/genstudio/jobtrack/pkg/log"
)

type submitJobRequest struct {
	OwnerRef       string                  `json:"owner_ref"`
	Prompt         string                  `json:"prompt"`
	Model          string                  `json:"model"`
	AspectRatio    string                  `json:"aspect_ratio"`
	Duration       int                     `json:"duration"`
	PromptLanguage string                  `json:"prompt_language"`
	Images         []string                `json:"images"`
	ImageRoles     []string                `json:"image_roles"`
	VideoConfig    map[string]any          `json:"video_config"`
	ViduSubjects   []gateway.SubjectBundle `json:"vidu_subjects"`
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		jobs := s.tracker.ActiveJobs(r.Context())
		if jobs == nil {
			jobs = []track.TrackedJob{}
		}
		writeJSON(w, http.StatusOK, jobs)
	case http.MethodPost:
		var req submitJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if req.Prompt == "" {
			writeError(w, http.StatusBadRequest, "prompt is required")
			return
		}
		if req.Model == "" {
			writeError(w, http.StatusBadRequest, "model is required")
			return
		}

		job, err := s.tracker.Submit(r.Context(), req.OwnerRef, gateway.GenerationRequest{
			Prompt:         req.Prompt,
			Model:          req.Model,
			AspectRatio:    req.AspectRatio,
			Duration:       req.Duration,
			PromptLanguage: req.PromptLanguage,
			Images:         req.Images,
			ImageRoles:     req.ImageRoles,
			VideoConfig:    req.VideoConfig,
			ViduSubjects:   req.ViduSubjects,
		})
		if err != nil {
			var apiErr *gateway.APIError
			if errors.As(err, &apiErr) {
				writeError(w, http.StatusBadGateway, apiErr.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		s.startBackgroundPoll(*job)
		writeJSON(w, http.StatusCreated, map[string]any{
			"job": job,
		})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// startBackgroundPoll drives the job to rest server-side. The loop is
// fire-and-forget: it self-terminates within the attempt budget, and SSE
// clients observe the terminal state through the store.
func (s *Server) startBackgroundPoll(job track.TrackedJob) {
	go func() {
		_, err := s.tracker.Poll(context.Background(), job, track.Callbacks{
			OnProgress: func(status string) {
				log.Debug("Job %s: %s", job.JobID, status)
			},
		})
		if err != nil {
			log.Warn("Background poll for job %s ended early: %v", job.JobID, err)
		}
	}()
}

func (s *Server) handleJobByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.status == nil {
		writeError(w, http.StatusNotImplemented, "status querier is not configured")
		return
	}

	// /api/jobs/{id}
	jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	jobID = strings.TrimSuffix(jobID, "/")
	if decoded, err := url.PathUnescape(jobID); err == nil {
		jobID = decoded
	}
	if jobID == "" || strings.Contains(jobID, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	provider := r.URL.Query().Get("provider")
	if provider == "" {
		// Fall back to the tracked record when the caller did not say.
		for _, job := range s.tracker.ActiveJobs(r.Context()) {
			if job.JobID == jobID {
				provider = job.ProviderKey
				break
			}
		}
	}
	if provider == "" {
		writeError(w, http.StatusBadRequest, "provider is required")
		return
	}

	status, err := s.status.JobStatus(r.Context(), jobID, provider)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type statusResponse struct {
	UptimeSeconds int64        `json:"uptime_seconds"`
	ActiveJobs    int          `json:"active_jobs"`
	Sweep         *sweepStatus `json:"sweep,omitempty"`
}

type sweepStatus struct {
	Expression string    `json:"expression"`
	Next       time.Time `json:"next"`
	Last       time.Time `json:"last,omitzero"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ret := statusResponse{
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		ActiveJobs:    len(s.tracker.ActiveJobs(r.Context())),
	}
	if s.sweepExpr != "" {
		if info, err := icron.GetTriggerInfo(s.sweepExpr, time.Now()); err == nil {
			ret.Sweep = &sweepStatus{
				Expression: info.Expression,
				Next:       info.Next,
				Last:       info.Last,
			}
		}
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "settings store is not configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		settings, err := s.settings.GetRuntimeSettings()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPut:
		var req config.RuntimeSettings
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if err := req.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		saved, err := s.settings.UpdateRuntimeSettings(req)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if s.apply != nil {
			if err := s.apply(saved); err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}
		writeJSON(w, http.StatusOK, saved)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
