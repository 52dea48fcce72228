package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

const (
	createJobPath = "/api/video/generate"
	jobStatusPath = "/api/video/status"
)

// Client talks to the external generation gateway.
// Thread-safe for concurrent use.
type Client struct {
	config     *Config
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new gateway client with the given configuration.
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	client := &Client{
		config:  config,
		baseURL: config.APIURL,
		httpClient: &http.Client{
			Timeout: time.Duration(config.Timeout) * time.Second,
		},
	}

	return client, nil
}

// CreateJob submits a generation request. On a non-2xx response it returns
// an *APIError carrying the gateway's reported message when one is present.
func (c *Client) CreateJob(ctx context.Context, req GenerationRequest) (*CreateJobResponse, error) {
	body, status, err := c.makeRequest(ctx, http.MethodPost, createJobPath, req)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, apiErrorFromBody(status, body)
	}

	var created CreateJobResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if created.TaskID == "" {
		return nil, fmt.Errorf("gateway returned no task id")
	}
	return &created, nil
}

// JobStatus queries the state of a previously created job. The provider key
// routes the query to the vendor that executed the job.
func (c *Client) JobStatus(ctx context.Context, taskID, provider string) (*StatusResponse, error) {
	query := url.Values{}
	query.Set("taskId", taskID)
	query.Set("provider", provider)

	body, status, err := c.makeRequest(ctx, http.MethodGet, jobStatusPath+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, apiErrorFromBody(status, body)
	}

	var statusResp StatusResponse
	if err := json.Unmarshal(body, &statusResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &statusResp, nil
}

// makeRequest makes a raw HTTP request and returns the body and status code.
func (c *Client) makeRequest(ctx context.Context, method, path string, payload interface{}) ([]byte, int, error) {
	requestURL := c.baseURL + path

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range c.config.GetHeaders() {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if os.IsTimeout(err) {
			return nil, 0, fmt.Errorf("request timed out: %w", err)
		}
		return nil, 0, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}

	return responseBody, resp.StatusCode, nil
}

func apiErrorFromBody(status int, body []byte) *APIError {
	var parsed errorBody
	_ = json.Unmarshal(body, &parsed)
	return &APIError{
		StatusCode: status,
		Message:    parsed.Error,
	}
}
