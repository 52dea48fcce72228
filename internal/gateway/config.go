package gateway

import (
	"fmt"
)

// Config holds the configuration for the gateway client.
//
// The gateway proxies several generation vendors behind one HTTP surface;
// the client does not know which vendor serves a request.
type Config struct {
	APIURL  string `json:"api_url"`
	APIKey  string `json:"api_key"`
	Timeout int    `json:"timeout"`
}

// Validate validates the configuration. The API key is optional: requests
// go out unauthenticated and the gateway decides whether to accept them.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("API URL is required")
	}
	if c.Timeout < 1 {
		return fmt.Errorf("timeout must be greater than 0")
	}
	return nil
}

// GetHeaders returns the headers attached to every gateway request.
func (c *Config) GetHeaders() map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
	}
	if c.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.APIKey
	}
	return headers
}
