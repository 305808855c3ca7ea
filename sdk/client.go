// Package sdk provides a Go client for the sentriage triage API.
//
// Basic usage:
//
//	c := sdk.NewClient("http://localhost:8080")
//	resp, err := c.Triage(ctx, records, nil)
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Record is one log event submitted for triage.
type Record struct {
	Username       string  `json:"username"`
	Timestamp      string  `json:"timestamp,omitempty"` // RFC 3339
	VolumeMB       float64 `json:"volume_mb"`
	GeoLocation    string  `json:"geo_location"`
	KnownMalicious bool    `json:"known_malicious"`
	Endpoint       string  `json:"endpoint,omitempty"`
	FailedLogin    bool    `json:"failed_login,omitempty"`
}

// Verdict is the triage outcome for one record.
type Verdict struct {
	Record        Record   `json:"record"`
	Label         string   `json:"label"`
	RationaleTags []string `json:"rationale_tags"`
}

// Report is the run's side-channel of skipped records and degraded actors.
type Report struct {
	Records  int `json:"records"`
	Verdicts int `json:"verdicts"`
	Skipped  []struct {
		Index  int    `json:"index"`
		Actor  string `json:"actor"`
		Reason string `json:"reason"`
	} `json:"skipped,omitempty"`
	Degraded []struct {
		Actor  string `json:"actor"`
		Reason string `json:"reason"`
	} `json:"degraded,omitempty"`
}

// TriageRequest is sent to POST /v1/triage.
type TriageRequest struct {
	Records      []Record `json:"records"`
	TrustedUsers []string `json:"trusted_users,omitempty"`
	Save         bool     `json:"save,omitempty"`
}

// TriageResponse is returned by the sentriage API.
type TriageResponse struct {
	RunID    string    `json:"run_id,omitempty"`
	Verdicts []Verdict `json:"verdicts"`
	Report   *Report   `json:"report"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sentriage: HTTP %d: %s", e.StatusCode, e.Message)
}

// Client talks to a sentriage API server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the sentriage API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Triage submits a batch of records. trustedUsers may be nil to use the
// server's configured set.
func (c *Client) Triage(ctx context.Context, records []Record, trustedUsers []string) (*TriageResponse, error) {
	req := TriageRequest{Records: records, TrustedUsers: trustedUsers}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/triage", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode != http.StatusOK {
		return nil, apiError(httpResp)
	}

	var resp TriageResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &resp, nil
}

// Health checks the server.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode != http.StatusOK {
		return nil, apiError(httpResp)
	}

	var resp HealthResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &resp, nil
}

func apiError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Error == "" {
		payload.Error = string(raw)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
}
