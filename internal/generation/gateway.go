package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"content-service/internal/model"

	"go.uber.org/zap"
)

// Request is the payload submitted to the generation service.
type Request struct {
	Kind      model.JobKind `json:"kind"`
	ProjectID uint          `json:"project_id"`
	TargetIDs []uint        `json:"target_ids"`
	Inputs    any           `json:"inputs,omitempty"`
}

// SubmitResponse is the generation service's answer to a submission.
type SubmitResponse struct {
	JobID string `json:"job_id"`
}

// StatusResponse is the generation service's answer to a status lookup.
type StatusResponse struct {
	Status       model.JobStatus `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
}

// ErrorResponse represents a generation service error body
type ErrorResponse struct {
	Error string `json:"error"`
}

// Gateway submits generation jobs and looks up their status. The remote
// generation itself is opaque; only the job lifecycle is visible here.
type Gateway interface {
	Submit(ctx context.Context, req Request) (string, error)
	Status(ctx context.Context, jobID string) (*StatusResponse, error)
}

// Client is the HTTP implementation of Gateway.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewClient creates a new generation service client
func NewClient(baseURL string, requestTimeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: requestTimeout},
		Logger:     logger,
	}
}

// Submit posts a generation request and returns the remote job id.
func (c *Client) Submit(ctx context.Context, req Request) (string, error) {
	c.Logger.Info("Submitting generation job",
		zap.String("kind", string(req.Kind)),
		zap.Uint("project_id", req.ProjectID),
		zap.Int("target_count", len(req.TargetIDs)))

	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/v1/jobs", c.BaseURL), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		c.Logger.Error("Generation submit request failed", zap.Error(err))
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err != nil || errResp.Error == "" {
			return "", fmt.Errorf("generation submit rejected: %d %s", resp.StatusCode, string(respBody))
		}
		return "", fmt.Errorf("generation submit rejected: %s", errResp.Error)
	}

	var submitResp SubmitResponse
	if err := json.Unmarshal(respBody, &submitResp); err != nil {
		return "", fmt.Errorf("invalid submit response: %w", err)
	}
	if submitResp.JobID == "" {
		return "", fmt.Errorf("submit response missing job_id")
	}

	c.Logger.Info("Generation job submitted", zap.String("job_id", submitResp.JobID))
	return submitResp.JobID, nil
}

// Status looks up a job's current status.
func (c *Client) Status(ctx context.Context, jobID string) (*StatusResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1/jobs/%s", c.BaseURL, jobID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		c.Logger.Error("Generation status request failed",
			zap.String("job_id", jobID),
			zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generation status lookup failed: %d %s", resp.StatusCode, string(respBody))
	}

	var statusResp StatusResponse
	if err := json.Unmarshal(respBody, &statusResp); err != nil {
		return nil, fmt.Errorf("invalid status response: %w", err)
	}
	return &statusResp, nil
}
