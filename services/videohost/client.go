package videohost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const (
	// DefaultTimeout is the HTTP client timeout for status calls
	DefaultTimeout = 30 * time.Second
	// DefaultUploadTimeout covers multipart uploads of large video files
	DefaultUploadTimeout = 10 * time.Minute
)

// RetryConfig holds retry configuration for failed requests
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     2,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
	}
}

// Config holds configuration for the video host client
type Config struct {
	APIToken      string
	BaseURL       string
	Timeout       time.Duration
	UploadTimeout time.Duration
	RetryConfig   *RetryConfig
}

// Client talks to the video hosting provider's HTTP API
type Client struct {
	apiToken     string
	baseURL      string
	httpClient   *http.Client
	uploadClient *http.Client
	retryConfig  RetryConfig
}

// NewClient creates a new video host API client
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.UploadTimeout == 0 {
		config.UploadTimeout = DefaultUploadTimeout
	}

	retryConfig := DefaultRetryConfig()
	if config.RetryConfig != nil {
		retryConfig = *config.RetryConfig
	}

	return &Client{
		apiToken:     config.APIToken,
		baseURL:      config.BaseURL,
		httpClient:   &http.Client{Timeout: config.Timeout},
		uploadClient: &http.Client{Timeout: config.UploadTimeout},
		retryConfig:  retryConfig,
	}
}

// IsRetryableStatusCode checks if an HTTP status code should trigger a retry
func IsRetryableStatusCode(statusCode int) bool {
	return statusCode == 408 || statusCode == 429 || statusCode >= 500
}

// CalculateBackoff returns the backoff duration for a given retry attempt.
// Exponential: initialBackoff * 2^attempt, capped at maxBackoff.
func CalculateBackoff(attempt int, config RetryConfig) time.Duration {
	backoff := config.InitialBackoff * time.Duration(1<<uint(attempt))
	if backoff > config.MaxBackoff {
		return config.MaxBackoff
	}
	return backoff
}

// videoPayload is the provider's wire format for a video record
type videoPayload struct {
	ID          string  `json:"id"`
	State       string  `json:"state"`
	PlaybackURL string  `json:"playback_url"`
	DurationSec float64 `json:"duration"`
	Error       string  `json:"error"`
}

func (p *videoPayload) toVideo() *Video {
	return &Video{
		ID:          p.ID,
		State:       p.State,
		PlaybackURL: p.PlaybackURL,
		Duration:    time.Duration(p.DurationSec * float64(time.Second)),
		Error:       p.Error,
	}
}

// Upload pushes the video file to the provider as a multipart request.
// Uploads are not retried; the file reader can only be consumed once.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (*Video, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("title", req.Title); err != nil {
		return nil, fmt.Errorf("failed to write title field: %w", err)
	}

	part, err := writer.CreateFormFile("file", req.FileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, req.Body); err != nil {
		return nil, fmt.Errorf("failed to copy file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/videos", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.uploadClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	var payload videoPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}

	return payload.toVideo(), nil
}

// GetVideo fetches the current state of a video, retrying transient failures
func (c *Client) GetVideo(ctx context.Context, id string) (*Video, error) {
	endpoint := fmt.Sprintf("%s/v1/videos/%s", c.baseURL, id)

	var lastErr error
	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(CalculateBackoff(attempt-1, c.retryConfig)):
			}
		}

		video, retryable, err := c.getVideoOnce(ctx, endpoint)
		if err == nil {
			return video, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("video status request failed after %d attempts: %w", c.retryConfig.MaxRetries+1, lastErr)
}

func (c *Client) getVideoOnce(ctx context.Context, endpoint string) (*Video, bool, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, ErrVideoNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("status request failed with status %d: %s", resp.StatusCode, string(body))
		return nil, IsRetryableStatusCode(resp.StatusCode), err
	}

	var payload videoPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("failed to decode status response: %w", err)
	}

	return payload.toVideo(), false, nil
}
