// Package completion is the client for the remote text-completion service:
// one prompt in, one completion out. The service is opaque; errors surface
// as typed sentinel errors so callers can route soft failures to fallbacks.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"warehouse-chat/internal/common/config"
	"warehouse-chat/internal/common/logger"
)

var (
	ErrCompletionFailed  = errors.New("COMPLETION_FAILED")
	ErrCompletionTimeout = errors.New("COMPLETION_TIMEOUT")
	ErrEmptyCompletion   = errors.New("EMPTY_COMPLETION")
)

// Service is the single entry point components depend on.
type Service interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Client struct {
	config *config.CompletionConfig
	client *http.Client
	logger logger.Logger
}

func NewClient(cfg *config.CompletionConfig, log logger.Logger) *Client {
	return &Client{
		config: cfg,
		// No HTTP client timeout; the per-call context bounds the request.
		client: &http.Client{},
		logger: log.With(map[string]interface{}{
			"component": "completion",
		}),
	}
}

// Complete sends the prompt and returns the completion text. Retries
// non-OK statuses and transport errors with exponential backoff; a context
// deadline converts to ErrCompletionTimeout immediately.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	requestBody := map[string]interface{}{
		"model":       c.config.Model,
		"prompt":      prompt,
		"max_tokens":  c.config.MaxTokens,
		"temperature": c.config.Temperature,
	}

	body, _ := json.Marshal(requestBody)

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ErrCompletionTimeout
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/api/v1/complete", bytes.NewBuffer(body))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrCompletionFailed, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}

		resp, lastErr = c.client.Do(req)

		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			return "", ErrCompletionTimeout
		}

		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}
	}

	if lastErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", ErrCompletionTimeout
		}
		return "", fmt.Errorf("%w: %v", ErrCompletionFailed, lastErr)
	}

	if resp == nil {
		return "", fmt.Errorf("%w: no successful response after retries", ErrCompletionFailed)
	}
	defer resp.Body.Close()

	var apiResponse struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", fmt.Errorf("%w: decode error: %v", ErrCompletionFailed, err)
	}

	if strings.TrimSpace(apiResponse.Text) == "" {
		return "", ErrEmptyCompletion
	}

	c.logger.Debug("completion received", map[string]interface{}{
		"promptLen":     len(prompt),
		"completionLen": len(apiResponse.Text),
	})

	return apiResponse.Text, nil
}
