package reddit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"redwarm/internal/model"
	"redwarm/pkg/interfaces"
	"redwarm/pkg/logger"
)

// PermanentError marks a failure that retrying cannot fix: revoked
// credentials, a banned account, or an account no longer connected.
// The worker turns these into a terminal FAILED status instead of
// handing the job back to the queue for retry.
type PermanentError struct {
	Reason string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent reddit failure: %s", e.Reason)
}

// IsPermanent reports whether the error is a classified permanent failure
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// Client HTTP implementation of the Reddit action contract.
// Authentication and per-endpoint micro-pacing live here; the orchestration
// layer only decides when a unit of work runs.
type Client struct {
	baseURL    string
	httpClient *http.Client
	minGap     time.Duration

	mu       sync.Mutex // serializes pacing across worker goroutines
	lastCall time.Time
}

// NewClient creates a Reddit action client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		minGap: 2 * time.Second,
	}
}

type actionRequest struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	Action    string `json:"action"`
}

type actionResponse struct {
	Success   bool   `json:"success"`
	NewKarma  int    `json:"new_karma"`
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message,omitempty"`
}

// PerformAction executes one upvote/comment/post action for the account
func (c *Client) PerformAction(ctx context.Context, account *model.Account, action model.ActionType) (*interfaces.ActionResult, error) {
	if !account.Connected {
		return nil, &PermanentError{Reason: "account disconnected"}
	}

	c.pace()

	body, err := json.Marshal(actionRequest{
		AccountID: account.ID,
		Username:  account.Username,
		Action:    string(action),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal action request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/actions/%s", c.baseURL, action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors are transient, the queue retries them
		return nil, fmt.Errorf("reddit action request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &PermanentError{Reason: fmt.Sprintf("credentials rejected (status %d)", resp.StatusCode)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("rate limited by reddit (status %d)", resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("reddit upstream error (status %d)", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d from reddit action endpoint", resp.StatusCode)
	}

	var out actionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode action response: %w", err)
	}

	if !out.Success {
		if out.ErrorCode == "account_banned" || out.ErrorCode == "account_suspended" {
			return nil, &PermanentError{Reason: out.ErrorCode}
		}
		return nil, fmt.Errorf("reddit action rejected: %s", out.Message)
	}

	logger.DebugCtx(ctx, "reddit action done, account_id: %s, action: %s, karma: %d",
		account.ID, action, out.NewKarma)

	return &interfaces.ActionResult{
		Success:  true,
		NewKarma: out.NewKarma,
	}, nil
}

// pace enforces a minimum gap between consecutive outbound calls.
// The lock is held across the wait so concurrent callers queue up and
// each departure still respects the gap from the previous one.
func (c *Client) pace() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lastCall.IsZero() {
		if wait := c.minGap - time.Since(c.lastCall); wait > 0 {
			time.Sleep(wait)
		}
	}
	c.lastCall = time.Now()
}
