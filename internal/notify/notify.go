// Package notify posts optimization session summaries to a callback URL.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/psweep/internal/optimize"
	"github.com/GoSim-25-26J-441/psweep/pkg/logger"
	"github.com/GoSim-25-26J-441/psweep/pkg/utils"
)

// SecretHeader carries the shared callback secret
const SecretHeader = "X-Psweep-Callback-Secret"

var ErrInvalidURL = errors.New("invalid callback url")

// Payload is the JSON body sent to the callback URL
type Payload struct {
	SessionID    string            `json:"session_id"`
	RunID        string            `json:"run_id"`
	Status       string            `json:"status"`
	Optimizer    string            `json:"optimizer"`
	Objective    string            `json:"objective"`
	BestConfigID string            `json:"best_config_id,omitempty"`
	BestScore    *float64          `json:"best_score,omitempty"`
	BestParams   map[string]string `json:"best_params,omitempty"`
	Evaluations  int               `json:"evaluations"`
	Reused       int               `json:"reused"`
	TimedOut     int               `json:"timed_out"`
	Failed       int               `json:"failed"`
	Reason       string            `json:"reason,omitempty"`
	Error        string            `json:"error,omitempty"`
	Duration     string            `json:"duration"`
	Timestamp    int64             `json:"timestamp"`
}

// PayloadFor summarizes r. A non-nil runErr marks the session interrupted.
func PayloadFor(r *optimize.Result, runErr error) Payload {
	p := Payload{
		SessionID:    r.SessionID,
		RunID:        r.RunID,
		Status:       "completed",
		Optimizer:    r.Optimizer,
		Objective:    r.Objective,
		BestConfigID: r.BestConfigID,
		BestParams:   r.BestParams,
		Evaluations:  r.Evaluations,
		Reused:       r.Reused,
		TimedOut:     r.TimedOut,
		Failed:       r.Failed,
		Reason:       r.Reason,
		Duration:     r.Duration,
		Timestamp:    time.Now().UTC().UnixMilli(),
	}
	if !math.IsNaN(r.BestScore) && r.BestConfigID != "" {
		score := r.BestScore
		p.BestScore = &score
	}
	if runErr != nil {
		p.Status = "interrupted"
		p.Error = runErr.Error()
	}
	return p
}

// ValidateURL accepts absolute http(s) URLs. {run_id} is substituted at send time.
func ValidateURL(raw string) error {
	u, err := url.Parse(strings.ReplaceAll(raw, "{run_id}", "x"))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}

// Notifier delivers payloads with retries
type Notifier struct {
	httpClient *http.Client
	maxRetries int
	backoff    utils.BackoffStrategy
}

func NewNotifier() *Notifier {
	return &Notifier{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
		backoff:    utils.NewExponentialBackoff(time.Second, 10*time.Second, 2),
	}
}

// WithBackoff replaces the retry delay strategy
func (n *Notifier) WithBackoff(b utils.BackoffStrategy) *Notifier {
	n.backoff = b
	return n
}

// Send posts payload to callbackURL, retrying transport errors and non-2xx
// replies up to maxRetries times. It blocks until delivery or ctx ends.
func (n *Notifier) Send(ctx context.Context, callbackURL, secret string, payload Payload) error {
	finalURL := strings.ReplaceAll(callbackURL, "{run_id}", payload.RunID)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		if attempt > 0 {
			delay := n.backoff.NextDelay(attempt - 1)
			logger.Debug("retrying notification", "callback_url", finalURL, "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = n.post(ctx, finalURL, secret, body)
		if lastErr == nil {
			logger.Info("notification sent", "run_id", payload.RunID, "status", payload.Status)
			return nil
		}
		logger.Warn("notification attempt failed", "callback_url", finalURL, "attempt", attempt+1, "error", lastErr)
	}
	return fmt.Errorf("failed to notify %s after %d attempts: %w", finalURL, n.maxRetries+1, lastErr)
}

func (n *Notifier) post(ctx context.Context, target, secret string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "psweep/1.0")
	if secret != "" {
		req.Header.Set(SecretHeader, secret)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}
