// Package notify delivers run outcomes to caller-supplied webhooks.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/loftside/swingbridge/internal/config"
)

const userAgent = "swingbridge/0.1.0"

// Event is the completion payload posted to a run's callback URL.
type Event struct {
	RunID     string         `json:"runId"`
	Action    string         `json:"action"`
	Success   bool           `json:"success"`
	Message   string         `json:"message,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	ReplayURL string         `json:"replayUrl,omitempty"`
	SentAt    time.Time      `json:"sentAt"`
}

// Notifier sends a run's outcome to the given callback. Implementations
// treat an empty callback URL as "nobody to tell" and return nil.
type Notifier interface {
	Send(ctx context.Context, callbackURL string, event Event) error
}

// NewWebhook builds the HTTP notifier used in production.
func NewWebhook(cfg config.NotifyConfig) Notifier {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &webhook{client: &http.Client{Timeout: timeout}}
}

type webhook struct {
	client *http.Client
}

func (w *webhook) Send(ctx context.Context, callbackURL string, event Event) error {
	callbackURL = strings.TrimSpace(callbackURL)
	if callbackURL == "" {
		return nil
	}
	if event.SentAt.IsZero() {
		event.SentAt = time.Now()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("callback returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
