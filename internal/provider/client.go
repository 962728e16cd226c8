package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/loftside/swingbridge/internal/config"
	"github.com/loftside/swingbridge/internal/logging"
)

// ErrProvisioning marks failures to lease a usable remote browser.
var ErrProvisioning = errors.New("browser provisioning failed")

// SessionStatus is the provider-side lifecycle state of a leased browser.
type SessionStatus string

const (
	StatusRunning   SessionStatus = "RUNNING"
	StatusCompleted SessionStatus = "COMPLETED"
	StatusError     SessionStatus = "ERROR"
	StatusTimedOut  SessionStatus = "TIMED_OUT"
)

// Session is one leased remote browser instance. A session is owned by a
// single pipeline run and released exactly once.
type Session struct {
	ID         string        `json:"id"`
	Status     SessionStatus `json:"status"`
	ConnectURL string        `json:"connectUrl"`
	ReplayURL  string        `json:"replayUrl,omitempty"`
	Region     string        `json:"region,omitempty"`
	CreatedAt  time.Time     `json:"createdAt,omitempty"`
	ExpiresAt  time.Time     `json:"expiresAt,omitempty"`

	released atomic.Bool
}

// Client talks to the cloud browser provider's session API.
type Client struct {
	baseURL   string
	apiKey    string
	projectID string
	region    string
	keepAlive int
	browser   string
	device    string
	os        string

	http *http.Client
}

// NewClient builds a provider client from configuration.
func NewClient(cfg config.ProviderConfig) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		projectID: cfg.ProjectID,
		region:    cfg.Region,
		keepAlive: cfg.KeepAliveSeconds,
		browser:   cfg.Browser,
		device:    cfg.Device,
		os:        cfg.OS,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

type createSessionRequest struct {
	ProjectID   string      `json:"projectId,omitempty"`
	Region      string      `json:"region,omitempty"`
	Timeout     int         `json:"timeout,omitempty"`
	Fingerprint fingerprint `json:"fingerprint"`
}

type fingerprint struct {
	Browsers         []string `json:"browsers"`
	Devices          []string `json:"devices"`
	OperatingSystems []string `json:"operatingSystems"`
}

// Acquire leases a fresh browser session. It fails fast when the provider
// does not return a usable transport endpoint.
func (c *Client) Acquire(ctx context.Context) (*Session, error) {
	body, err := json.Marshal(createSessionRequest{
		ProjectID: c.projectID,
		Region:    c.region,
		Timeout:   c.keepAlive,
		Fingerprint: fingerprint{
			Browsers:         []string{c.browser},
			Devices:          []string{c.device},
			OperatingSystems: []string{c.os},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrProvisioning, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvisioning, err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvisioning, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: provider returned %d: %s", ErrProvisioning, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var sess Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrProvisioning, err)
	}
	if sess.ConnectURL == "" {
		return nil, fmt.Errorf("%w: no connectUrl in response", ErrProvisioning)
	}
	if sess.ReplayURL == "" && sess.ID != "" {
		sess.ReplayURL = c.baseURL + "/sessions/" + sess.ID
	}
	logging.Infof("provider: leased session %s (%s)", sess.ID, sess.Region)
	return &sess, nil
}

// Release returns the session to the provider. It is idempotent and
// swallows provider-side errors after logging them, so a failed release
// never masks the pipeline's real outcome.
func (c *Client) Release(ctx context.Context, sess *Session) {
	if sess == nil || sess.ID == "" {
		return
	}
	if !sess.released.CompareAndSwap(false, true) {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/v1/sessions/"+sess.ID, nil)
	if err != nil {
		logging.Warnf("provider: release %s: %v", sess.ID, err)
		return
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		logging.Warnf("provider: release %s: %v", sess.ID, err)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logging.Warnf("provider: release %s: provider returned %d", sess.ID, resp.StatusCode)
		return
	}
	logging.Infof("provider: released session %s", sess.ID)
}

// Health probes the provider API, for the doctor command.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/health", nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("provider unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("provider unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
}
