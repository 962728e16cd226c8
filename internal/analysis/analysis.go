// Package analysis hands finished swing exports to the scoring service.
package analysis

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
	"github.com/loftside/swingbridge/internal/logging"
)

const userAgent = "swingbridge/0.1.0"

// Submission describes one processed swing job ready for scoring.
type Submission struct {
	PlayerID       string `json:"playerId,omitempty"`
	PlayerName     string `json:"playerName,omitempty"`
	RemotePlayerID string `json:"remotePlayerId,omitempty"`
	JobID          string `json:"jobId"`
	CSVURL         string `json:"csvUrl,omitempty"`
	ReplayURL      string `json:"replayUrl,omitempty"`
}

// Scores is the scoring service's verdict for one submission.
type Scores struct {
	JobID     string             `json:"jobId,omitempty"`
	Summary   string             `json:"summary,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	ReportURL string             `json:"reportUrl,omitempty"`
}

// Service scores processed swing data.
type Service interface {
	Submit(ctx context.Context, sub Submission) (*Scores, error)
}

// New builds a scoring client when a base URL is configured. Without one,
// a noop implementation is returned and submissions are skipped.
func New(cfg config.AnalysisConfig) Service {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpService{
		baseURL: base,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type httpService struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func (s *httpService) Submit(ctx context.Context, sub Submission) (*Scores, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/swings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build submission request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("X-API-Key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit swing data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("analysis service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read analysis response: %w", err)
	}
	scores := &Scores{JobID: sub.JobID}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, scores); err != nil {
			return nil, fmt.Errorf("decode analysis response: %w", err)
		}
	}
	return scores, nil
}

type noopService struct{}

func (noopService) Submit(_ context.Context, sub Submission) (*Scores, error) {
	logging.Debugf("analysis: no service configured, skipping job %s", sub.JobID)
	return nil, nil
}
