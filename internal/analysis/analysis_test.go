package analysis_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/loftside/swingbridge/internal/analysis"
	"github.com/loftside/swingbridge/internal/config"
	"github.com/loftside/swingbridge/internal/logging"
)

func init() {
	logging.Disable()
}

func TestNewReturnsNoopWhenUnconfigured(t *testing.T) {
	svc := analysis.New(config.AnalysisConfig{})
	scores, err := svc.Submit(context.Background(), analysis.Submission{JobID: "job-1"})
	if err != nil {
		t.Fatalf("noop service must not error: %v", err)
	}
	if scores != nil {
		t.Fatalf("noop service must not fabricate scores, got %+v", scores)
	}
}

func TestSubmit(t *testing.T) {
	var captured struct {
		method string
		path   string
		apiKey string
		body   analysis.Submission
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.apiKey = r.Header.Get("X-API-Key")
		if err := json.NewDecoder(r.Body).Decode(&captured.body); err != nil {
			t.Fatalf("decode submission: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jobId":"job-777","summary":"solid contact","metrics":{"attackAngle":11.5,"batSpeed":71.2}}`))
	}))
	defer server.Close()

	svc := analysis.New(config.AnalysisConfig{BaseURL: server.URL, APIKey: "an-key", TimeoutSeconds: 5})
	scores, err := svc.Submit(context.Background(), analysis.Submission{
		PlayerName:     "Jordan Alvarez",
		RemotePlayerID: "abc-123",
		JobID:          "job-777",
		CSVURL:         "https://dash.example/exports/job-777.csv",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if captured.method != http.MethodPost || captured.path != "/v1/swings" {
		t.Errorf("unexpected request %s %s", captured.method, captured.path)
	}
	if captured.apiKey != "an-key" {
		t.Errorf("expected api key header, got %q", captured.apiKey)
	}
	if captured.body.CSVURL != "https://dash.example/exports/job-777.csv" {
		t.Errorf("unexpected submission body: %+v", captured.body)
	}
	if scores.Summary != "solid contact" || scores.Metrics["batSpeed"] != 71.2 {
		t.Errorf("unexpected scores: %+v", scores)
	}
}

func TestSubmitEmptyBodyKeepsJobID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	svc := analysis.New(config.AnalysisConfig{BaseURL: server.URL})
	scores, err := svc.Submit(context.Background(), analysis.Submission{JobID: "job-9"})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if scores == nil || scores.JobID != "job-9" {
		t.Errorf("expected placeholder scores for job-9, got %+v", scores)
	}
}

func TestSubmitServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model offline", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	svc := analysis.New(config.AnalysisConfig{BaseURL: server.URL})
	_, err := svc.Submit(context.Background(), analysis.Submission{JobID: "job-1"})
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected status error, got %v", err)
	}
	if !strings.Contains(err.Error(), "model offline") {
		t.Errorf("error should carry the response detail: %v", err)
	}
}
