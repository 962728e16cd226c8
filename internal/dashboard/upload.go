package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/loftside/swingbridge/internal/logging"
	"github.com/loftside/swingbridge/internal/page"
)

// ProcessingStatus is a processing job's terminal or in-flight state.
type ProcessingStatus string

const (
	StatusUploading  ProcessingStatus = "uploading"
	StatusProcessing ProcessingStatus = "processing"
	StatusComplete   ProcessingStatus = "complete"
	StatusFailed     ProcessingStatus = "failed"
	StatusTimedOut   ProcessingStatus = "timed_out"
)

// UploadOutcome reports one video upload attempt. Completed is false both
// when the completion marker never appeared and when the post-upload URL
// carried no job id; Message distinguishes them.
type UploadOutcome struct {
	Completed bool   `json:"completed"`
	JobID     string `json:"jobId,omitempty"`
	Message   string `json:"message"`
}

// ProcessingOutcome reports the bounded status poll. TimedOut is distinct
// from Failed: a timed-out job may still complete out-of-band.
type ProcessingOutcome struct {
	Status   ProcessingStatus `json:"status"`
	Attempts int              `json:"attempts"`
	Message  string           `json:"message"`
}

// UploadVideo pushes a source video into the player's upload page. The
// video is fetched inside the page into a Blob and injected into the file
// input, since the dashboard has no upload API to call directly.
func (d *Dashboard) UploadVideo(ctx context.Context, remoteID, videoURL string) (UploadOutcome, error) {
	uploadURL := d.url(fmt.Sprintf("%s/%s/upload", athletesPath, remoteID))
	if err := d.browser.Navigate(ctx, uploadURL, page.NavigateOptions{}); err != nil {
		return UploadOutcome{}, fmt.Errorf("open upload page: %w", err)
	}

	fileSelector, ok := d.firstMatchWait(ctx, fileInputSelectors, d.formWait)
	if !ok {
		return UploadOutcome{Message: "Upload input never rendered"}, nil
	}

	var injected bool
	err := d.browser.EvaluateInto(scriptInjectVideo(fileSelector, videoURL), &injected)
	if err != nil {
		var evalErr *page.EvalError
		if errors.As(err, &evalErr) {
			// Fetch failures (expired video URL, dashboard CSP) throw in
			// the page; that is an upload failure, not a transport fault.
			return UploadOutcome{Message: "Video injection failed: " + evalErr.Detail}, nil
		}
		return UploadOutcome{}, fmt.Errorf("inject video: %w", err)
	}
	if !injected {
		return UploadOutcome{Message: "Upload input disappeared before injection"}, nil
	}
	logging.Infof("dashboard: video staged for athlete %s, waiting for completion marker", remoteID)

	if !d.browser.WaitFor(ctx, uploadCompleteMarker, d.uploadWait) {
		return UploadOutcome{Message: fmt.Sprintf("Upload completion marker not seen within %s", d.uploadWait)}, nil
	}

	jobID, ok := d.waitURLPattern(ctx, jobIDPattern, d.formWait)
	if !ok {
		return UploadOutcome{Message: "Upload completed but no processing job id in URL"}, nil
	}
	return UploadOutcome{Completed: true, JobID: jobID, Message: "Upload complete"}, nil
}

// WaitForProcessing polls the job's status element until a terminal state
// or the attempt bound. At most pollAttempts reads spaced pollInterval
// apart; the poll never navigates away once the detail page is open.
func (d *Dashboard) WaitForProcessing(ctx context.Context, jobID string) (ProcessingOutcome, error) {
	jobURL := d.url("/sessions/" + jobID)
	if err := d.browser.Navigate(ctx, jobURL, page.NavigateOptions{}); err != nil {
		return ProcessingOutcome{Status: StatusProcessing}, fmt.Errorf("open job page: %w", err)
	}

	for attempt := 1; attempt <= d.pollAttempts; attempt++ {
		text, found, err := d.browser.Text(statusSelector)
		if err == nil && found {
			status := strings.ToLower(text)
			switch {
			case strings.Contains(status, "complete") || strings.Contains(status, "processed"):
				logging.Infof("dashboard: job %s complete on attempt %d", jobID, attempt)
				return ProcessingOutcome{
					Status:   StatusComplete,
					Attempts: attempt,
					Message:  fmt.Sprintf("Processing complete after %d checks", attempt),
				}, nil
			case strings.Contains(status, "failed") || strings.Contains(status, "error"):
				return ProcessingOutcome{
					Status:   StatusFailed,
					Attempts: attempt,
					Message:  "Dashboard reported processing failure: " + strings.TrimSpace(text),
				}, nil
			}
		}
		if attempt < d.pollAttempts {
			if err := d.browser.Sleep(ctx, d.pollInterval); err != nil {
				return ProcessingOutcome{Status: StatusProcessing, Attempts: attempt}, err
			}
		}
	}
	return ProcessingOutcome{
		Status:   StatusTimedOut,
		Attempts: d.pollAttempts,
		Message:  fmt.Sprintf("Processing status poll timed out after %d attempts", d.pollAttempts),
	}, nil
}

// ExportCSV drives the dashboard's export UI for a finished job and
// returns the produced download reference.
func (d *Dashboard) ExportCSV(ctx context.Context, jobID string) (string, error) {
	if err := d.browser.Navigate(ctx, d.url("/sessions/"+jobID), page.NavigateOptions{}); err != nil {
		return "", fmt.Errorf("open job page: %w", err)
	}

	exportButton, ok := d.browser.FirstMatch(exportSelectors...)
	if !ok {
		return "", fmt.Errorf("%w: export control not found for job %s", ErrNoExport, jobID)
	}
	if err := d.browser.Click(exportButton); err != nil {
		return "", fmt.Errorf("open export menu: %w", err)
	}
	if err := d.browser.Sleep(ctx, time.Second); err != nil {
		return "", err
	}

	if option, ok := d.browser.FirstMatch(csvOptionSelectors...); ok {
		if err := d.browser.Click(option); err != nil {
			return "", fmt.Errorf("select csv format: %w", err)
		}
		if err := d.browser.Sleep(ctx, time.Second); err != nil {
			return "", err
		}
	}

	var ref *string
	if err := d.browser.EvaluateInto(scriptDownloadReference(), &ref); err != nil {
		return "", fmt.Errorf("read download reference: %w", err)
	}
	if ref == nil || *ref == "" {
		return "", fmt.Errorf("%w: export produced no link for job %s", ErrNoExport, jobID)
	}
	return *ref, nil
}
