package handler

import (
	"net/http"
	"time"

	"github.com/loftside/swingbridge/internal/httputil"
	"github.com/loftside/swingbridge/internal/svc"
)

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

func HealthCheckHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.OkJSON(w, &HealthResponse{
			Status:    "healthy",
			Version:   svcCtx.Version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}
