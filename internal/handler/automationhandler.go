package handler

import (
	"net/http"
	"strconv"

	"github.com/loftside/swingbridge/internal/httputil"
	"github.com/loftside/swingbridge/internal/pipeline"
	"github.com/loftside/swingbridge/internal/svc"
)

// AcceptedResponse is returned for detached runs.
type AcceptedResponse struct {
	RunID  string `json:"runId"`
	Status string `json:"status"`
}

// AutomationHandler executes an automation request. By default the run is
// synchronous and the response body is the full run result; pass ?async=true
// to detach, in which case the outcome is delivered via the request's
// callback URL and the activity log.
func AutomationHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pipeline.Request
		if err := httputil.Decode(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		async, _ := strconv.ParseBool(httputil.QueryString(r, "async", "false"))
		if async {
			runID := svcCtx.Pipeline.RunAsync(req)
			httputil.WriteJSON(w, http.StatusAccepted, &AcceptedResponse{
				RunID:  runID,
				Status: "accepted",
			})
			return
		}

		httputil.OkJSON(w, svcCtx.Pipeline.Run(r.Context(), req))
	}
}
