package handler

import (
	"net/http"

	"github.com/loftside/swingbridge/internal/httputil"
	"github.com/loftside/swingbridge/internal/store"
	"github.com/loftside/swingbridge/internal/svc"
)

// ActivityListResponse wraps the run audit trail, newest first.
type ActivityListResponse struct {
	Activity []store.ActivityEntry `json:"activity"`
}

func ListActivityHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := httputil.QueryInt(r, "limit", 50)
		entries, err := svcCtx.Store.ListActivity(r.Context(), limit)
		if err != nil {
			httputil.InternalError(w, err.Error())
			return
		}
		if entries == nil {
			entries = []store.ActivityEntry{}
		}
		httputil.OkJSON(w, &ActivityListResponse{Activity: entries})
	}
}
