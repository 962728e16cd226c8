package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/loftside/swingbridge/internal/httputil"
	"github.com/loftside/swingbridge/internal/store"
	"github.com/loftside/swingbridge/internal/svc"
)

// PlayerListResponse wraps the known player roster.
type PlayerListResponse struct {
	Players []store.Player `json:"players"`
}

func ListPlayersHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players, err := svcCtx.Store.ListPlayers(r.Context())
		if err != nil {
			httputil.InternalError(w, err.Error())
			return
		}
		if players == nil {
			players = []store.Player{}
		}
		httputil.OkJSON(w, &PlayerListResponse{Players: players})
	}
}

func GetPlayerHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		player, err := svcCtx.Store.GetPlayer(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				httputil.NotFound(w, "player not found")
				return
			}
			httputil.InternalError(w, err.Error())
			return
		}
		httputil.OkJSON(w, player)
	}
}
