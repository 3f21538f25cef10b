package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/wordchain-backend/internal/hub"
	"github.com/DoyleJ11/wordchain-backend/internal/lobby"
	"github.com/DoyleJ11/wordchain-backend/internal/store"
	"github.com/DoyleJ11/wordchain-backend/internal/types"
)

type healthResponse struct {
	Status string `json:"status"`
	Rooms  int    `json:"rooms"`
}

type roomResponse struct {
	RoomID    string           `json:"roomId"`
	Version   int              `json:"version"`
	GameState *types.GameState `json:"gameState"`
}

const (
	defaultMatchLimit = 20
	maxMatchLimit     = 100
)

// MatchLister reads back recorded results.
type MatchLister interface {
	Recent(ctx context.Context, limit int) ([]store.Match, error)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func Healthz(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Rooms: h.Count()})
	}
}

// GetRoom reports the live session of one room.
func GetRoom(h *hub.Hub, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.ToUpper(chi.URLParam(r, "code"))

		lb := h.Get(code)
		if lb == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		v, err := lb.View()
		if errors.Is(err, lobby.ErrClosed) || (err == nil && v.Closed) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.Error("room view", zap.String("room", code), zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, roomResponse{
			RoomID:    v.Code,
			Version:   v.Version,
			GameState: types.NewGameState(v.State),
		})
	}
}

// RecentMatches lists finished games, newest first. ?limit= caps the result.
func RecentMatches(matches MatchLister, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultMatchLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = min(n, maxMatchLimit)
		}

		list, err := matches.Recent(r.Context(), limit)
		if err != nil {
			logger.Error("listing matches", zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []store.Match{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}
