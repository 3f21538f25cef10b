package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/wordchain-backend/internal/dispatch"
	"github.com/DoyleJ11/wordchain-backend/internal/hub"
	"github.com/DoyleJ11/wordchain-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, d *dispatch.Dispatcher, matches MatchLister, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz(h))
	r.Get("/rooms/{code}", GetRoom(h, logger))
	r.Get("/matches", RecentMatches(matches, logger))
	r.Get("/ws", ws.Handler(d, logger))
	return r
}
