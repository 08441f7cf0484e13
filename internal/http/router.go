package httpx

import (
	"log/slog"
	"net/http"

	"github.com/HarpithaAakula/Dev-Collab/internal/app"
	"github.com/HarpithaAakula/Dev-Collab/internal/gamify"
	"github.com/HarpithaAakula/Dev-Collab/internal/store"
	"github.com/HarpithaAakula/Dev-Collab/internal/ws"
	"github.com/HarpithaAakula/Dev-Collab/pkg/auth"
	"github.com/HarpithaAakula/Dev-Collab/pkg/metrics"
)

// NewRouter wires up all HTTP routes, middleware, and handlers
func NewRouter(cfg app.Config, logger *slog.Logger, hub *ws.Hub, db *store.Postgres, engine *gamify.Engine, met *metrics.Set) http.Handler {
	mw := NewMiddleware(cfg)
	j := auth.New(cfg.JWTSecret)

	authAPI := &AuthAPI{DB: db, JWT: j}
	problems := &ProblemsAPI{DB: db, Hub: hub, Engine: engine, Log: logger}
	chat := &ChatAPI{DB: db, Hub: hub, Engine: engine, Log: logger}
	notifs := &NotificationsAPI{DB: db}
	game := &GamificationAPI{DB: db}

	mux := http.NewServeMux()

	// Health / readiness / metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) })
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			http.Error(w, "db down", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})
	mux.Handle("/metrics", met.Handler())

	// WebSocket endpoint (identity via ?token=, anonymous allowed)
	mux.HandleFunc("/ws", hub.ServeWS)

	// Stats
	mux.HandleFunc("GET /api/stats", func(w http.ResponseWriter, _ *http.Request) {
		rooms, participants := hub.Stats()
		writeJSON(w, map[string]any{"activeRooms": rooms, "participants": participants})
	})

	// Auth endpoints
	mux.HandleFunc("POST /api/users", authAPI.Register)
	mux.HandleFunc("POST /api/users/login", authAPI.Login)
	mux.Handle("GET /api/users/me", mw.Auth(http.HandlerFunc(authAPI.Me)))

	// Problems (list/get/search public, mutations JWT-protected)
	mux.HandleFunc("GET /api/problems", problems.List)
	mux.HandleFunc("GET /api/problems/search", problems.Search)
	mux.HandleFunc("GET /api/problems/{id}", problems.Get)
	mux.Handle("POST /api/problems", mw.Auth(http.HandlerFunc(problems.Create)))
	mux.Handle("POST /api/problems/{id}/solutions", mw.Auth(http.HandlerFunc(problems.AddSolution)))
	mux.Handle("POST /api/problems/{id}/solutions/{sid}/vote", mw.Auth(http.HandlerFunc(problems.Vote)))
	mux.Handle("POST /api/problems/{id}/solutions/{sid}/accept", mw.Auth(http.HandlerFunc(problems.Accept)))

	// Chat
	mux.Handle("POST /api/chat/{problemId}", mw.Auth(http.HandlerFunc(chat.Send)))
	mux.Handle("GET /api/chat/{problemId}", mw.Auth(http.HandlerFunc(chat.List)))

	// Notifications
	mux.Handle("GET /api/notifications", mw.Auth(http.HandlerFunc(notifs.List)))
	mux.Handle("PUT /api/notifications/read-all", mw.Auth(http.HandlerFunc(notifs.MarkAllRead)))
	mux.Handle("PUT /api/notifications/{id}/read", mw.Auth(http.HandlerFunc(notifs.MarkRead)))
	mux.Handle("DELETE /api/notifications/{id}", mw.Auth(http.HandlerFunc(notifs.Delete)))

	// Gamification
	mux.HandleFunc("GET /api/gamification/leaderboard", game.Leaderboard)
	mux.HandleFunc("GET /api/gamification/badges", game.Badges)
	mux.Handle("GET /api/gamification/status", mw.Auth(http.HandlerFunc(game.Status)))

	// CORS + rate limit applied globally
	return mw.Wrap(mux)
}
