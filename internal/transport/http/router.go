package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"secaware-training-service/internal/app"
)

// Deps are the use cases the router exposes.
type Deps struct {
	Training  *app.TrainingService
	Ranker    *app.Ranker
	Analytics *app.Analytics
	Hub       *app.Hub
	Auth      *Authenticator
}

// NewRouter mounts the REST API and the leaderboard websocket.
func NewRouter(d Deps) http.Handler {
	game := NewGameHandler(d.Training)
	leaderboard := NewLeaderboardHandler(d.Ranker)
	admin := NewAdminHandler(d.Analytics)
	ws := NewWSHandler(d.Ranker, d.Hub)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(d.Auth.Middleware)

		r.Get("/game/{gameType}/items", game.StartSession)
		r.Get("/game/sessions/{sessionId}", game.Progress)
		r.Post("/game/sessions/{sessionId}/answers", game.SubmitAnswer)
		r.Post("/game/sessions/{sessionId}/submit", game.SubmitSession)
		r.Get("/leaderboard", leaderboard.Get)

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(RoleAdmin))
			r.Get("/admin/analytics", admin.Analytics)
			r.Get("/admin/analytics/export", admin.Export)
		})
	})

	r.With(d.Auth.QueryMiddleware).Get("/ws/leaderboard", ws.ServeWS)
	return r
}
