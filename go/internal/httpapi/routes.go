package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mcdev12/draftroom/go/internal/draft/session"
	"github.com/mcdev12/draftroom/go/internal/models"
)

// NewRouter builds the API. mounts register extra routes (the websocket gateway) on the root.
func NewRouter(h *Handler, mounts ...func(chi.Router)) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Healthz)

	r.Route("/api", func(r chi.Router) {
		r.Use(identify)

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", h.ListRooms)
			r.Post("/", h.CreateRoom)

			r.Route("/{roomID}", func(r chi.Router) {
				r.Get("/", h.GetRoom)
				h.sessionRoutes(r)
			})
		})

		// the session without a room
		r.Route("/session", h.sessionRoutes)
	})

	for _, mount := range mounts {
		mount(r)
	}
	return r
}

func (h *Handler) sessionRoutes(r chi.Router) {
	r.Get("/teams", h.ListTeams)
	r.Get("/players", h.ListPlayers)
	r.Get("/status", h.GetStatus)
	r.Get("/dashboard", h.GetDashboard)

	r.Route("/draft", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(requireRole(models.UserRoleAuctioneer))
			r.Post("/start", h.draftOp((*session.Coordinator).Start))
			r.Post("/pause", h.draftOp((*session.Coordinator).Pause))
			r.Post("/advance", h.draftOp((*session.Coordinator).Advance))
			r.Post("/end", h.draftOp((*session.Coordinator).End))
		})
		r.Group(func(r chi.Router) {
			r.Use(requireRole(models.UserRoleTeamOwner))
			r.Post("/selections", h.SelectPlayer)
			r.Post("/pass", h.PassTurn)
		})
	})
}
