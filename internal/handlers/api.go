// internal/handlers/api.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jason-s-yu/dartkeeper/internal/game"
	"github.com/jason-s-yu/dartkeeper/internal/middleware"
	"github.com/sirupsen/logrus"
)

// API serves the local rendering layer: REST endpoints for every user action
// and a WebSocket feed of session views.
type API struct {
	Sessions *game.SessionStore
	Hub      *Hub
	Logger   *logrus.Logger

	// AllowedOrigins for browser clients; empty allows any http(s) origin.
	AllowedOrigins []string
}

// NewAPI wires a hub into sessions so every committed change reaches the feed.
func NewAPI(sessions *game.SessionStore, logger *logrus.Logger) *API {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	hub := NewHub(logger)
	sessions.BroadcastFn = hub.Broadcast
	return &API{Sessions: sessions, Hub: hub, Logger: logger}
}

// Router builds the HTTP handler.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Heartbeat("/ping"))
	r.Use(middleware.LogMiddleware(a.Logger))

	origins := a.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"https://*", "http://*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/ws", a.Hub.ServeWS(a.Sessions))

	r.Get("/state", a.GetState)
	r.Delete("/state", a.ClearState)
	r.Get("/game-types", a.GetGameTypes)

	r.Route("/players", func(pr chi.Router) {
		pr.Post("/", a.RegisterPlayer)
		pr.Delete("/{id}", a.DeletePlayer)
	})

	r.Route("/match", func(mr chi.Router) {
		mr.Post("/", a.CreateMatch)
		mr.Post("/start", a.StartMatch)
		mr.Post("/exit", a.ExitMatch)
		mr.Post("/abandon", a.AbandonMatch)

		mr.Post("/players/{id}", a.EnrollPlayer)
		mr.Delete("/players/{id}", a.UnenrollPlayer)
		mr.Get("/players/{id}/turn", a.IsCurrentPlayer)

		mr.Post("/darts", a.RecordDart)
		mr.Post("/miss", a.RecordMiss)
		mr.Post("/quick", a.RecordQuickPoints)
		mr.Post("/multiplier", a.SelectMultiplier)
		mr.Post("/turn/reset", a.ResetTurn)
		mr.Post("/points", a.SubmitPoints)
	})

	r.Post("/history/{id}/resume", a.ResumeMatch)

	r.Get("/rules", a.GetRules)
	r.Post("/rules", a.UpdateRules)

	return r
}
