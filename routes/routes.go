package routes

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/season-engine/handlers"
	"github.com/Dosada05/season-engine/middleware"
	"github.com/Dosada05/season-engine/repositories"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
)

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
	Games          repositories.GameRepository
	Logger         *slog.Logger
}

func SetupRoutes(router chi.Router, opts Options, gameHandler *handlers.GameHandler, wsHandler *handlers.WebSocketHandler) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	authenticate := middleware.Authenticate(opts.JWTSecret, opts.Logger)
	owner := middleware.RequireGameOwner(opts.Games, opts.Logger)

	router.Route("/games/{gameID}", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(owner)

		r.Post("/advance", gameHandler.AdvanceHandler)
		r.Put("/lineup", gameHandler.SelectLineupHandler)
		r.Get("/promotions", gameHandler.PromotionsHandler)
		r.Post("/season/transition", gameHandler.SeasonTransitionHandler)

		r.Route("/competitions/{competitionID}", func(r chi.Router) {
			r.Get("/standings", gameHandler.StandingsHandler)
			r.Post("/standings/rebuild", gameHandler.RebuildStandingsHandler)
			r.Get("/ties", gameHandler.TiesHandler)
			r.Post("/draw", gameHandler.DrawHandler)
		})
	})

	// Браузер не умеет слать заголовки при апгрейде, токен идёт в ?jwt=
	router.With(authenticate, owner).Get("/ws/games/{gameID}", wsHandler.ServeWs)
}
