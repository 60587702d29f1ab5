package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Kiptoo96/esports-arena/handlers"
	"github.com/Kiptoo96/esports-arena/middleware"
	"github.com/Kiptoo96/esports-arena/models"
)

// SetupRoutes wires every HTTP endpoint onto the router. Public routes come
// first; everything touching money or match results sits behind the JWT
// middleware, and the admin surface additionally behind the role check.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	tournamentHandler *handlers.TournamentHandler,
	matchHandler *handlers.MatchHandler,
	paymentHandler *handlers.PaymentHandler,
	withdrawalHandler *handlers.WithdrawalHandler,
	leaderboardHandler *handlers.LeaderboardHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate([]byte(jwtSecret))
	adminOnly := middleware.Authorize(models.RoleAdmin)

	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)

	// Daraja posts payment results here; no auth, the checkout request ID
	// is the correlation token.
	router.Post("/payments/callback", paymentHandler.Callback)

	router.Route("/users", func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/me", userHandler.GetMe)
		r.Post("/me/games", userHandler.ToggleGame)
		r.Post("/me/photo", userHandler.UploadProfilePhoto)
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.List)
		r.Get("/{tournamentID}", tournamentHandler.Get)
		r.Get("/{tournamentID}/players", tournamentHandler.ListPlayers)
		r.Get("/{tournamentID}/matches", matchHandler.ListByTournament)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/{tournamentID}/join", paymentHandler.InitiateEntryPayment)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)
			r.Post("/", tournamentHandler.Create)
			r.Post("/{tournamentID}/bracket", tournamentHandler.GenerateBracket)
			r.Post("/{tournamentID}/complete", tournamentHandler.Complete)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", matchHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/{matchID}/score/propose", matchHandler.ProposeScore)
			r.Post("/{matchID}/score/confirm", matchHandler.ConfirmScore)
			r.Post("/{matchID}/stats/propose", matchHandler.ProposeStats)
			r.Post("/{matchID}/stats/confirm", matchHandler.ConfirmStats)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)
			r.Put("/{matchID}/score", matchHandler.UpdateScore)
			r.Put("/{matchID}/stats", matchHandler.UpdateStats)
		})
	})

	router.Route("/disputes", func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/{disputeID}", matchHandler.GetDispute)
		r.Post("/{disputeID}/evidence", matchHandler.UploadDisputeEvidence)

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Get("/", matchHandler.ListDisputes)
			r.Post("/{disputeID}/resolve", matchHandler.ResolveDispute)
		})
	})

	router.Route("/withdrawals", func(r chi.Router) {
		r.Use(authenticate)
		r.Post("/", withdrawalHandler.Request)
		r.Get("/", withdrawalHandler.ListMine)

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Get("/pending", withdrawalHandler.ListPending)
			r.Post("/{withdrawalID}/approve", withdrawalHandler.Approve)
			r.Post("/{withdrawalID}/reject", withdrawalHandler.Reject)
		})
	})

	router.Route("/leaderboard", func(r chi.Router) {
		r.Get("/winners", leaderboardHandler.RecentWinners)
		r.Get("/top", leaderboardHandler.TopEarners)
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
