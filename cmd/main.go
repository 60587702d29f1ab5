package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/Kiptoo96/esports-arena/brackets"
	"github.com/Kiptoo96/esports-arena/config"
	"github.com/Kiptoo96/esports-arena/db"
	"github.com/Kiptoo96/esports-arena/handlers"
	"github.com/Kiptoo96/esports-arena/payments"
	"github.com/Kiptoo96/esports-arena/repositories"
	api "github.com/Kiptoo96/esports-arena/routes"
	"github.com/Kiptoo96/esports-arena/services"
	"github.com/Kiptoo96/esports-arena/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = db.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer redisClient.Close()
		logger.Info("redis connection established")
	} else {
		logger.Info("redis not configured, leaderboard caching disabled")
	}

	uploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2Config{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Cloudflare R2 uploader initialized")

	wsHub := brackets.NewHub(logger)
	go wsHub.Run()
	logger.Info("websocket hub started")

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	disputeRepo := repositories.NewPostgresDisputeRepository(dbConn)
	winnerRepo := repositories.NewPostgresWinnerRepository(dbConn)
	withdrawalRepo := repositories.NewPostgresWithdrawalRepository(dbConn)
	transactor := repositories.NewTransactor(dbConn)
	logger.Info("repositories initialized")

	darajaClient := payments.NewDarajaClient(payments.DarajaConfig{
		ConsumerKey:    cfg.MpesaConsumerKey,
		ConsumerSecret: cfg.MpesaConsumerSecret,
		Shortcode:      cfg.MpesaShortcode,
		Passkey:        cfg.MpesaPasskey,
		BaseURL:        cfg.MpesaBaseURL,
		CallbackURL:    cfg.MpesaCallbackURL,
	})

	authService := services.NewAuthService(userRepo, transactor)
	userService := services.NewUserService(userRepo, transactor, uploader, logger)
	playerService := services.NewPlayerService(playerRepo, tournamentRepo, userRepo, transactor, logger)
	leaderboardService := services.NewLeaderboardService(winnerRepo, redisClient, logger)
	matchService := services.NewMatchService(matchRepo, disputeRepo, transactor, wsHub, uploader, logger)
	bracketService := services.NewBracketService(tournamentRepo, playerRepo, matchRepo, transactor, wsHub, logger)
	tournamentService := services.NewTournamentService(
		tournamentRepo, playerRepo, matchRepo, userRepo, winnerRepo,
		transactor, wsHub, leaderboardService, logger)
	withdrawalService := services.NewWithdrawalService(withdrawalRepo, userRepo, transactor, logger)
	paymentService := services.NewPaymentService(darajaClient, tournamentRepo, playerRepo, playerService, logger)
	logger.Info("services initialized")

	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	userHandler := handlers.NewUserHandler(userService)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService, bracketService, playerService)
	matchHandler := handlers.NewMatchHandler(matchService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	withdrawalHandler := handlers.NewWithdrawalHandler(withdrawalService)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, logger)
	logger.Info("HTTP handlers initialized")

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		authHandler,
		userHandler,
		tournamentHandler,
		matchHandler,
		paymentHandler,
		withdrawalHandler,
		leaderboardHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
