package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/omnipushdigital/smartretail/internal/config"
	"github.com/omnipushdigital/smartretail/internal/database"
	"github.com/omnipushdigital/smartretail/internal/events"
	"github.com/omnipushdigital/smartretail/internal/handler"
	"github.com/omnipushdigital/smartretail/internal/jobs"
	"github.com/omnipushdigital/smartretail/internal/middleware"
	"github.com/omnipushdigital/smartretail/internal/redis"
	"github.com/omnipushdigital/smartretail/internal/repository"
	"github.com/omnipushdigital/smartretail/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("ENVIRONMENT") == "production"
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()

	if err := db.Migrate(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	deviceRepo := repository.NewDeviceRepository(db.DB)
	roleRepo := repository.NewRoleRepository(db.DB)
	publicationRepo := repository.NewPublicationRepository(db.DB)
	contentRepo := repository.NewContentRepository(db.DB)
	heartbeatRepo := repository.NewHeartbeatRepository(db.DB)

	broker := events.NewBroker(redisClient)
	defer broker.Close()

	signer := service.NewURLSigner(cfg.URLSigningSecret, cfg.AssetBaseURL, cfg.SignedURLTTL())
	resolver := service.NewResolverService(publicationRepo)
	manifestService := service.NewManifestService(
		resolver, contentRepo, signer, cfg.PollSeconds, cfg.StandbyPollSeconds,
	)
	pairingService := service.NewPairingService(deviceRepo, roleRepo, cfg.TenantID, cfg.PairingTTL())
	heartbeatService := service.NewHeartbeatService(heartbeatRepo, deviceRepo, redisClient, broker, cfg.OnlineWindow())
	publishService := service.NewPublishService(db, broker)

	deviceAuthMiddleware := middleware.NewDeviceAuthMiddleware(deviceRepo)
	adminAuthMiddleware := middleware.NewAdminAuthMiddleware(cfg.AdminAPIToken, cfg.AdminPasswordHash)
	rateLimitMiddleware := middleware.NewRedisRateLimitMiddleware(redisClient.Client)
	pairingRateLimitMiddleware := middleware.NewIPRateLimitMiddleware(
		service.NewRateLimiter(redisClient.Client),
		config.PairingClaimLimitPerWindow, config.PairingClaimWindow, "pairing",
	)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)

	pairingHandler := handler.NewPairingHandler(pairingService, broker)
	playerHandler := handler.NewPlayerHandler(manifestService, heartbeatService)
	assetsHandler := handler.NewAssetsHandler(contentRepo, signer, cfg.MediaRoot)
	adminHandler := handler.NewAdminHandler(
		publishService, heartbeatService, deviceRepo, broker, cfg.TenantID,
	)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)
	r.Use(securityHeadersMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/api/pairing", func(r chi.Router) {
		r.Use(pairingRateLimitMiddleware.Handler)
		r.Post("/", pairingHandler.Pair)
	})

	r.Route("/api/player", func(r chi.Router) {
		r.Use(deviceAuthMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)
		r.Post("/manifest", playerHandler.Manifest)
		r.Post("/heartbeat", playerHandler.Heartbeat)
	})

	r.Get("/assets/{mediaID}", assetsHandler.Serve)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(adminAuthMiddleware.Handler)
		r.Post("/publish", adminHandler.Publish)
		r.Get("/devices", adminHandler.Devices)
		r.Post("/devices/{deviceID}/deactivate", adminHandler.DeactivateDevice)
		r.Get("/events", adminHandler.Events)
	})

	cleanupJob := jobs.NewCleanupJob(
		deviceRepo, heartbeatRepo, cfg.HeartbeatRetention(), config.CleanupJobInterval,
	)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
