package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pixelsmith/pixelsmith/internal/account"
	"github.com/pixelsmith/pixelsmith/internal/app"
	"github.com/pixelsmith/pixelsmith/internal/auth"
	"github.com/pixelsmith/pixelsmith/internal/generation"
	"github.com/pixelsmith/pixelsmith/internal/imagegen"
	"github.com/pixelsmith/pixelsmith/internal/mediastore"
	"github.com/pixelsmith/pixelsmith/internal/observability"
	"github.com/pixelsmith/pixelsmith/internal/platform/cache"
	"github.com/pixelsmith/pixelsmith/internal/platform/db"
	"github.com/pixelsmith/pixelsmith/migrations"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if err := db.Migrate(ctx, dbpool, migrations.Files); err != nil {
		logger.Error("apply migrations", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, history cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	hasher := auth.NewPasswordHasher(0)
	issuer := auth.NewTokenIssuer(cfg.JWTSecret)
	userStore := auth.NewUserStore(dbpool)
	sessionStore := auth.NewSessionStore(dbpool)
	authService := auth.NewService(userStore, sessionStore, hasher, issuer, cfg.TokenTTL)
	authenticator := auth.NewAuthenticator(issuer, authService)
	authHandler := auth.NewHandler(logger, authService, authenticator, metrics, cfg.TokenTTL, cfg.IsProduction())
	accountHandler := account.NewHandler(logger, authService, authenticator)

	var provider imagegen.Client
	switch cfg.ImageProvider {
	case "openai":
		provider = imagegen.NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey)
	default:
		provider = imagegen.NewHuggingFaceClient(cfg.HFBaseURL, cfg.HFAPIKey)
	}
	uploader := mediastore.NewCloudinaryClient(cfg.CloudinaryBaseURL, cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)

	generationRepo := generation.NewRepository(dbpool)
	historyCache := generation.NewCache(redisClient, cfg.HistoryCacheTTL)
	generationService := generation.NewService(generationRepo, provider, uploader, historyCache, metrics, logger)
	generationHandler := generation.NewHandler(logger, generationService, authenticator)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		AuthHandler:       authHandler,
		AccountHandler:    accountHandler,
		GenerationHandler: generationHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
