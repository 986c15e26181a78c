package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bananalab/internal/http/handlers"
	httpapi "bananalab/internal/http/httpapi"
	"bananalab/internal/infra"
	"bananalab/internal/infra/credentials"
	"bananalab/internal/provider"
	"bananalab/internal/provider/genai"
	"bananalab/internal/storage"
	"bananalab/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: db connection failed")
	}
	defer pool.Close()
	runner := infra.NewSQLRunner(pool, logger)

	blobs, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure storage")
	}

	geminiAPIKey := strings.TrimSpace(cfg.GeminiAPIKey)
	if geminiAPIKey == "" {
		key, err := credentials.NewStore(runner).GeminiAPIKey(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("api: failed to load gemini api key from store")
		} else {
			geminiAPIKey = key
		}
	}
	geminiClient, err := genai.NewClient(genai.Options{
		APIKey:  geminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure gemini client")
	}

	catalog := provider.NewCatalog()
	engine := provider.NewGoogleProvider(geminiClient, catalog, provider.WithLogger(logger))

	app := &handlers.App{
		SQL:       runner,
		Templates: store.NewTemplateStore(runner),
		Jobs:      store.NewJobStore(runner),
		Blobs:     blobs,
		Catalog:   catalog,
		Engine:    engine,
		Logger:    logger,
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		RateLimit: 60,
		RatePer:   time.Minute,
	})

	server := infra.NewHTTPServer(cfg, ":"+cfg.Port, router)
	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	metricsServer := infra.NewHTTPServer(cfg, ":"+cfg.MetricsPort, promhttp.Handler())
	go func() {
		logger.Info().Msgf("metrics listening on :%s", cfg.MetricsPort)
		if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	_ = metricsServer.Shutdown(shutdownCtx)
	logger.Info().Msg("server stopped")
}
