package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bananalab/internal/batch"
	"bananalab/internal/domain"
	"bananalab/internal/infra"
	"bananalab/internal/infra/credentials"
	"bananalab/internal/provider"
	"bananalab/internal/provider/genai"
	"bananalab/internal/storage"
	"bananalab/internal/store"
)

const jobPollInterval = 2 * time.Second

type campaignWorker struct {
	jobs     *store.JobStore
	campaign *batch.Campaign
	engine   *provider.GoogleProvider
	status   *batch.StatusPublisher
	logger   infra.Logger
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()
	runner := infra.NewSQLRunner(pool, logger)

	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	blobs, err := storage.NewFileStore(storagePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	geminiAPIKey := strings.TrimSpace(cfg.GeminiAPIKey)
	if geminiAPIKey == "" {
		key, err := credentials.NewStore(runner).GeminiAPIKey(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("worker: failed to load gemini api key from store")
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
		logger.Fatal().Err(err).Msg("worker: failed to configure gemini client")
	}

	catalog := provider.NewCatalog()
	// The orchestrator owns retry for batch runs, so the engine's inner
	// retry is off; a transient failure surfaces immediately and waits out
	// the escalating outer backoff instead.
	engine := provider.NewGoogleProvider(geminiClient, catalog,
		provider.WithRetryPolicy(provider.NoRetry),
		provider.WithLogger(logger),
	)

	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("worker: redis unavailable, job status mirroring disabled")
	}
	if rdb != nil {
		defer rdb.Close()
	}

	templates := store.NewTemplateStore(runner)
	orch := batch.New(engine, blobs, catalog, logger)
	expander := provider.NewTemplateExpander(geminiClient, cfg.GeminiTextModel, logger)
	campaign := batch.NewCampaign(orch, templates, blobs, expander, logger)
	campaign.ItemTimeout = cfg.ItemTimeout
	campaign.DefaultDelay = cfg.ItemDelay

	go func() {
		metricsServer := infra.NewHTTPServer(cfg, ":"+cfg.MetricsPort, promhttp.Handler())
		logger.Info().Msgf("metrics listening on :%s", cfg.MetricsPort)
		if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("worker: metrics server failed")
		}
	}()

	w := &campaignWorker{
		jobs:     store.NewJobStore(runner),
		campaign: campaign,
		engine:   engine,
		status:   batch.NewStatusPublisher(rdb, logger),
		logger:   logger,
	}

	logger.Info().Msg("worker started, waiting for batch jobs")
	w.run(ctx)
	logger.Info().Msg("worker stopped")
}

func (w *campaignWorker) run(ctx context.Context) {
	ticker := time.NewTicker(jobPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for {
			job, err := w.jobs.Claim(ctx)
			if err != nil {
				if !errors.Is(err, store.ErrNoJobAvailable) {
					w.logger.Error().Err(err).Msg("worker: claim failed")
				}
				break
			}
			w.process(ctx, job)
			if ctx.Err() != nil {
				return
			}
		}
	}
}

func (w *campaignWorker) process(ctx context.Context, job domain.BatchJob) {
	w.logger.Info().Str("job_id", job.ID).Ints("phases", job.Phases).Msg("worker: job claimed")
	w.status.Publish(ctx, job.ID, map[string]any{
		"status":     string(domain.JobStatusRunning),
		"started_at": time.Now().UTC().Format(time.RFC3339),
	})

	var payload domain.BatchPayload
	if err := json.Unmarshal(job.PayloadJSON, &payload); err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: invalid job payload")
		w.finish(ctx, job.ID, domain.JobStatusFailed, map[string]string{"error": "invalid payload"})
		return
	}

	summary, err := w.campaign.Run(ctx, job.Phases, payload)
	status := domain.JobStatusSucceeded
	if err != nil {
		status = domain.JobStatusFailed
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: campaign run failed")
	}
	w.finish(ctx, job.ID, status, summary)

	w.logger.Info().
		Str("job_id", job.ID).
		Str("status", string(status)).
		Int("success", summary.TotalOK).
		Int("fail", summary.TotalFail).
		Float64("cost", summary.TotalCost).
		Str("engine_stats", w.engine.StatsSummary()).
		Msg("worker: job finished")
}

func (w *campaignWorker) finish(ctx context.Context, jobID string, status domain.JobStatus, report any) {
	// Terminal writes survive a cancelled run context.
	finishCtx := ctx
	if finishCtx.Err() != nil {
		var cancel context.CancelFunc
		finishCtx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}
	if err := w.jobs.Finish(finishCtx, jobID, status, report); err != nil {
		w.logger.Error().Err(err).Str("job_id", jobID).Msg("worker: failed to finish job")
	}
	w.status.Publish(finishCtx, jobID, map[string]any{
		"status":      string(status),
		"finished_at": time.Now().UTC().Format(time.RFC3339),
	})
}
