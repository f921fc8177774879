package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-sync/internal/batch"
	"github.com/dvloznov/statement-sync/internal/config"
	"github.com/dvloznov/statement-sync/internal/jobs"
	"github.com/dvloznov/statement-sync/internal/jobs/inmemory"
	"github.com/dvloznov/statement-sync/internal/logger"
	"github.com/dvloznov/statement-sync/internal/statement"
	"github.com/dvloznov/statement-sync/internal/storage"
)

func main() {
	log := logger.New()

	configPath := flag.String("config", "", "path to config file (optional)")
	interval := flag.Duration("interval", 6*time.Hour, "how often to enqueue sync jobs for every account")
	flag.Parse()

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if settings.Bucket == "" {
		log.Fatal().Msg("Error: no storage bucket configured (set STATEMENT_SYNC_BUCKET or the config file)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store, err := storage.NewGCS(ctx, settings, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.Close()

	orchestrator := batch.New(store, settings, log)

	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(100, jobStore)

	handler := func(ctx context.Context, job jobs.Job) error {
		syncJob, ok := job.(*jobs.SyncAccountJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %s", job.GetType())
		}
		return handleSyncJob(ctx, orchestrator, log, syncJob)
	}

	if err := queue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job queue")
	}
	log.Info().Dur("interval", *interval).Msg("Worker started")

	go publishLoop(ctx, queue, log, *interval)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker...")
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := queue.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Queue shutdown error")
	}
	log.Info().Msg("Worker stopped")
}

// publishLoop enqueues a sync job for every configured account on startup
// and again on each tick. Accounts with a run already in flight are skipped.
func publishLoop(ctx context.Context, queue jobs.Publisher, log zerolog.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	publishAll(ctx, queue, log)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			publishAll(ctx, queue, log)
		}
	}
}

func publishAll(ctx context.Context, queue jobs.Publisher, log zerolog.Logger) {
	for _, account := range config.Accounts() {
		job := &jobs.SyncAccountJob{AccountKey: account.Key}
		err := queue.PublishSyncAccount(ctx, job)
		switch {
		case errors.Is(err, jobs.ErrAccountBusy):
			log.Debug().Str("account", account.Key).Msg("Sync already in flight, skipping")
		case err != nil:
			log.Error().Err(err).Str("account", account.Key).Msg("Failed to enqueue sync job")
		default:
			log.Info().Str("account", account.Key).Str("job_id", job.JobID).Msg("Enqueued sync job")
		}
	}
}

func handleSyncJob(ctx context.Context, orchestrator *batch.Orchestrator, log zerolog.Logger, job *jobs.SyncAccountJob) error {
	account, ok := config.AccountByKey(job.AccountKey)
	if !ok {
		return fmt.Errorf("unknown account key: %s", job.AccountKey)
	}

	accountLog := logger.ForAccount(log, account.Key).With().Str("job_id", job.JobID).Logger()
	accountLog.Info().Msg("Processing sync job")

	result := orchestrator.ProcessAccount(ctx, account, func(p statement.Progress) {
		accountLog.Debug().Str("status", p.Status).Str("file", p.CurrentFile).
			Int("percent", p.Percent).Msg("progress")
	})
	job.Result = &result

	if !result.Success {
		return fmt.Errorf("sync failed: %s", result.Message)
	}
	accountLog.Info().Int("files_processed", result.FilesProcessed).
		Int("transactions_added", result.TransactionsAdded).Msg("Sync job completed")
	return nil
}
