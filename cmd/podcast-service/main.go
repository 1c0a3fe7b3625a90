// main package for the podcast-service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/podcast-service/internal/config"
	"github.com/book-expert/podcast-service/internal/core"
	"github.com/book-expert/podcast-service/internal/news"
	"github.com/book-expert/podcast-service/internal/objectstore"
	"github.com/book-expert/podcast-service/internal/podcast"
	"github.com/book-expert/podcast-service/internal/script"
	"github.com/book-expert/podcast-service/internal/server"
	"github.com/book-expert/podcast-service/internal/speech"
	"github.com/book-expert/podcast-service/internal/worker"
)

const defaultStageTimeout = 2 * time.Minute

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "podcast-service.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func stageTimeout(seconds int) time.Duration {
	if seconds <= 0 {
		return defaultStageTimeout
	}

	return time.Duration(seconds) * time.Second
}

// buildOrchestrator wires the three pipeline stages from the configuration.
func buildOrchestrator(cfg *config.Config, log *logger.Logger) *podcast.Orchestrator {
	gdelt := news.NewGDELTClient(
		cfg.News.GDELTBaseURL,
		cfg.News.GDELTVersion,
		cfg.News.GDELTMaxRecords,
		stageTimeout(cfg.News.TimeoutSeconds),
	)
	scraper := news.NewScraperClient(cfg.News.ScraperBaseURL, stageTimeout(cfg.News.TimeoutSeconds))
	aggregator := news.NewAggregator(
		gdelt,
		scraper,
		cfg.News.MinSnippets,
		cfg.News.MaxURLsToScrape,
		log,
	)

	deepseek := script.NewDeepSeekClient(
		cfg.LLM.BaseURL,
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.Temperature,
		stageTimeout(cfg.LLM.TimeoutSeconds),
	)
	composer := script.NewComposer(deepseek, log)

	google := speech.NewGoogleClient(
		cfg.TTS.BaseURL,
		cfg.TTS.APIKey,
		stageTimeout(cfg.TTS.TimeoutSeconds),
	)
	synthesizer := speech.NewSynthesizer(google, cfg.Paths.OutputDir, cfg.TTS.SpeakingRate, log)

	return podcast.NewOrchestrator(aggregator, composer, synthesizer, podcast.Options{
		MaxConcurrent: cfg.Jobs.MaxConcurrent,
		HistoryLimit:  cfg.Jobs.HistoryLimit,
		TTL:           time.Duration(cfg.Jobs.TTLMinutes) * time.Minute,
		StageTimeout:  stageTimeout(cfg.Jobs.StageTimeoutSeconds),
	}, log)
}

// startNatsWorker connects to NATS and runs the bus ingress alongside the
// HTTP server. A missing bucket name disables the object store mirror.
func startNatsWorker(
	ctx context.Context,
	cfg *config.Config,
	orchestrator *podcast.Orchestrator,
	log *logger.Logger,
	errChan chan<- error,
) (*nats.Conn, error) {
	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}

	var store core.ObjectStore

	if cfg.NATS.AudioObjectStoreBucket != "" {
		jetstreamContext, jsErr := natsConnection.JetStream()
		if jsErr != nil {
			natsConnection.Close()

			return nil, fmt.Errorf("failed to get JetStream context: %w", jsErr)
		}

		store, err = objectstore.New(jetstreamContext, cfg.NATS.AudioObjectStoreBucket)
		if err != nil {
			natsConnection.Close()

			return nil, fmt.Errorf("failed to create audio object store: %w", err)
		}
	}

	natsWorker, err := worker.NewNatsWorker(
		natsConnection,
		cfg.NATS.PodcastRequestedSubject,
		orchestrator,
		store,
		cfg.Paths.OutputDir,
		log,
	)
	if err != nil {
		natsConnection.Close()

		return nil, fmt.Errorf("failed to create NATS worker: %w", err)
	}

	go func() {
		errChan <- natsWorker.Run(ctx)
	}()

	log.System("NATS worker listening on subject: %s", cfg.NATS.PodcastRequestedSubject)

	return natsConnection, nil
}

func run() error {
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	return serve(cfg, finalLog)
}

func serve(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orchestrator := buildOrchestrator(cfg, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := server.New(orchestrator, addr, cfg.Paths.OutputDir, log)

	errChan := make(chan error, 2)

	if cfg.NATS.URL != "" {
		natsConnection, err := startNatsWorker(ctx, cfg, orchestrator, log, errChan)
		if err != nil {
			return err
		}

		defer natsConnection.Close()
	}

	go func() {
		errChan <- httpServer.ListenAndServe()
	}()

	log.System("Podcast service initialized. HTTP on %s", addr)

	var runErr error

	select {
	case <-ctx.Done():
		log.System("Shutdown signal received, draining")
	case runErr = <-errChan:
		if runErr != nil {
			log.Error("Component failed: %v", runErr)
		}
	}

	shutdownErr := httpServer.Shutdown(context.Background())
	if shutdownErr != nil {
		log.Error("HTTP shutdown failed: %v", shutdownErr)
	}

	// Let in-flight pipelines record their terminal status before exit.
	orchestrator.Wait()

	if runErr != nil {
		return runErr
	}

	return shutdownErr
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
