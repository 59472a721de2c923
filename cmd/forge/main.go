package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/forge-media/forge/internal/config"
	"github.com/forge-media/forge/internal/httpapi"
	"github.com/forge-media/forge/internal/jobs"
	"github.com/forge-media/forge/internal/llm"
	"github.com/forge-media/forge/internal/media"
	"github.com/forge-media/forge/internal/persistence"
	"github.com/forge-media/forge/internal/pipeline"
	"github.com/forge-media/forge/internal/plan"
	"github.com/forge-media/forge/internal/transcribe"
	"github.com/forge-media/forge/internal/videogen"
	"github.com/forge-media/forge/pkg/log"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}
	log.InitLogger(log.ParseLevel(cfg.LogLevel))

	if err := os.MkdirAll(cfg.Pipeline.WorkDir, 0o755); err != nil {
		log.Fatal("Failed to create work directory: %v", err)
	}

	var store jobs.Store
	if cfg.Jobs.DBPath != "" {
		sqliteStore, err := persistence.NewSQLiteStore(cfg.Jobs.DBPath)
		if err != nil {
			log.Fatal("Failed to open job store: %v", err)
		}
		defer sqliteStore.Close()
		store = sqliteStore
	}

	queue := jobs.NewQueue(cfg.Pipeline.JobWorkers, store)

	llmClient, err := llm.NewClient(&llm.Config{
		APIKey:      cfg.LLM.APIKey,
		APIURL:      cfg.LLM.APIURL,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		log.Fatal("Failed to create planner LLM client: %v", err)
	}

	tools := media.NewToolchain()
	transcriber := transcribe.NewClient(transcribe.Config{
		APIKey:         cfg.Speech.APIKey,
		APIURL:         cfg.Speech.APIURL,
		Model:          cfg.Speech.Model,
		Timeout:        cfg.Speech.Timeout,
		MaxUploadBytes: cfg.Speech.MaxUploadBytes,
	}, tools)
	planner := plan.NewPlanner(llmClient)
	generator := videogen.NewClient(videogen.Config{
		APIKey:  cfg.Video.APIKey,
		APIURL:  cfg.Video.APIURL,
		Timeout: cfg.Video.Timeout,
	})

	pipe := pipeline.New(
		tools,
		transcriber,
		planner,
		generator,
		tools,
		cfg.Pipeline.WorkDir,
		cfg.Pipeline.ClipWorkers,
		videogen.Settings{
			Model:      cfg.Video.Model,
			Resolution: cfg.Video.Resolution,
			FPS:        cfg.Video.FPS,
		},
	)

	queue.Start(pipe.Execute)
	defer queue.Stop()

	scheduler := cron.New()
	janitor := jobs.NewJanitor(queue, time.Duration(cfg.Jobs.RetentionHours)*time.Hour)
	if err := janitor.Schedule(scheduler, cfg.Jobs.JanitorCron); err != nil {
		log.Fatal("Failed to schedule janitor: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := httpapi.NewServer(queue, cfg.Pipeline.WorkDir)

	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening on %s", cfg.HTTP.Addr)
		errCh <- srv.ListenAndServe(cfg.HTTP.Addr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed: %v", err)
		}
	case sig := <-stop:
		log.Info("Received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn("HTTP shutdown: %v", err)
		}
	}
}
