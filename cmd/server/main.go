package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"github.com/pitchlens/pitchlens/internal/api"
	"github.com/pitchlens/pitchlens/internal/config"
	"github.com/pitchlens/pitchlens/internal/conversation"
	"github.com/pitchlens/pitchlens/internal/extract"
	"github.com/pitchlens/pitchlens/internal/llm"
	"github.com/pitchlens/pitchlens/internal/logging"
	"github.com/pitchlens/pitchlens/internal/metrics"
	"github.com/pitchlens/pitchlens/internal/persona"
	"github.com/pitchlens/pitchlens/internal/respcache"
	"github.com/pitchlens/pitchlens/internal/server"
	"github.com/pitchlens/pitchlens/internal/sweeper"
	"github.com/pitchlens/pitchlens/internal/usage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting pitchlens")

	if cfg.OpenAI.APIKey == "" {
		logger.Warn("OPENAI_API_KEY not set, completion calls will fail")
	}

	collector, err := metrics.NewCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	// Personas: built-ins, then the optional YAML file, watched for edits.
	personas := persona.NewRegistry(logging.ForComponent(logger, "personas"))
	if err := personas.LoadFile(cfg.PersonasFile); err != nil {
		logger.Error("failed to load personas", "path", cfg.PersonasFile, "error", err)
		os.Exit(1)
	}
	if watcher, werr := persona.Watch(cfg.PersonasFile, personas, logging.ForComponent(logger, "personas")); werr != nil {
		logger.Info("persona hot-reload disabled", "path", cfg.PersonasFile, "reason", werr)
	} else {
		defer watcher.Close()
	}

	// Single gateway instance per process; its shared rate-limit delay
	// field is the point of cross-request backpressure.
	gateway := llm.NewGateway(cfg.OpenAI, llm.DefaultRetryPolicy(), logging.ForComponent(logger, "gateway"), collector)

	cache := respcache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL, logging.ForComponent(logger, "cache"))
	tracker := usage.NewTracker(logging.ForComponent(logger, "usage"))
	store := conversation.NewStore(cfg.Conversations, logging.ForComponent(logger, "conversations"))

	handler := api.NewHandler(gateway, extract.PlainText{}, cache, tracker, store, personas, cfg.Limits, cfg.OpenAI, collector, logging.ForComponent(logger, "api"))

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/api/info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"pitchlens","status":"ready","version":"0.1.0"}`))
	})

	mux.Handle("/metrics", collector.Handler())

	api.SetupRoutes(mux, handler)

	// Background sweeps keep the stores bounded even without traffic.
	sweeps := sweeper.New(logging.ForComponent(logger, "sweeper"))
	if err := sweeps.Add("cache-expiry", cfg.Cache.SweepInterval, cache.Sweep); err != nil {
		logger.Error("failed to schedule cache sweep", "error", err)
		os.Exit(1)
	}
	if err := sweeps.Add("idle-conversations", cfg.Conversations.SweepInterval, store.SweepIdle); err != nil {
		logger.Error("failed to schedule conversation sweep", "error", err)
		os.Exit(1)
	}
	sweeps.Start()
	defer sweeps.Stop()

	srv := server.New(cfg.Server, logger, collector.InstrumentHandler(mux))

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("pitchlens started", "port", cfg.Server.Port)

	waitForSignal(logger)

	logger.Info("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

func waitForSignal(logger *slog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	sig := <-c
	logger.Info("received signal", "signal", sig.String())
	signal.Stop(c)
	close(c)
}
