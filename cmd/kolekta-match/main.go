package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ifjames/kolekta-match/internal/config"
	"github.com/ifjames/kolekta-match/internal/engine"
	"github.com/ifjames/kolekta-match/internal/geo"
	"github.com/ifjames/kolekta-match/internal/handler"
	"github.com/ifjames/kolekta-match/internal/service"
	"github.com/ifjames/kolekta-match/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Instantiate stores and the spatial index.
	requestStore := store.NewRequestStore()
	matchStore := store.NewMatchStore()
	webhookStore := store.NewWebhookStore()
	index := geo.NewIndex()

	// Engine.
	scorer := engine.NewScorer(cfg.ScoreWeights)

	// Services (notifier first — consumed by the match service).
	notifierSvc := service.NewNotifierService(webhookStore, cfg.NotifyTimeout)
	requestSvc := service.NewRequestService(
		requestStore,
		index,
		scorer,
		cfg.SpatialPrecision,
		cfg.MaxDistanceKm,
		cfg.RankWorkers,
	)
	matchSvc := service.NewMatchService(requestStore, matchStore, index, notifierSvc, cfg.MaxDistanceKm)

	// Proposal sweeper (depends on the match service as its expirer, and
	// the match service tracks proposals through it).
	sweeper := engine.NewProposalSweeper(cfg.ExpiryInterval, cfg.ProposalTTL, matchSvc)
	matchSvc.SetTracker(sweeper)

	// Router.
	router := handler.NewRouter(requestSvc, matchSvc, notifierSvc, logger)

	// Start the sweeper with a cancellable context. Start spawns its own
	// goroutine and returns immediately.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sweeper.Start(ctx)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown: stop HTTP server, cancel context (stops sweeper goroutine).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	logger.Info("server stopped")
}
