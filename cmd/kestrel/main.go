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

	"github.com/kestrelhq/kestrel/internal/config"
	"github.com/kestrelhq/kestrel/internal/content"
	"github.com/kestrelhq/kestrel/internal/engine"
	"github.com/kestrelhq/kestrel/internal/httpapi"
	"github.com/kestrelhq/kestrel/internal/logging"
	"github.com/kestrelhq/kestrel/internal/observability"
	"github.com/kestrelhq/kestrel/internal/session"
	"github.com/kestrelhq/kestrel/internal/stream"
)

func main() {
	// Best-effort; a missing .env is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panicExit("config error", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogPretty)
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := session.NewStore(ctx, cfg.SessionStoreURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("session store init failed")
	}
	defer store.Close()
	sessions := session.NewManager(store, metrics, logging.Component(logger, "session"))

	pack, err := content.Load(cfg.ContentPackPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("content pack load failed")
	}
	classifier := pack.Classifier()
	personas := pack.MergedPersonalities()
	logger.Info().
		Int("intents", len(classifier.Definitions())).
		Int("personalities", len(personas)).
		Msg("content loaded")

	engineLogger := logging.Component(logger, "engine")
	build := func(ctx context.Context, sessionID, personalityID string) (*engine.Engine, error) {
		if personalityID == "" {
			personalityID = cfg.DefaultPersonality
		}
		return engine.New(ctx, engine.Options{
			SessionID:     sessionID,
			PersonalityID: personalityID,
			Language:      cfg.Language,
			Personalities: personas,
			Classifier:    classifier,
			PredictedTTL:  cfg.PredictedTTL,
			ChunkWords:    cfg.StreamChunkWords,
			Delivery:      stream.NewDelivery(cfg.StreamDelayMin, cfg.StreamDelayMax, nil, nil, metrics),
			Sessions:      sessions,
			Metrics:       metrics,
			Logger:        engineLogger,
		})
	}
	hub := engine.NewHub(build, cfg.SessionTTL, metrics, logging.Component(logger, "hub"))

	api := httpapi.New(cfg, hub, metrics, logging.Component(logger, "http"))
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	go hub.RunJanitor(runCtx, 30*time.Second)

	go func() {
		logger.Info().Str("addr", cfg.BindAddr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info().Msg("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown failed")
		_ = httpServer.Close()
	}

	logger.Info().Msg("shutdown complete")
}

func panicExit(msg string, err error) {
	// Config failures happen before the logger exists.
	os.Stderr.WriteString(msg + ": " + err.Error() + "\n")
	os.Exit(1)
}
