package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/anishjha12309/itero/internal/agent"
	"github.com/anishjha12309/itero/internal/cache"
	"github.com/anishjha12309/itero/internal/config"
	"github.com/anishjha12309/itero/internal/evaluate"
	"github.com/anishjha12309/itero/internal/events"
	iterohttp "github.com/anishjha12309/itero/internal/http"
	"github.com/anishjha12309/itero/internal/interview"
	"github.com/anishjha12309/itero/internal/observability"
	"github.com/anishjha12309/itero/internal/observability/logging"
	"github.com/anishjha12309/itero/internal/provider/assistant"
	"github.com/anishjha12309/itero/internal/provider/room"
	"github.com/anishjha12309/itero/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (optional)")
	flag.Parse()

	// Local development keeps credentials in a .env file.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		TimeFormat: time.RFC3339,
	})

	store, err := newStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("type", cfg.Storage.Type).Msg("Failed to open interview store")
	}
	defer store.Close(context.Background())

	publisher := events.New(&events.Config{
		Enabled:         cfg.Kafka.Enabled,
		Brokers:         cfg.Kafka.Brokers,
		TranscriptTopic: cfg.Kafka.TranscriptTopic,
		LifecycleTopic:  cfg.Kafka.LifecycleTopic,
	})
	defer publisher.Close()

	roomCache := cache.New(cache.Config{
		Addr:     cfg.Cache.Addr,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
		TTL:      cfg.Cache.TTL,
	})
	defer roomCache.Close()

	problems, err := agent.LoadProblems(cfg.Agent.ProblemsPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Agent.ProblemsPath).Msg("Failed to load problem pool")
	}

	svc := interview.New(
		store,
		room.New(room.Config{
			URL:       cfg.Room.URL,
			APIKey:    cfg.Room.APIKey,
			APISecret: cfg.Room.APISecret,
			TokenTTL:  cfg.Room.TokenTTL,
		}),
		assistant.New(assistant.Config{
			APIKey:  cfg.Assistant.APIKey,
			BaseURL: cfg.Assistant.BaseURL,
		}),
		roomCache,
		publisher,
		evaluate.New(evaluate.Config{
			APIKey:    cfg.Evaluate.APIKey,
			BaseURL:   cfg.Evaluate.BaseURL,
			Model:     cfg.Evaluate.Model,
			Timeout:   cfg.Evaluate.Timeout,
			MaxTokens: cfg.Evaluate.MaxTokens,
		}),
		problems,
	)

	obs := observability.NewServer(fmt.Sprintf(":%d", cfg.Server.MetricsPort))
	obs.Start()

	api := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      iterohttp.NewServer(svc, publisher).Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Interview API started")
		if err := api.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("API server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := api.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("API shutdown failed")
	}
	if err := obs.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Observability shutdown failed")
	}
}

func newStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Type {
	case "", "memory":
		return storage.NewMemoryStore(), nil
	case "sqlite":
		return storage.NewSQLiteStore(cfg.Storage.SQLite.Path)
	case "mongo":
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return storage.NewMongoStore(ctx, cfg.Storage.Mongo.URI, cfg.Storage.Mongo.Database)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}
