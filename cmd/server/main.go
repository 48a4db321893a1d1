package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/devroom-hq/devroom/internal/ai"
	"github.com/devroom-hq/devroom/internal/api"
	"github.com/devroom-hq/devroom/internal/config"
	"github.com/devroom-hq/devroom/internal/filetree"
	"github.com/devroom-hq/devroom/internal/room"
	"github.com/devroom-hq/devroom/internal/store"
	"github.com/devroom-hq/devroom/internal/token"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Initialize the durable store: Postgres when configured, SQLite
	// otherwise (development fallback)
	var db store.DataStore
	if cfg.DatabaseURL != "" {
		logger.Info().Msg("running database migrations...")
		if err := store.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Msg("migrations completed")

		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		db = pg
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		sq, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite initialization failed")
		}
		db = sq
		logger.Info().Str("path", cfg.SQLitePath).Msg("using SQLite store")
	}
	defer db.Close()

	// Initialize Redis store
	var redisStore *store.RedisStore
	if cfg.RedisURL != "" {
		var err error
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		logger.Info().Msg("connected to Redis")
	}

	tokens := token.NewManager(cfg.JWTSecret, 24*time.Hour)

	// AI adapter; without an API key every invocation degrades to the
	// fixed apology
	var gen ai.Generator
	if g := ai.NewOpenAIGenerator(cfg.OpenAIKey, cfg.OpenAIModel); g != nil {
		gen = g
	} else {
		logger.Warn().Msg("OPENAI_API_KEY not set, AI generation disabled")
	}
	adapter := ai.NewAdapter(gen, logger)

	trees := filetree.NewReconciler(store.TreePersister{DB: db}, logger)

	var cache room.MessageCache
	if redisStore != nil {
		cache = redisStore
	}
	rooms := room.NewRegistry(room.Options{
		Log:    db,
		Cache:  cache,
		Trees:  trees,
		AI:     adapter,
		Logger: logger,
	})

	// Create router
	router := api.NewRouter(api.Deps{
		Config: cfg,
		Logger: logger,
		DB:     db,
		Redis:  redisStore,
		Tokens: tokens,
		Rooms:  rooms,
		AI:     adapter,
	})

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting devroom server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
