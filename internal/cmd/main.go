package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/areyouamarjeet/med-melody-quiz/internal/gameconfig"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(logLevel())

	cfg := gameconfig.NewConfigFromEnv()

	settings := gameconfig.DefaultRoundSettings()
	if path := os.Getenv("ROUND_SETTINGS_FILE"); path != "" {
		loaded, err := gameconfig.LoadRoundSettings(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("falling back to default round settings")
		} else {
			settings = loaded
		}
	}

	log.Info().
		Str("port", cfg.Port).
		Int("questions", settings.TotalQuestions).
		Int("question_duration_sec", settings.QuestionDurationSec).
		Msg("starting quiz server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The store must be reachable before the session can open for play.
	pool := setupStore(ctx, cfg)
	if pool != nil {
		defer pool.Close()
	}

	services, err := setupServices(ctx, cfg, settings, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}
	defer services.Close()

	server := setupServer(cfg.Port, services)

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	cancel()
	log.Info().Msg("quiz server shutdown complete")
}

func logLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
