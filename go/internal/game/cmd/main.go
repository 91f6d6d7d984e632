package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/clicker/go/internal/config"
	"github.com/mcdev12/clicker/go/internal/game"
	"github.com/mcdev12/clicker/go/internal/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults to $"+config.PathEnv+")")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if level, err := cfg.Level(); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewRealClock()
	dedup, closeDedup, err := setupDedup(ctx, cfg, clock)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up dedup cache")
	}
	defer closeDedup()

	// Repository layer → App layer → Service layer
	repo := game.NewMemoryRepository()
	repo.Seed(demoSubjects(clock.Now())...)
	app := game.NewApp(repo, dedup, clock)
	svc := game.NewService(app)

	server := game.NewServer(fmt.Sprintf(":%d", cfg.ServerPort), game.NewHandler(svc, cfg.AllowedOrigins))
	go func() {
		log.Info().Str("addr", server.Addr).Msg("game server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("game server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("game server shutdown failed")
	}

	log.Info().Msg("game server shutdown complete")
}

// setupDedup returns the Redis cache when redis_addr is set, otherwise the
// in-memory one.
func setupDedup(ctx context.Context, cfg *config.Config, clock clockwork.Clock) (game.DedupCache, func(), error) {
	if cfg.RedisAddr == "" {
		log.Info().Msg("using in-memory dedup cache")
		return game.NewMemoryDedupCache(cfg.Dedup(), clock), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	b := backoff.NewExponentialBackOff()
	maxRetries := backoff.WithMaxRetries(b, 5)

	err := backoff.Retry(
		func() error {
			if _, err := client.Ping(ctx).Result(); err != nil {
				log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis connection failed, retrying")
				return err
			}
			return nil
		},
		backoff.WithContext(maxRetries, ctx),
	)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().Str("addr", cfg.RedisAddr).Msg("using redis dedup cache")
	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close redis client")
		}
	}
	return game.NewRedisDedupCache(client, cfg.Dedup(), clock), closeFn, nil
}

func demoSubjects(now time.Time) []models.Subject {
	names := []string{"Bonobo", "Gibbon", "Mandrill", "Orangutan"}
	subjects := make([]models.Subject, 0, len(names))
	for i, name := range names {
		subjects = append(subjects, models.Subject{
			ID:               fmt.Sprint(i + 1),
			Name:             name,
			LastProductionAt: now,
		})
	}
	return subjects
}
