package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mcdev12/clicker/go/clients/clicker_client"
	"github.com/mcdev12/clicker/go/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func setupLogging(cfg *config.Config) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	level, err := cfg.Level()
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// waitForServer probes the game server's health endpoint with exponential
// backoff, giving up after cfg.HealthWait.
func waitForServer(ctx context.Context, cfg *config.Config) error {
	client := &http.Client{Timeout: 2 * time.Second}
	url := cfg.ServerURL + clicker_client.HealthEndpoint

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = cfg.HealthWait

	return backoff.Retry(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return backoff.Permanent(err)
			}
			resp, err := client.Do(req)
			if err != nil {
				log.Debug().Err(err).Str("url", url).Msg("game server not ready, retrying")
				return err
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("health check returned status %d", resp.StatusCode)
			}
			log.Info().Str("url", url).Msg("game server is up")
			return nil
		},
		backoff.WithContext(b, ctx),
	)
}
