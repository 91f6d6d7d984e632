package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcdev12/clicker/go/internal/config"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults to $"+config.PathEnv+")")
	subjectID := flag.String("subject", "", "subject to select at startup")
	balance := flag.Int64("balance", 0, "last known balance of -subject")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	setupLogging(cfg)

	log.Info().
		Str("server_url", cfg.ServerURL).
		Str("transport", cfg.Transport).
		Int("gateway_port", cfg.GatewayPort).
		Msg("starting clicker client")

	services, err := setupServices(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}
	defer services.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := waitForServer(ctx, cfg); err != nil {
		log.Warn().Err(err).Msg("game server not reachable yet, continuing")
	}

	// Start gateway broadcast loop
	go func() {
		if err := services.Gateway.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	// Start engine loop
	go func() {
		if err := services.Engine.Run(ctx); err != nil {
			log.Error().Err(err).Msg("engine stopped with error")
		}
	}()

	server := setupServer(cfg, services)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	if *subjectID != "" {
		if err := services.Engine.Select(*subjectID, *balance); err != nil {
			log.Error().Err(err).Str("subject_id", *subjectID).Msg("failed to select subject")
		}
	}

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
	select {
	case <-services.Engine.Done():
	case <-shutdownCtx.Done():
		log.Warn().Msg("engine did not stop in time")
	}

	log.Info().Msg("clicker client shutdown complete")
}
