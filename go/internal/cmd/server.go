package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mcdev12/clicker/go/clients/clicker_client"
	"github.com/mcdev12/clicker/go/internal/config"
	"github.com/mcdev12/clicker/go/internal/gateway"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const metricsEndpoint = "/metrics"

func setupServer(cfg *config.Config, services *Services) *http.Server {
	mux := http.NewServeMux()

	// Register gateway routes (WebSocket)
	services.Gateway.RegisterRoutes(mux)

	if services.Registry != nil {
		mux.Handle(metricsEndpoint, promhttp.HandlerFor(services.Registry, promhttp.HandlerOpts{}))
		log.Info().Str("endpoint", metricsEndpoint).Msg("serving prometheus metrics")
	}

	setupHealthCheck(mux)

	// Add service info
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		stats := services.Gateway.GetStats()
		stats["server_url"] = cfg.ServerURL
		stats["transport"] = cfg.Transport
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			log.Error().Err(err).Msg("failed to write info response")
		}
	})

	return &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.GatewayPort),
		Handler:     gateway.CORSMiddleware(cfg.AllowedOrigins, mux),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc(clicker_client.HealthEndpoint, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
