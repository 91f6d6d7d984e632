package main

import (
	"fmt"

	"github.com/mcdev12/clicker/go/clients/clicker_client"
	"github.com/mcdev12/clicker/go/internal/clicker"
	"github.com/mcdev12/clicker/go/internal/clicker/events"
	"github.com/mcdev12/clicker/go/internal/config"
	"github.com/mcdev12/clicker/go/internal/display"
	"github.com/mcdev12/clicker/go/internal/gateway"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Client   *clicker_client.Client
	Engine   *clicker.Engine
	Gateway  *gateway.Service
	Registry *prometheus.Registry

	nats *events.NATSPublisher
}

func setupServices(cfg *config.Config) (*Services, error) {
	// Wire up the chain
	// RPC client → engine ← views (log + gateway), publisher, metrics

	client, err := clicker_client.NewClickerClient(cfg.ServerURL, cfg.Transport, cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create clicker client: %w", err)
	}

	services := &Services{Client: client}
	opts := []clicker.Option{clicker.WithConfig(cfg.Engine())}

	if cfg.MetricsEnabled {
		services.Registry = prometheus.NewRegistry()
		services.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics, err := clicker.NewPrometheusMetrics(services.Registry)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		opts = append(opts, clicker.WithMetrics(metrics))
	}

	if cfg.NATSURL != "" {
		natsCfg := events.DefaultNATSConfig()
		natsCfg.URL = cfg.NATSURL
		natsCfg.SubjectPrefix = cfg.NATSSubjectPrefix
		publisher, err := events.NewNATSPublisher(natsCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		services.nats = publisher
		opts = append(opts, clicker.WithPublisher(publisher))
	} else {
		opts = append(opts, clicker.WithPublisher(events.LogPublisher{}))
	}

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.AllowedOrigins = cfg.AllowedOrigins
	services.Gateway = gateway.NewService(gatewayConfig)

	view := clicker.MultiView{
		display.NewLogView(log.Logger),
		services.Gateway.View(),
	}
	services.Engine = clicker.NewEngine(client, view, opts...)
	services.Gateway.Bind(services.Engine)

	return services, nil
}

func (s *Services) Close() {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close NATS publisher")
		}
	}
}
