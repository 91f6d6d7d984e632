package gateway

import (
	"context"
	"net/http"

	"github.com/mcdev12/clicker/go/internal/clicker"
	"github.com/rs/zerolog/log"
)

// Service bridges one clicker engine to any number of browser UIs.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	view              *WebSocketView
}

// Config holds configuration for the gateway
type Config struct {
	ConnectionConfig ConnectionConfig
	AllowedOrigins   []string
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// NewService creates the gateway. The engine is attached later with Bind,
// since the engine itself is built around View().
func NewService(config Config) *Service {
	connectionManager := NewConnectionManager(config.ConnectionConfig)

	return &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
		view:              NewWebSocketView(connectionManager),
	}
}

// View is the clicker.View that feeds the connected UIs.
func (s *Service) View() clicker.View {
	return s.view
}

// Bind attaches the engine that UI commands are applied to.
func (s *Service) Bind(engine Engine) {
	s.connectionManager.SetHandler(NewEngineBridge(engine))
}

// Start runs the broadcast loop until ctx is cancelled
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting clicker gateway")
	s.connectionManager.Start(ctx)
	log.Info().Msg("clicker gateway stopped")
	return nil
}

// RegisterRoutes registers the WebSocket HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() map[string]interface{} {
	stats := s.connectionManager.GetConnectionStats()
	stats["service"] = "clicker_gateway"
	stats["status"] = "running"
	return stats
}
