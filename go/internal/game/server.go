package game

import (
	"net/http"

	"github.com/mcdev12/clicker/go/clients/clicker_client"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// SubjectsEndpoint lists every subject with its current balance.
const SubjectsEndpoint = "/subjects"

// NewHandler mounts every route of the game service, wrapped in CORS and
// served over h2c so Connect clients can speak HTTP/2 without TLS.
func NewHandler(svc *Service, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()

	mux.Handle(clicker_client.PathPrefix, svc)
	for procedure, handler := range svc.ConnectHandlers() {
		mux.Handle(procedure, handler)
	}
	mux.HandleFunc(SubjectsEndpoint, svc.HandleListSubjects)
	setupHealthCheck(mux)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: allowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	return h2c.NewHandler(c.Handler(mux), &http2.Server{})
}

// NewServer builds the HTTP server for addr.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:    addr,
		Handler: handler,
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
