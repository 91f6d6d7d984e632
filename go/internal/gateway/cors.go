package gateway

import (
	"net/http"

	"github.com/rs/cors"
)

// CORSMiddleware allows browser UIs served from origins to reach the gateway.
// An empty list allows any origin.
func CORSMiddleware(origins []string, next http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: origins,
		AllowedHeaders: []string{"*"},
		MaxAge:         86400,
	})
	return c.Handler(next)
}
