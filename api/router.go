package api

import (
	"chat-gateway/auth"
	"chat-gateway/contract"
	"chat-gateway/metrics"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodySize = 16 * 1024

type RouterConfig struct {
	AllowedOrigins []string
	PageSize       int
}

// NewRouter wires the HTTP surface: health, metrics, the websocket endpoint
// and the authenticated group routes.
func NewRouter(
	log *slog.Logger,
	verifier contract.Verifier,
	directory contract.GroupDirectory,
	store contract.MessageStore,
	websocket http.Handler,
	config RouterConfig,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(metrics.Middleware)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(log))
	r.Use(chimw.Recoverer)

	origins := config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	h := NewHandler(log, directory, store, config.PageSize)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", h.Health)
	r.Handle("/ws", websocket)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(verifier))
		r.Use(chimw.RequestSize(maxBodySize))

		r.Post("/groups/private", h.CreatePrivateGroup)
		r.Post("/groups/public", h.CreatePublicGroup)
		r.Get("/groups", h.ListGroups)
		r.Get("/groups/{groupID}/messages", h.GetMessages)
	})

	return r
}

func requestLogger(log *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.Debug("Request completed",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"latency", time.Since(start),
					"request_id", chimw.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
