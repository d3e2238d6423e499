package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/TauDuque/api-monitor/internal/config"
	"github.com/TauDuque/api-monitor/internal/store"
	"github.com/TauDuque/api-monitor/internal/uptime"
	"github.com/TauDuque/api-monitor/internal/websocket"
)

// NewRouter creates a new HTTP router
func NewRouter(cfg *config.Config, st *store.Store, hub *websocket.Hub, sched URLScheduler, calc *uptime.Calculator) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(SecurityHeadersMiddleware(cfg))

	limiter := NewRateLimiter(20, 60)
	limiter.CleanupOldLimiters()
	r.Use(RateLimitMiddleware(limiter))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Monitored URL routes
		r.Get("/monitored-urls", HandleListURLs(st))
		r.Post("/monitored-urls", HandleCreateURL(st, sched))
		r.Get("/monitored-urls/{id}", HandleGetURL(st))
		r.Put("/monitored-urls/{id}", HandleUpdateURL(st, sched))
		r.Delete("/monitored-urls/{id}", HandleDeleteURL(st, sched))

		// Check routes
		r.Get("/checks/latest", HandleLatestChecks(st))
		r.Get("/checks/incidents", HandleAllIncidents(st))
		r.Get("/checks/{urlId}/history", HandleCheckHistory(st))
		r.Get("/checks/{urlId}/uptime", HandleUptime(st, calc))
		r.Get("/checks/{urlId}/incidents", HandleIncidents(st))

		// Alert configuration routes
		r.Get("/alert-configurations", HandleListAlertConfigs(st))
		r.Post("/alert-configurations", HandleUpsertAlertConfig(st))
		r.Get("/alert-configurations/url/{urlId}", HandleGetAlertConfigByURL(st))
		r.Put("/alert-configurations/{id}", HandleUpdateAlertConfig(st))
		r.Delete("/alert-configurations/{id}", HandleDeleteAlertConfig(st))
	})

	// WebSocket endpoint
	r.Get("/ws", hub.HandleWebSocket)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
