package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sitetrust/internal/api/handlers"
	apimiddleware "sitetrust/internal/api/middleware"
	"sitetrust/internal/config"
	"sitetrust/internal/infrastructure/cache"
	"sitetrust/internal/streaming"
	"sitetrust/pkg/logger"
)

// Router holds dependencies for the API router
type Router struct {
	config   config.Config
	handlers *handlers.Handlers
	cache    *cache.RedisCache
	hub      *streaming.WebSocketHub
	gatherer prometheus.Gatherer
	logger   *logger.Logger
}

// NewRouter creates a new Router instance. c and hub may be nil; a nil
// gatherer serves the default registry.
func NewRouter(
	cfg config.Config,
	h *handlers.Handlers,
	c *cache.RedisCache,
	hub *streaming.WebSocketHub,
	gatherer prometheus.Gatherer,
	log *logger.Logger,
) *Router {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Router{
		config:   cfg,
		handlers: h,
		cache:    c,
		hub:      hub,
		gatherer: gatherer,
		logger:   log.WithComponent("router"),
	}
}

// Setup sets up the Chi router with all routes and middleware
func (r *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Core middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(apimiddleware.Logger(r.logger))
	router.Use(middleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   r.config.CORS.AllowedOrigins,
		AllowedMethods:   r.config.CORS.AllowedMethods,
		AllowedHeaders:   r.config.CORS.AllowedHeaders,
		AllowCredentials: r.config.CORS.AllowCredentials,
		MaxAge:           r.config.CORS.MaxAge,
	}))

	// Public routes
	router.Group(func(pub chi.Router) {
		pub.Get("/health", r.handlers.Health.Check)
		pub.Get("/ready", r.handlers.Health.Ready)
		pub.Handle("/metrics", promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{}))
	})

	// API v1 routes (authenticated)
	router.Route("/api/v1", func(api chi.Router) {
		api.Use(apimiddleware.APIKeyAuth(r.config.Auth.APIKeys))
		if r.config.RateLimit.Enabled {
			api.Use(apimiddleware.RateLimiter(r.cache, r.config.RateLimit, r.logger))
		}

		api.Route("/websites", func(web chi.Router) {
			// Long-lived stream; no request timeout
			if r.hub != nil {
				web.Get("/stream", r.hub.ServeWebSocket)
			}

			web.Group(func(timed chi.Router) {
				timed.Use(middleware.Timeout(60 * time.Second))

				timed.Post("/verify", r.handlers.Websites.Verify)
				timed.Post("/score", r.handlers.Websites.Score)
				timed.Get("/brands", r.handlers.Websites.Brands)

				timed.Get("/verifications", r.handlers.Websites.List)
				timed.Get("/verifications/{id}", r.handlers.Websites.Get)
				timed.Get("/verifications/{id}/explain", r.handlers.Websites.Explain)
			})
		})
	})

	return router
}
