package router

import (
	"markettrack-api/internal/handler"
	"markettrack-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler          *handler.Handler
	ProductHandler   *handler.ProductHandler
	MarketHandler    *handler.MarketHandler
	ClusterHandler   *handler.ClusterHandler
	WatchlistHandler *handler.WatchlistHandler
	JobHandler       *handler.JobHandler
	AdminHandler     *handler.AdminHandler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-User-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check endpoints
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		// Product endpoints
		if cfg.ProductHandler != nil {
			r.Route("/products/{asin}", func(r chi.Router) {
				r.Get("/", cfg.ProductHandler.GetProduct)
				r.Get("/history", cfg.ProductHandler.GetHistory)
				r.Get("/chart", cfg.ProductHandler.GetChart)
				r.Post("/refresh", cfg.ProductHandler.Refresh)
			})
		}

		// Market endpoints
		if cfg.MarketHandler != nil {
			r.Route("/markets", func(r chi.Router) {
				r.Get("/", cfg.MarketHandler.ListMarkets)
				r.Post("/", cfg.MarketHandler.CreateMarket)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", cfg.MarketHandler.GetMarket)
					r.Get("/history", cfg.MarketHandler.GetHistory)
					r.Post("/refresh", cfg.MarketHandler.Refresh)
				})
			})
		}

		// Cluster endpoints
		if cfg.ClusterHandler != nil {
			r.Route("/clusters", func(r chi.Router) {
				r.Get("/", cfg.ClusterHandler.ListClusters)
				r.Post("/", cfg.ClusterHandler.CreateCluster)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", cfg.ClusterHandler.GetCluster)
					r.Get("/markets", cfg.ClusterHandler.ListMarkets)
					r.Post("/markets", cfg.ClusterHandler.AttachMarket)
					r.Get("/watched-count", cfg.ClusterHandler.WatchedCount)
				})
			})
		}

		// Watchlist endpoints
		if cfg.WatchlistHandler != nil {
			r.Route("/watchlist", func(r chi.Router) {
				r.Get("/", cfg.WatchlistHandler.ListWatched)
				r.Post("/", cfg.WatchlistHandler.Watch)
				r.Delete("/{asin}", cfg.WatchlistHandler.Unwatch)
			})
		}

		// Background job endpoints
		if cfg.JobHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				r.Post("/products", cfg.JobHandler.StartProductRun)
				r.Post("/markets", cfg.JobHandler.StartMarketRun)
				r.Get("/{id}", cfg.JobHandler.GetJob)
			})
		}

		// Admin endpoints
		if cfg.AdminHandler != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Get("/stats", cfg.AdminHandler.GetStats)
				r.Get("/runs", cfg.AdminHandler.ListRuns)
				r.Post("/clean-summaries", cfg.AdminHandler.CleanSummaries)
			})
		}
	})

	return r
}
