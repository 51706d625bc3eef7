package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"markettrack-api/internal/cache"
	"markettrack-api/internal/config"
	"markettrack-api/internal/handler"
	"markettrack-api/internal/repository"
	"markettrack-api/internal/router"
	"markettrack-api/internal/service"
	"markettrack-api/internal/source"

	_ "github.com/go-sql-driver/mysql"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting MarketTrack API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Initialize the main store based on config
	var store repository.Store
	switch cfg.Database.Type {
	case "postgres", "postgresql":
		pgStore, err := repository.NewPostgresStore(cfg.Database.PostgresDSN())
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL: %v", err)
		}
		defer pgStore.Close()
		store = pgStore
		log.Println("PostgreSQL store initialized")
	default: // sqlite
		sqliteStore, err := repository.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite: %v", err)
		}
		defer sqliteStore.Close()
		store = sqliteStore
		log.Println("SQLite store initialized")
	}

	// Initialize the optional MySQL watch list database. On any
	// failure the watch list falls back to the main store.
	watchlistRepo := repository.WatchlistRepository(store)
	if cfg.WatchlistDB.Enabled() {
		mysqlDB, err := sql.Open("mysql", cfg.WatchlistDB.DSN())
		if err != nil {
			log.Printf("Warning: MySQL connection failed: %v", err)
		} else {
			mysqlDB.SetMaxOpenConns(10)
			mysqlDB.SetMaxIdleConns(5)
			mysqlDB.SetConnMaxLifetime(5 * time.Minute)

			if err := mysqlDB.Ping(); err != nil {
				log.Printf("Warning: MySQL ping failed: %v", err)
				mysqlDB.Close()
			} else {
				mysqlRepo, err := repository.NewMySQLWatchlistRepository(mysqlDB)
				if err != nil {
					log.Printf("Warning: MySQL watchlist initialization failed: %v", err)
					mysqlDB.Close()
				} else {
					defer mysqlDB.Close()
					watchlistRepo = mysqlRepo
					log.Println("MySQL watchlist repository initialized")
				}
			}
		}
	}

	// Initialize the cache
	var appCache cache.Cache
	switch cfg.Cache.Type {
	case "redis":
		redisCache, err := cache.NewRedisCache(cfg.Cache.RedisAddress(), cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.App.Name)
		if err != nil {
			log.Printf("Warning: Redis connection failed, using memory cache: %v", err)
			appCache = cache.NewMemoryCache()
		} else {
			defer redisCache.Close()
			appCache = redisCache
			log.Println("Redis cache initialized")
		}
	default:
		appCache = cache.NewMemoryCache()
		log.Println("Memory cache initialized")
	}

	// Initialize the snapshot source
	src := source.NewHTTPSource(cfg.Scraper.BaseURL, cfg.Scraper.RequestsPerMinute, cfg.Scraper.Timeout)

	// Initialize services
	revenueService := service.NewRevenueService(store, store, store, cfg.Update.RevenueMaxAge)
	productService := service.NewProductService(store, store, src)
	marketService := service.NewMarketService(store, store, store, src, revenueService)
	clusterService := service.NewClusterService(store, store, revenueService)
	watchlistService := service.NewWatchlistService(watchlistRepo, store, store)
	cleaner := service.NewSummaryCleaner(store, store)
	registry := service.NewJobRegistry()

	// Periodic update scheduler (disabled unless an interval is set)
	scheduler := service.NewUpdateScheduler(productService, marketService, registry, service.SchedulerConfig{
		Interval:   cfg.Update.Interval,
		RunTimeout: cfg.Update.RunTimeout,
	})
	scheduler.Start()

	// Initialize handlers
	healthHandler := handler.New(store, cfg.App.Version)
	productHandler := handler.NewProductHandler(productService, appCache, cfg.Update.ChartCacheTTL)
	marketHandler := handler.NewMarketHandler(marketService)
	clusterHandler := handler.NewClusterHandler(clusterService, watchlistService)
	watchlistHandler := handler.NewWatchlistHandler(watchlistService)
	jobHandler := handler.NewJobHandler(productService, marketService, registry, cfg.Update.RunTimeout)
	adminHandler := handler.NewAdminHandler(store, cleaner, store)

	// Create router
	r := router.New(router.Config{
		Handler:          healthHandler,
		ProductHandler:   productHandler,
		MarketHandler:    marketHandler,
		ClusterHandler:   clusterHandler,
		WatchlistHandler: watchlistHandler,
		JobHandler:       jobHandler,
		AdminHandler:     adminHandler,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
	fmt.Println("Goodbye!")
}
