package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/username/fintrack/backend/src/config"
	"github.com/username/fintrack/backend/src/handlers"
	"github.com/username/fintrack/backend/src/logger"
	"github.com/username/fintrack/backend/src/store"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000": true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("Fintrack backend server starting...")

	duplicatePolicy, err := store.ParseDuplicatePolicy(config.Cfg.DuplicatePolicy)
	if err != nil {
		logger.L.Error("Invalid duplicate policy configuration", "error", err)
		os.Exit(1)
	}

	logger.L.Info("Initializing transaction store...", "path", config.Cfg.DatabasePath)
	txStore, err := store.New(store.Config{
		DatabasePath: config.Cfg.DatabasePath,
		OnDuplicate:  duplicatePolicy,
		Logger:       logger.L,
	})
	if err != nil {
		logger.L.Error("Failed to open transaction store", "error", err)
		os.Exit(1)
	}
	defer txStore.Close()

	if err := txStore.Initialize(); err != nil {
		logger.L.Error("Failed to initialize transaction store schema", "error", err)
		os.Exit(1)
	}

	listCache := cache.New(config.Cfg.CacheTTL, config.Cfg.CacheCleanupInterval)

	txHandler := handlers.NewTransactionHandler(txStore, listCache)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(enableCORS)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Fintrack Backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/transactions", txHandler.HandleIngestTransaction)
		r.Get("/transactions", txHandler.HandleListTransactions)
		r.Get("/transactions/source/{sourceID}", txHandler.HandleGetTransactionBySourceID)
		r.Patch("/transactions/{id}/category", txHandler.HandleUpdateCategory)
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
