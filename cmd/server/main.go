// Package main implements the LogoForge API server. It serves the icon
// generation, library, and billing endpoints behind Supabase session
// authentication.
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/logoforge/logoforge/internal/app"
	"github.com/logoforge/logoforge/internal/app/httpapi"
	"github.com/logoforge/logoforge/internal/app/storage/postgres"
	"github.com/logoforge/logoforge/internal/app/storage/postgrest"
	"github.com/logoforge/logoforge/internal/config"
	"github.com/logoforge/logoforge/internal/metrics"
	"github.com/logoforge/logoforge/internal/middleware"
	"github.com/logoforge/logoforge/internal/provider/gemini"
	"github.com/logoforge/logoforge/internal/supabase"
	"github.com/logoforge/logoforge/pkg/logger"
)

func main() {
	// Ignore the error: a missing .env file is normal outside development.
	_ = godotenv.Load()

	log := logger.NewDefault("server")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}
	catalog := config.LoadCatalogOrDefault()

	supaClient, err := supabase.New(supabase.Config{
		ProjectURL: cfg.Supabase.URL,
		AnonKey:    cfg.Supabase.AnonKey,
		ServiceKey: cfg.Supabase.ServiceKey,
		JWTSecret:  cfg.Supabase.JWTSecret,
	})
	if err != nil {
		log.WithError(err).Error("failed to create supabase client")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider, err := gemini.New(ctx, cfg.Gemini, log.WithField("component", "gemini"))
	if err != nil {
		log.WithError(err).Error("failed to create gemini provider")
		os.Exit(1)
	}

	stores, dbClose, err := buildStores(cfg, supaClient, log)
	if err != nil {
		log.WithError(err).Error("failed to initialise storage")
		os.Exit(1)
	}
	if dbClose != nil {
		defer dbClose()
	}

	application, err := app.New(app.Config{
		Stores:   stores,
		Provider: provider,
		Catalog:  catalog,
		Limits:   cfg.Limits,
		Logger:   log,
	})
	if err != nil {
		log.WithError(err).Error("failed to build application")
		os.Exit(1)
	}

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start application")
		os.Exit(1)
	}

	router := mux.NewRouter()
	router.Handle("/healthz", httpapi.HealthHandler()).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	application.Handler.Register(router)

	rateLimiter := middleware.NewRateLimiter(cfg.Limits.RatePerSecond, cfg.Limits.RateBurst, log.WithField("component", "ratelimit"))
	rateLimiter.StartCleanup(10 * time.Minute)
	router.Use(generationRateLimit(rateLimiter))

	gate := middleware.NewSessionGate(supaClient, log.WithField("component", "auth"), []string{"/healthz", "/metrics"})
	cors := middleware.NewCORS(strings.Split(cfg.Server.AllowedOrigins, ","))
	requestLogger := middleware.NewRequestLogger(log.WithField("component", "http"))

	var handler http.Handler = router
	handler = gate.Handler(handler)
	handler = metrics.InstrumentHandler(handler)
	handler = cors.Handler(handler)
	handler = requestLogger.Handler(handler)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: handler,
		// No global write timeout: the SSE generation stream stays open for
		// up to the improvement deadline.
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("server error")
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown error")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("application stop error")
	}

	log.Info("server stopped")
}

// buildStores returns Postgres-backed stores when a direct database URL is
// configured, and PostgREST-backed stores through the Supabase client
// otherwise.
func buildStores(cfg *config.Config, supaClient *supabase.Client, log *logger.Logger) (app.Stores, func(), error) {
	if cfg.Supabase.DatabaseURL == "" {
		store, err := postgrest.New(supaClient)
		if err != nil {
			return app.Stores{}, nil, err
		}
		log.Info("using postgrest storage")
		return app.Stores{
			Icons:         store,
			Credits:       store,
			Subscriptions: store,
		}, nil, nil
	}

	db, err := sql.Open("postgres", cfg.Supabase.DatabaseURL)
	if err != nil {
		return app.Stores{}, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return app.Stores{}, nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	store := postgres.New(db)
	log.Info("using postgres storage")
	return app.Stores{
		Icons:         store,
		Credits:       store,
		Subscriptions: store,
	}, func() { db.Close() }, nil
}

// generationRateLimit limits only the generation endpoints; library and
// billing reads stay unthrottled.
func generationRateLimit(rl *middleware.RateLimiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		limited := rl.Handler(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/api/icons/generate") {
				limited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
