// The optimodel gateway routes chat queries across LLM providers: it plans
// candidates from the model catalog, screens conversations with guards, and
// falls back across providers on failure.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lytix-labs/optimodel"
	"github.com/lytix-labs/optimodel/guard"
	"github.com/lytix-labs/optimodel/internal/circuitbreaker"
	"github.com/lytix-labs/optimodel/internal/logging"
	"github.com/lytix-labs/optimodel/internal/version"
	"github.com/lytix-labs/optimodel/models"
	"github.com/lytix-labs/optimodel/providers"
)

// Environment knobs beyond the per-provider API keys.
const (
	guardServerURLEnv = "OPTIMODEL_GUARD_SERVER_URL"
	saasModeEnv       = "OPTIMODEL_SAAS_MODE"
	circuitBreakerEnv = "OPTIMODEL_CIRCUIT_BREAKER"
)

func main() {
	_ = godotenv.Load()
	logging.Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	log := logging.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := os.Getenv(models.ConfigPathEnv)
	if configPath == "" {
		log.Error("config path not set", "env", models.ConfigPathEnv)
		os.Exit(1)
	}
	saasMode := os.Getenv(saasModeEnv) == "true"

	registry := providers.NewRegistry()
	pricing, err := models.LoadPricing()
	if err != nil {
		log.Error("pricing load failed", "error", err)
		os.Exit(1)
	}
	catalog, err := models.Load(ctx, configPath, registry, pricing, models.LoadOptions{SAASMode: saasMode})
	if err != nil {
		log.Error("catalog load failed", "error", err)
		os.Exit(1)
	}

	cfg := optimodel.Config{
		Catalog:  catalog,
		Registry: registry,
		SAASMode: saasMode,
	}
	if guardURL := os.Getenv(guardServerURLEnv); guardURL != "" {
		cfg.Guards = guard.NewClient(guardURL)
	}
	if os.Getenv(circuitBreakerEnv) == "true" {
		cfg.Breakers = circuitbreaker.NewSet(circuitbreaker.Config{})
	}
	pipeline := optimodel.New(cfg)

	addr := ":8000"
	if p := os.Getenv("PORT"); p != "" {
		addr = ":" + p
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      newRouter(pipeline, catalog),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown error", "error", err)
		}
	}()

	log.Info("optimodel listening",
		"version", version.Short(),
		"addr", addr,
		"saasMode", saasMode,
		"models", len(catalog.Models()),
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
