// The optimodel-guard sidecar serves guard evaluations for the gateway. It
// owns the protocol and the per-guard reduction logic; the classifier and
// entity-analyzer models run in separate inference services.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/lytix-labs/optimodel/guard"
	"github.com/lytix-labs/optimodel/internal/guards"
	"github.com/lytix-labs/optimodel/internal/logging"
	"github.com/lytix-labs/optimodel/internal/version"
	"github.com/lytix-labs/optimodel/providers"
)

func main() {
	_ = godotenv.Load()
	logging.Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	log := logging.Logger

	evaluator := guards.New(
		os.Getenv(guards.PromptGuardURLEnv),
		os.Getenv(guards.PresidioURLEnv),
	)

	addr := ":8001"
	if p := os.Getenv("PORT"); p != "" {
		addr = ":" + p
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      newRouter(evaluator),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown error", "error", err)
		}
	}()

	log.Info("optimodel-guard listening", "version", version.Short(), "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// checkRequest is the guard evaluation wire body.
type checkRequest struct {
	Guard       guard.Config        `json:"guard"`
	Messages    []providers.Message `json:"messages"`
	ModelOutput string              `json:"modelOutput"`
}

func newRouter(evaluator *guards.Evaluator) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logging.Middleware)

	r.Route("/optimodel-guard/api/v1", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/guard", func(w http.ResponseWriter, req *http.Request) {
			var body checkRequest
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
				return
			}
			if err := body.Guard.Validate(); err != nil {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
				return
			}

			result, err := evaluator.Evaluate(req.Context(), body.Guard, body.Messages, body.ModelOutput)
			if err != nil {
				logging.FromContext(req.Context()).Error("guard evaluation failed",
					"guard", body.Guard.GuardName, "error", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, result)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
