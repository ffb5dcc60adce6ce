package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lytix-labs/optimodel"
	"github.com/lytix-labs/optimodel/internal/logging"
	"github.com/lytix-labs/optimodel/models"
	"github.com/lytix-labs/optimodel/providers"
)

// listedModel is one catalog entry in the /list-models response.
type listedModel struct {
	Provider         providers.ID `json:"provider"`
	MaxGenLen        int          `json:"maxGenLen"`
	Speed            int          `json:"speed"`
	PricePer1MInput  *float64     `json:"pricePer1MInput"`
	PricePer1MOutput *float64     `json:"pricePer1MOutput"`
	SupportsJSONMode bool         `json:"supportsJSONMode"`
	SupportsImages   bool         `json:"supportsImages"`
}

func newRouter(pipeline *optimodel.Pipeline, catalog *models.Catalog) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Get("/list-models", func(w http.ResponseWriter, _ *http.Request) {
		listed := make(map[string][]listedModel)
		for name, entries := range catalog.Models() {
			for _, e := range entries {
				listed[name] = append(listed[name], listedModel{
					Provider:         e.Provider,
					MaxGenLen:        e.MaxGenLen,
					Speed:            e.SpeedRank,
					PricePer1MInput:  e.PricePer1MInput,
					PricePer1MOutput: e.PricePer1MOutput,
					SupportsJSONMode: e.SupportsJSONMode,
					SupportsImages:   e.SupportsImages,
				})
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"models": listed})
	})

	r.Post("/query", func(w http.ResponseWriter, req *http.Request) {
		var body optimodel.QueryRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}

		resp, err := pipeline.Query(req.Context(), &body)
		if err != nil {
			var ve *optimodel.ValidationError
			switch {
			case errors.As(err, &ve):
				writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			case errors.Is(err, context.Canceled):
				// Client went away; nothing useful to write.
			default:
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			}
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
