// Package rest wires the HTTP API: session lifecycle, query execution,
// preferences, health, metrics and the websocket upgrade endpoint.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"graphlens/interfaces/http/rest/handlers"
	"graphlens/interfaces/http/rest/middleware"
)

// RouterConfig carries the collaborators and feature switches for the router.
type RouterConfig struct {
	Sessions    *handlers.SessionHandler
	Preferences *handlers.PreferencesHandler

	// WebSocket serves GET /ws/{sessionID}. Optional in tests.
	WebSocket http.HandlerFunc

	// MetricsGatherer enables GET /metrics when set.
	MetricsGatherer prometheus.Gatherer

	EnableCORS bool
	Logger     *zap.Logger
}

// NewRouter assembles the chi router with the shared middleware stack.
func NewRouter(cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recoverer(logger))
	if cfg.EnableCORS {
		r.Use(middleware.CORS)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy"}`))
	})

	if cfg.MetricsGatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", cfg.Sessions.CreateSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Delete("/", cfg.Sessions.DeleteSession)
			r.Post("/query", cfg.Sessions.RunQuery)
			r.Post("/expand", cfg.Sessions.Expand)
		})

		r.Put("/preferences/labels", cfg.Preferences.SaveLabelPreference)
		r.Get("/preferences/labels", cfg.Preferences.ListLabelPreferences)
	})

	if cfg.WebSocket != nil {
		r.Get("/ws/{sessionID}", cfg.WebSocket)
	}

	return r
}
