package api

import (
	"circulation-engine/internal/api/handler"
	mw "circulation-engine/internal/api/middleware"
	"circulation-engine/internal/config"
	"circulation-engine/internal/domain/circulation"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/traceid"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(service circulation.CirculationService, sessions *circulation.SessionStore, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(router, cfg, logger)
	setupMetricsEndpoint(router, cfg, logger)
	setupCirculationRoutes(router, service, sessions, logger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return router
}

func setupMiddleware(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(traceid.Middleware)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(mw.NewRateLimiterMiddleware(cfg.Server.RateLimit, logger).Middleware)
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupCirculationRoutes(router *chi.Mux, service circulation.CirculationService, sessions *circulation.SessionStore, logger *slog.Logger) {
	h := handler.NewCirculationHandler(service, sessions, logger)

	router.Route("/members/{memberID}/session", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Post("/items", h.StageItem)
		r.Delete("/items/{itemCode}", h.UnstageItem)
		r.Post("/commit", h.CommitSession)
	})

	router.Route("/loans/{loanID}", func(r chi.Router) {
		r.Post("/return", h.ReturnLoan)
		r.Post("/extend", h.ExtendLoan)
	})
}
