package health

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Proton-105/rewards-bot/internal/lifecycle"
	"github.com/Proton-105/rewards-bot/pkg/logger"
)

// NewRouter serves /metrics, /healthz and /readyz for the ops port.
func NewRouter(checker *Checker, probes lifecycle.HealthChecker, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(logger.HTTPMiddleware(log))

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		report := checker.Check(req.Context())
		code := http.StatusOK
		if !report.Healthy() {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, report, log)
	})

	r.Get("/livez", func(w http.ResponseWriter, req *http.Request) {
		if err := probes.Liveness(req.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": err.Error()}, log)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": StatusOK}, log)
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if err := probes.Readiness(req.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": err.Error()}, log)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": StatusOK}, log)
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, body any, log *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn("failed to write health response", slog.Any("error", err))
	}
}
