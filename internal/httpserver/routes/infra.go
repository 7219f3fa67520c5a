package routes

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrSnakeDoc/muster/internal/httpserver/deps"
	"github.com/MrSnakeDoc/muster/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/muster/internal/httpserver/mw"
)

func init() { Register(registerInfra, middleware.Timeout(5*time.Second)) }

func registerInfra(r chi.Router, d deps.Deps) {
	guard := mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r.With(guard).Get("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}).ServeHTTP)
	r.With(guard).Get("/api/v1/infra", handlers.Infra(d))
}
