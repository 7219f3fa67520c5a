package routes

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/muster/internal/httpserver/deps"
	"github.com/MrSnakeDoc/muster/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/muster/internal/httpserver/mw"
)

func init() { Register(registerHealth, middleware.Timeout(2*time.Second)) }

func registerHealth(r chi.Router, d deps.Deps) {
	guard := mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)
	r.With(guard).Get("/healthz", handlers.Healthz(d))
	r.With(guard).Get("/readyz", handlers.Readyz(d))
}
