package routes

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/muster/internal/httpserver/deps"
	"github.com/MrSnakeDoc/muster/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/muster/internal/httpserver/mw"
)

func init() { Register(registerProbe) }

func registerProbe(r chi.Router, d deps.Deps) {
	if d.ProbeTrigger == nil {
		return
	}
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:             3,
		RefillPerIPPerMin: 6,
		MaxEntries:        1024,
		SweepInterval:     time.Minute,
		IdleTTL:           10 * time.Minute,
		TrustProxy:        d.TrustProxy,
	})
	r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger), limit).Post("/api/v1/probe", handlers.Probe(d))
}
