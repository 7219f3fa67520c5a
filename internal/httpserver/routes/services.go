package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/muster/internal/httpserver/deps"
	"github.com/MrSnakeDoc/muster/internal/httpserver/handlers"
)

func init() { Register(registerServices) }

// The services list waits for initialization, so it runs without the
// short request timeout; the request context bounds the wait.
func registerServices(r chi.Router, d deps.Deps) {
	r.Get("/", handlers.Index(d))
	r.Get("/api/v1/services", handlers.Services(d))
	r.Get("/api/v1/services/{name}", handlers.Service(d))
	r.Get("/api/v1/logs/{name}", handlers.Logs(d))
}
