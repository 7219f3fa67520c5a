package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/muster/internal/domain"
	"github.com/MrSnakeDoc/muster/internal/httpserver/deps"
	"github.com/MrSnakeDoc/muster/internal/logger"
)

// Index lists the API entry points, absolute to the request host.
func Index(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base := scheme + "://" + r.Host
		writeJSON(w, http.StatusOK, []string{
			base + "/api/v1/services",
			base + "/api/v1/logs/{service}",
		}, d.Logger)
	}
}

// Services waits for every bindable service to be ready or dead, then lists
// all services in declaration order.
func Services(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Orchestrator.AwaitInitialized(r.Context()); err != nil {
			d.Logger.Debug("services request ended before initialization", logger.Error(err))
			writeJSON(w, http.StatusServiceUnavailable,
				messageResponse{Message: "services are still starting"}, d.Logger)
			return
		}

		all := d.Orchestrator.AllServices()
		views := make([]domain.ServiceView, 0, len(all))
		for _, svc := range all {
			views = append(views, svc.View())
		}
		writeJSON(w, http.StatusOK, views, d.Logger)
	}
}

// Service returns one service view.
func Service(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		svc, ok := d.Orchestrator.ServiceByName(name)
		if !ok {
			unknownService(w, name, d.Logger)
			return
		}
		writeJSON(w, http.StatusOK, svc.View(), d.Logger)
	}
}

// Logs returns the captured output lines of one service.
func Logs(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		svc, ok := d.Orchestrator.ServiceByName(name)
		if !ok {
			unknownService(w, name, d.Logger)
			return
		}
		writeJSON(w, http.StatusOK, svc.Logs(), d.Logger)
	}
}
