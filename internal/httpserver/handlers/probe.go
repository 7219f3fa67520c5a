package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/muster/internal/httpserver/deps"
	"github.com/MrSnakeDoc/muster/internal/logger"
)

// Probe triggers an immediate reachability round of external services.
func Probe(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case d.ProbeTrigger <- struct{}{}:
			d.Logger.Info("manual probe triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusAccepted, messageResponse{Message: "probe triggered"}, d.Logger)
		default:
			d.Logger.Warn("probe already in progress",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusTooManyRequests, messageResponse{Message: "probe already in progress"}, d.Logger)
		}
	}
}
