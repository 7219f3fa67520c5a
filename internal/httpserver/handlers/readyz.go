package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/muster/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready   bool `json:"ready"`
	Pending int  `json:"pending"`
}

// Readyz reports 200 once the readiness gate resolved, 503 before.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Orchestrator.Initialized() {
			writeJSON(w, http.StatusOK, readyzResponse{Ready: true}, d.Logger)
			return
		}
		writeJSON(w, http.StatusServiceUnavailable, readyzResponse{
			Ready:   false,
			Pending: d.Orchestrator.Pending(),
		}, d.Logger)
	}
}
