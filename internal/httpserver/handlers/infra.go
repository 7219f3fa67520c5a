package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/muster/internal/domain"
	"github.com/MrSnakeDoc/muster/internal/httpserver/deps"
)

type componentStatus struct {
	OK        bool   `json:"ok"`
	Address   string `json:"address,omitempty"`
	Reachable *bool  `json:"reachable,omitempty"`
	Error     string `json:"error,omitempty"`
}

type infraResponse struct {
	Initialized bool                       `json:"initialized"`
	Pending     int                        `json:"pending"`
	Services    int                        `json:"services"`
	Running     int                        `json:"running"`
	LastProbe   string                     `json:"last_probe,omitempty"`
	External    map[string]componentStatus `json:"external"`
}

// Infra summarizes the orchestrator and the external services it knows of.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all := d.Orchestrator.AllServices()
		resp := infraResponse{
			Initialized: d.Orchestrator.Initialized(),
			Pending:     d.Orchestrator.Pending(),
			Services:    len(all),
			External:    make(map[string]componentStatus),
		}

		for _, svc := range all {
			if svc.State() == domain.StateRunning {
				resp.Running++
			}
			if svc.Description.External {
				resp.External[svc.Name()] = externalStatus(svc)
			}
		}

		if d.Prober != nil {
			resp.LastProbe = "never"
			if last := d.Prober.LastRound(); !last.IsZero() {
				resp.LastProbe = last.Format("2006-01-02 15:04:05")
			}
		}

		writeJSON(w, http.StatusOK, resp, d.Logger)
	}
}

func externalStatus(svc *domain.Service) componentStatus {
	st := componentStatus{OK: true}
	if len(svc.Description.Bindings) > 0 {
		st.Address = svc.Description.Bindings[0].Address
	}
	if r := svc.Reachable(); r != nil {
		st.Reachable = r
		st.OK = *r
		if !*r {
			st.Error = "not answering"
		}
	}
	return st
}
