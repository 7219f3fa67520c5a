package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/muster/internal/logger"
)

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any, log logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("failed to write response", logger.Error(err))
	}
}

func unknownService(w http.ResponseWriter, name string, log logger.Logger) {
	writeJSON(w, http.StatusNotFound, messageResponse{Message: "Unknown service " + name}, log)
}
