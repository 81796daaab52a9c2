package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"wastelog/backend/services/dashboard-service/internal/clients"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeUpstreamError maps a Node-RED failure onto the response. A 404 from
// upstream stays a 404, everything else is a bad gateway.
func writeUpstreamError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, clients.ErrNotFound) {
		writeError(w, http.StatusNotFound, notFound)
		return
	}
	writeError(w, http.StatusBadGateway, "node-red unavailable")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(target)
}
