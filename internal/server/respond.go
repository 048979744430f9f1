package server

import (
	"encoding/json"
	"net/http"

	"github.com/Chaouesrex/spotify-gpt-bridge/internal/services"
)

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error envelope with the given status.
func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// relay writes an upstream response outward with its original status and
// body. Upstream error bodies are meaningful to the caller and are never
// rewritten.
func relay(w http.ResponseWriter, resp *services.APIResponse) {
	if resp.IsJSON {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}

// relayStatus writes an upstream status/body pair (from a dispatcher
// UpstreamError) outward unchanged.
func relayStatus(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
