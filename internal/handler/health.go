package handler

import "net/http"

// Health answers liveness probes. It never calls MyParcel.
func Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
