package middleware

import (
	"encoding/json"
	"net/http"
)

// writeError pakai bentuk {"error": "..."} yang sama dengan handler
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
