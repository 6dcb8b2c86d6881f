package http_server

import (
	"encoding/json"
	"net/http"

	"edmoserver/internal/obs"
)

func sendResponseAsJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		obs.Errorf("encoding JSON response: %v", err)
	}
}
