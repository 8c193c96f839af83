package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/socialhub/client/internal/auth"
)

// HealthHandler responds with the client's health and session state.
type HealthHandler struct {
	State func() auth.State
}

// Handle implements GET /healthz.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	payload := map[string]string{
		"status": "ok",
	}
	if h.State != nil {
		payload["session"] = h.State().String()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
