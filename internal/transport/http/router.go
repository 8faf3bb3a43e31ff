// Package httptransport is the admin/CLI collaborator surface: community
// configuration, status, user-initiated verification prompts, and the
// operational endpoints. It delegates to the admin and verify services
// without embedding business logic.
package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires all endpoints. Admin routes sit behind the JWT middleware;
// status and verification requests are unprivileged per the command contract.
func NewRouter(h *Handler, adminJWTKey string) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/communities/{communityID}", func(r chi.Router) {
		r.Get("/status", h.handleStatus)
		r.Post("/verification-requests", h.handleRequestVerification)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin(adminJWTKey))
			r.Put("/role", h.handleSetRole)
			r.Post("/onjoin/enable", h.handleEnableOnJoin)
			r.Post("/onjoin/disable", h.handleDisableOnJoin)
			r.Post("/domains", h.handleAddDomain)
			r.Delete("/domains/{domain}", h.handleRemoveDomain)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
