package health

import (
	"encoding/json"
	"net/http"

	apphealth "simpleit/simpledfe_core/internal/application/health"
)

// Handler serves the unauthenticated availability probe.
type Handler struct {
	service *apphealth.Service
}

func NewHandler(service *apphealth.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.service.Status(r.Context()))
}
