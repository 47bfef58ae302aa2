package audit

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	appaudit "simpleit/simpledfe_core/internal/application/audit"
	"simpleit/simpledfe_core/internal/core/audit"
	httperrors "simpleit/simpledfe_core/internal/infrastructure/http"
)

// Handler exposes the user-action audit trail.
type Handler struct {
	service *appaudit.Service
	log     *slog.Logger
}

// NewHandler creates a new audit HTTP handler.
func NewHandler(service *appaudit.Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// List handles GET /api/audit-logs.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := audit.ActionListParams{
		Page:     queryInt(r, "page", 1),
		Limit:    queryInt(r, "limit", 20),
		Username: r.URL.Query().Get("username"),
		Acao:     r.URL.Query().Get("acao"),
		DataIni:  r.URL.Query().Get("data_inicio"),
		DataFim:  r.URL.Query().Get("data_fim"),
	}

	resp, err := h.service.Listar(r.Context(), params)
	if err != nil {
		h.log.Error("audit listing failed", "error", err)
		httperrors.WriteError(w, http.StatusInternalServerError, "Erro Interno do Servidor", []string{"Ocorreu um erro interno"}, h.log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

func queryInt(r *http.Request, key string, fallback int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}
