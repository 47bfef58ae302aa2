package report

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	appreport "simpleit/simpledfe_core/internal/application/report"
	httperrors "simpleit/simpledfe_core/internal/infrastructure/http"
)

// Handler bridges HTTP traffic with the report application service.
type Handler struct {
	service *appreport.Service
	log     *slog.Logger
}

// NewHandler creates a new report HTTP handler.
func NewHandler(service *appreport.Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// NFSeTributos handles POST /api/relatorios/nfse-tributos.
func (h *Handler) NFSeTributos(w http.ResponseWriter, r *http.Request) {
	var req appreport.TributosRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.WriteError(w, http.StatusBadRequest, "Erro de Validação", []string{"O corpo da requisição não é válido"}, h.log)
		return
	}

	resp, err := h.service.Tributos(r.Context(), req)
	if err != nil {
		if strings.Contains(err.Error(), "obrigatórios") {
			httperrors.WriteError(w, http.StatusBadRequest, "Erro de Validação", []string{err.Error()}, h.log)
			return
		}
		h.log.Error("report request failed", "error", err, "path", r.URL.Path)
		httperrors.WriteError(w, http.StatusInternalServerError, "Erro Interno do Servidor", []string{"Ocorreu um erro interno"}, h.log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
