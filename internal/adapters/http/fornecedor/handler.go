package fornecedor

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	appaudit "simpleit/simpledfe_core/internal/application/audit"
	appfornecedor "simpleit/simpledfe_core/internal/application/fornecedor"
	"simpleit/simpledfe_core/internal/core/cnpj"
	"simpleit/simpledfe_core/internal/core/fornecedor"
	httperrors "simpleit/simpledfe_core/internal/infrastructure/http"
	"simpleit/simpledfe_core/internal/infrastructure/http/middleware"
)

// Handler bridges HTTP traffic with the fornecedor application service.
type Handler struct {
	service *appfornecedor.Service
	audit   *appaudit.Service // optional: nil disables action logging
	log     *slog.Logger
}

// NewHandler creates a new fornecedor HTTP handler.
func NewHandler(service *appfornecedor.Service, audit *appaudit.Service, log *slog.Logger) *Handler {
	return &Handler{service: service, audit: audit, log: log}
}

// List handles GET /api/fornecedores.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := fornecedor.ListParams{
		Page:      queryInt(r, "page", 1),
		Limit:     queryInt(r, "limit", 10),
		Search:    r.URL.Query().Get("search"),
		SortBy:    r.URL.Query().Get("sort_by"),
		SortOrder: r.URL.Query().Get("sort_order"),
	}

	resp, err := h.service.Listar(r.Context(), params)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// PreCadastro handles POST /api/fornecedores/{id}/pre-cadastro. The body of
// the response is always the structured ERP outcome; HTTP errors are
// reserved for problems before the ERP call (missing vendor, registry
// lookup failures).
func (h *Handler) PreCadastro(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httperrors.WriteError(w, http.StatusBadRequest, "Erro de Validação", []string{"id inválido"}, h.log)
		return
	}

	res, err := h.service.PreCadastro(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	if claims, ok := middleware.GetUser(r.Context()); ok && h.audit != nil {
		h.audit.RegistrarPreCadastro(&claims.UserID, claims.Username, res.CNPJ, res.Success, clientIP(r), r.UserAgent())
	}

	writeJSON(w, http.StatusOK, res)
}

// VerificarERP handles POST /api/fornecedores/verificar-erp.
func (h *Handler) VerificarERP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CNPJ string `json:"cnpj"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.CNPJ) == "" {
		httperrors.WriteError(w, http.StatusBadRequest, "Erro de Validação", []string{"cnpj é obrigatório"}, h.log)
		return
	}

	writeJSON(w, http.StatusOK, h.service.VerificarERP(r.Context(), req.CNPJ))
}

// ERPLog handles GET /api/fornecedores/erp-log/{cnpj}.
func (h *Handler) ERPLog(w http.ResponseWriter, r *http.Request) {
	cnpjParam := chi.URLParam(r, "cnpj")
	if cnpjParam == "" {
		httperrors.WriteError(w, http.StatusBadRequest, "Erro de Validação", []string{"cnpj é obrigatório"}, h.log)
		return
	}

	entries := h.service.ERPLog(cnpjParam)
	writeJSON(w, http.StatusOK, map[string]any{
		"cnpj": cnpjParam,
		"log":  entries,
	})
}

// handleError maps domain errors to HTTP status codes.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, fornecedor.ErrNaoEncontrado):
		httperrors.WriteError(w, http.StatusNotFound, "Não Encontrado", []string{"Fornecedor não encontrado"}, h.log)
	case errors.Is(err, cnpj.ErrCNPJInvalido):
		httperrors.WriteError(w, http.StatusBadRequest, "Erro de Validação", []string{cnpj.ErrCNPJInvalido.Error()}, h.log)
	case errors.Is(err, cnpj.ErrNaoEncontrado):
		httperrors.WriteError(w, http.StatusNotFound, "Não Encontrado", []string{cnpj.ErrNaoEncontrado.Error()}, h.log)
	case errors.Is(err, cnpj.ErrLimiteConsultas):
		httperrors.WriteError(w, http.StatusTooManyRequests, "Limite de Consultas", []string{cnpj.ErrLimiteConsultas.Error()}, h.log)
	default:
		h.log.Error("fornecedor request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		httperrors.WriteError(w, http.StatusInternalServerError, "Erro Interno do Servidor", []string{"Ocorreu um erro interno"}, h.log)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func queryInt(r *http.Request, key string, fallback int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}
