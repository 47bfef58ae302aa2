package documento

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	appaudit "simpleit/simpledfe_core/internal/application/audit"
	appdocumento "simpleit/simpledfe_core/internal/application/documento"
	"simpleit/simpledfe_core/internal/core/danfse"
	"simpleit/simpledfe_core/internal/core/documento"
	httperrors "simpleit/simpledfe_core/internal/infrastructure/http"
	"simpleit/simpledfe_core/internal/infrastructure/http/middleware"
)

// maxUploadSize limits NFSe XML uploads.
const maxUploadSize = 10 << 20

// Handler bridges HTTP traffic with the documento application service.
type Handler struct {
	service *appdocumento.Service
	audit   *appaudit.Service // optional: nil disables action logging
	log     *slog.Logger
}

// NewHandler creates a new documento HTTP handler.
func NewHandler(service *appdocumento.Service, audit *appaudit.Service, log *slog.Logger) *Handler {
	return &Handler{service: service, audit: audit, log: log}
}

// List handles GET /api/{tipo} for nfse, nfe and cte.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := documento.ListParams{
		Tipo:       chi.URLParam(r, "tipo"),
		Page:       queryInt(r, "page", 1),
		Limit:      queryInt(r, "limit", 10),
		Search:     r.URL.Query().Get("search"),
		CNPJ:       r.URL.Query().Get("cnpj"),
		DataInicio: r.URL.Query().Get("data_inicio"),
		DataFim:    r.URL.Query().Get("data_fim"),
		SortBy:     r.URL.Query().Get("sort_by"),
		SortOrder:  r.URL.Query().Get("sort_order"),
	}

	resp, err := h.service.Listar(r.Context(), params)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Import handles POST /api/nfse/import. Accepts a multipart upload with the
// XML under the "file" field, or a raw XML body.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	raw, err := readUpload(r)
	if err != nil {
		httperrors.WriteError(w, http.StatusBadRequest, "Erro de Validação", []string{err.Error()}, h.log)
		return
	}

	result, err := h.service.ImportarNFSe(r.Context(), raw)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	if claims, ok := middleware.GetUser(r.Context()); ok && h.audit != nil {
		h.audit.RegistrarImportacao(&claims.UserID, claims.Username, result.Chave, clientIP(r), r.UserAgent())
	}

	writeJSON(w, http.StatusCreated, result)
}

// DownloadXML handles GET /api/{tipo}/{id}/xml.
func (h *Handler) DownloadXML(w http.ResponseWriter, r *http.Request) {
	tipo := chi.URLParam(r, "tipo")
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httperrors.WriteError(w, http.StatusBadRequest, "Erro de Validação", []string{"id inválido"}, h.log)
		return
	}

	xml, err := h.service.DownloadXML(r.Context(), tipo, id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-%d.xml", tipo, id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(xml)
}

// Danfse handles GET /api/nfse/{id}/danfse, exposing the canonical
// normalized record the visual renderer consumes.
func (h *Handler) Danfse(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httperrors.WriteError(w, http.StatusBadRequest, "Erro de Validação", []string{"id inválido"}, h.log)
		return
	}

	doc, err := h.service.Danfse(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// Stats handles GET /api/dashboard/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// readUpload pulls the XML payload out of the request, multipart or raw.
func readUpload(r *http.Request) ([]byte, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			return nil, errors.New("formulário multipart inválido")
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, errors.New("arquivo XML é obrigatório (campo 'file')")
		}
		defer file.Close()

		raw, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
		if err != nil {
			return nil, errors.New("falha ao ler o arquivo enviado")
		}
		if len(raw) == 0 {
			return nil, errors.New("arquivo XML vazio")
		}
		return raw, nil
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxUploadSize))
	if err != nil || len(raw) == 0 {
		return nil, errors.New("corpo da requisição vazio")
	}
	return raw, nil
}

// handleError maps domain errors to HTTP status codes.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, documento.ErrDuplicado):
		httperrors.WriteError(w, http.StatusConflict, "Documento Duplicado", []string{"Esta NFSe já foi importada"}, h.log)
	case errors.Is(err, documento.ErrNaoEncontrado):
		httperrors.WriteError(w, http.StatusNotFound, "Não Encontrado", []string{"Documento não encontrado"}, h.log)
	case errors.Is(err, danfse.ErrXMLMalformado):
		httperrors.WriteError(w, http.StatusBadRequest, "Erro de Validação", []string{"O XML enviado está malformado"}, h.log)
	case errors.Is(err, danfse.ErrLayoutDesconhecido):
		httperrors.WriteError(w, http.StatusBadRequest, "Erro de Validação", []string{"Layout de NFSe não reconhecido"}, h.log)
	case strings.Contains(err.Error(), "tipo de documento desconhecido"):
		httperrors.WriteError(w, http.StatusBadRequest, "Erro de Validação", []string{"Tipo de documento inválido"}, h.log)
	default:
		h.log.Error("documento request failed", "error", err, "method", r.Method, "path", r.URL.Path)
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
