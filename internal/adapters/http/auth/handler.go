package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	appaudit "simpleit/simpledfe_core/internal/application/audit"
	appuser "simpleit/simpledfe_core/internal/application/user"
	"simpleit/simpledfe_core/internal/core/user"
	httperrors "simpleit/simpledfe_core/internal/infrastructure/http"
	"simpleit/simpledfe_core/internal/infrastructure/http/middleware"
)

// Handler bridges HTTP traffic with the user application service.
type Handler struct {
	service *appuser.Service
	audit   *appaudit.Service // optional: nil disables action logging
	log     *slog.Logger
}

// NewHandler creates a new auth HTTP handler.
func NewHandler(service *appuser.Service, audit *appaudit.Service, log *slog.Logger) *Handler {
	return &Handler{service: service, audit: audit, log: log}
}

// LoginRequest is the credential payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the session token and the authenticated user.
type LoginResponse struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req appuser.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.WriteError(w, http.StatusBadRequest, "Erro de Validação", []string{"O corpo da requisição não é válido"}, h.log)
		return
	}

	u, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, u)
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.WriteError(w, http.StatusBadRequest, "Erro de Validação", []string{"O corpo da requisição não é válido"}, h.log)
		return
	}
	if req.Username == "" || req.Password == "" {
		httperrors.WriteError(w, http.StatusBadRequest, "Erro de Validação", []string{"username e password são obrigatórios"}, h.log)
		return
	}

	token, u, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	if h.audit != nil {
		h.audit.RegistrarAcesso(&u.ID, u.Username, "login", clientIP(r), r.UserAgent())
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: u})
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUser(r.Context())
	if !ok {
		httperrors.WriteError(w, http.StatusUnauthorized, "Erro de Autenticação", []string{"Sessão não identificada"}, h.log)
		return
	}

	u, err := h.service.Me(r.Context(), claims.UserID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, u)
}

// Logout handles POST /api/auth/logout. Sessions are stateless JWTs; the
// endpoint exists so the client flow and the audit trail see an explicit
// logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if claims, ok := middleware.GetUser(r.Context()); ok && h.audit != nil {
		h.audit.RegistrarAcesso(&claims.UserID, claims.Username, "logout", clientIP(r), r.UserAgent())
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout realizado com sucesso"})
}

// ForgotPassword handles POST /api/auth/forgot-password.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		httperrors.WriteError(w, http.StatusBadRequest, "Erro de Validação", []string{"email é obrigatório"}, h.log)
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		h.handleError(w, r, err)
		return
	}

	// Same response whether or not the address exists.
	writeJSON(w, http.StatusOK, map[string]string{"message": "Se o email existir, você receberá instruções para redefinir a senha"})
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" || req.Password == "" {
		httperrors.WriteError(w, http.StatusBadRequest, "Erro de Validação", []string{"token e password são obrigatórios"}, h.log)
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Senha redefinida com sucesso"})
}

// handleError maps domain errors to HTTP status codes.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, user.ErrCredenciaisInvalidas):
		httperrors.WriteError(w, http.StatusUnauthorized, "Erro de Autenticação", []string{"Usuário ou senha inválidos"}, h.log)
	case errors.Is(err, user.ErrUsuarioInativo):
		httperrors.WriteError(w, http.StatusForbidden, "Erro de Autenticação", []string{"Usuário inativo"}, h.log)
	case errors.Is(err, user.ErrUsuarioExiste):
		httperrors.WriteError(w, http.StatusConflict, "Erro de Validação", []string{"Usuário ou email já cadastrado"}, h.log)
	case errors.Is(err, user.ErrTokenInvalido):
		httperrors.WriteError(w, http.StatusBadRequest, "Erro de Validação", []string{"Token de redefinição inválido ou expirado"}, h.log)
	case errors.Is(err, user.ErrNaoEncontrado):
		httperrors.WriteError(w, http.StatusNotFound, "Não Encontrado", []string{"Usuário não encontrado"}, h.log)
	case strings.Contains(err.Error(), "obrigatório") || strings.Contains(err.Error(), "senha deve"):
		httperrors.WriteError(w, http.StatusBadRequest, "Erro de Validação", []string{err.Error()}, h.log)
	default:
		h.log.Error("auth request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		httperrors.WriteError(w, http.StatusInternalServerError, "Erro Interno do Servidor", []string{"Ocorreu um erro interno"}, h.log)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}
