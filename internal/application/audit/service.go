package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"simpleit/simpledfe_core/internal/core/audit"
)

// Service records and lists user action audit entries. Writes are
// fire-and-forget: an unavailable audit store never breaks the main flow.
type Service struct {
	repo audit.ActionRepository
	log  *slog.Logger
}

// NewService creates a new audit service.
func NewService(repo audit.ActionRepository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Registrar persists one action entry asynchronously.
func (s *Service) Registrar(entry audit.UserActionLog) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("pânico na gravação de auditoria", "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.SaveAction(ctx, entry); err != nil {
			s.log.Warn("falha ao gravar auditoria", "acao", entry.Acao, "error", err)
		}
	}()
}

// RegistrarAcesso records a menu or screen access.
func (s *Service) RegistrarAcesso(userID *int64, username, recurso, ip, userAgent string) {
	s.Registrar(audit.UserActionLog{
		UserID:    userID,
		Username:  username,
		Acao:      "acesso",
		Detalhes:  recurso,
		IP:        ip,
		UserAgent: userAgent,
	})
}

// RegistrarImportacao records a document import.
func (s *Service) RegistrarImportacao(userID *int64, username, chave, ip, userAgent string) {
	s.Registrar(audit.UserActionLog{
		UserID:    userID,
		Username:  username,
		Acao:      "importacao",
		Detalhes:  fmt.Sprintf("chave %s", chave),
		IP:        ip,
		UserAgent: userAgent,
	})
}

// RegistrarPreCadastro records an ERP pre-registration attempt.
func (s *Service) RegistrarPreCadastro(userID *int64, username, cnpj string, sucesso bool, ip, userAgent string) {
	detalhe := "falha"
	if sucesso {
		detalhe = "sucesso"
	}
	s.Registrar(audit.UserActionLog{
		UserID:    userID,
		Username:  username,
		Acao:      "pre_cadastro_erp",
		Detalhes:  fmt.Sprintf("cnpj %s: %s", cnpj, detalhe),
		IP:        ip,
		UserAgent: userAgent,
	})
}

// ListResponse is the paginated audit trail payload.
type ListResponse struct {
	Logs       []audit.UserActionLog `json:"logs"`
	Page       int                   `json:"page"`
	Limit      int                   `json:"limit"`
	Total      int                   `json:"total"`
	TotalPages int                   `json:"totalPages"`
}

// Listar returns one page of the audit trail.
func (s *Service) Listar(ctx context.Context, params audit.ActionListParams) (*ListResponse, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 || params.Limit > 100 {
		params.Limit = 20
	}

	logs, total, err := s.repo.ListActions(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}

	totalPages := (total + params.Limit - 1) / params.Limit
	if totalPages < 1 {
		totalPages = 1
	}
	return &ListResponse{
		Logs:       logs,
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}
