package fornecedor

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"simpleit/simpledfe_core/internal/core/cnpj"
	"simpleit/simpledfe_core/internal/core/erp"
	"simpleit/simpledfe_core/internal/core/fornecedor"
	"simpleit/simpledfe_core/internal/infrastructure/cache"
)

var nonDigits = regexp.MustCompile(`\D`)

// Service orchestrates pending-vendor use cases: listing, ERP
// pre-registration and ERP-side verification.
type Service struct {
	repo     fornecedor.Repository
	cnpjSvc  cnpj.Service
	erpSvc   erp.Service
	verifier erp.Verifier
	debug    *cache.DebugBuffer
	log      *slog.Logger
}

// NewService creates a new fornecedor service.
func NewService(repo fornecedor.Repository, cnpjSvc cnpj.Service, erpSvc erp.Service, verifier erp.Verifier, debug *cache.DebugBuffer, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		cnpjSvc:  cnpjSvc,
		erpSvc:   erpSvc,
		verifier: verifier,
		debug:    debug,
		log:      log,
	}
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ListResponse is the paginated vendor listing payload.
type ListResponse struct {
	Fornecedores []fornecedor.Fornecedor `json:"fornecedores"`
	Pagination   Pagination              `json:"pagination"`
}

// Listar returns one page of pending vendors.
func (s *Service) Listar(ctx context.Context, params fornecedor.ListParams) (*ListResponse, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 || params.Limit > 100 {
		params.Limit = 10
	}

	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list fornecedores: %w", err)
	}

	totalPages := (total + params.Limit - 1) / params.Limit
	if totalPages < 1 {
		totalPages = 1
	}
	return &ListResponse{
		Fornecedores: items,
		Pagination: Pagination{
			Page:       params.Page,
			Limit:      params.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// PreCadastroResponse pairs the ERP outcome with the vendor it refers to.
type PreCadastroResponse struct {
	erp.Resultado
	CNPJ string `json:"cnpj"`
}

// PreCadastro looks up the vendor's registration data and submits it to the
// ERP. The ERP outcome is always a structured result; only missing vendors
// and registry failures surface as errors.
func (s *Service) PreCadastro(ctx context.Context, id int64) (PreCadastroResponse, error) {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return PreCadastroResponse{}, fmt.Errorf("find fornecedor: %w", err)
	}
	if f == nil {
		return PreCadastroResponse{}, fornecedor.ErrNaoEncontrado
	}

	empresa, err := s.cnpjSvc.Consultar(ctx, f.CNPJ)
	if err != nil {
		return PreCadastroResponse{CNPJ: f.CNPJ}, fmt.Errorf("consultar CNPJ: %w", err)
	}

	res := s.erpSvc.PreCadastro(ctx, *empresa)
	if res.Success && res.ERPCode != "" {
		if err := s.repo.UpdateCodigoERP(ctx, f.ID, res.ERPCode); err != nil {
			// The ERP accepted the record; losing the local code is
			// recoverable via the verification webhook.
			s.log.Error("falha ao gravar código do ERP", "fornecedor_id", f.ID, "error", err)
		}
	}
	return PreCadastroResponse{Resultado: res, CNPJ: f.CNPJ}, nil
}

// VerificacaoResponse reports whether the ERP already has the vendor.
type VerificacaoResponse struct {
	Cadastrado bool   `json:"cadastrado"`
	CodigoERP  string `json:"codcfo,omitempty"`
}

// VerificarERP asks the ERP-side webhook whether the vendor is registered.
// When it is, the pending row is removed. Webhook failures are reported as
// not registered so the vendor stays pending.
func (s *Service) VerificarERP(ctx context.Context, rawCNPJ string) VerificacaoResponse {
	digits := nonDigits.ReplaceAllString(rawCNPJ, "")

	codigo, found, err := s.verifier.VerificarCadastro(ctx, digits)
	if err != nil {
		s.log.Warn("verificação no ERP falhou", "cnpj", digits, "error", err)
		return VerificacaoResponse{Cadastrado: false}
	}
	if !found {
		return VerificacaoResponse{Cadastrado: false}
	}

	if err := s.repo.DeleteByCNPJ(ctx, digits); err != nil {
		s.log.Error("falha ao remover fornecedor já cadastrado", "cnpj", digits, "error", err)
	} else {
		s.log.Info("fornecedor confirmado no ERP e removido da fila", "cnpj", digits, "codcfo", codigo)
	}
	return VerificacaoResponse{Cadastrado: true, CodigoERP: codigo}
}

// ERPLog returns the captured ERP exchanges for a CNPJ, newest last.
func (s *Service) ERPLog(rawCNPJ string) []cache.DebugEntry {
	digits := nonDigits.ReplaceAllString(rawCNPJ, "")
	return s.debug.Get(digits)
}
