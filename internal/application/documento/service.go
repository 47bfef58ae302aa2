package documento

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"simpleit/simpledfe_core/internal/application/danfse"
	coredanfse "simpleit/simpledfe_core/internal/core/danfse"
	"simpleit/simpledfe_core/internal/core/documento"
)

// Normalizer extracts capture fields from a raw NFSe payload and produces
// the canonical normalized record.
type Normalizer interface {
	ExtractImportInfo(xmlContent string) (*danfse.ImportInfo, error)
	Normalize(raw string) (*coredanfse.Documento, error)
}

// Service orchestrates fiscal document capture: import, listing, download
// and dashboard aggregation.
type Service struct {
	repo   documento.Repository
	danfse Normalizer
	log    *slog.Logger
}

// NewService creates a new documento service.
func NewService(repo documento.Repository, normalizer Normalizer, log *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		danfse: normalizer,
		log:    log,
	}
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ListResponse is the paginated document listing payload.
type ListResponse struct {
	Documentos []documento.Documento `json:"documentos"`
	Pagination Pagination            `json:"pagination"`
}

// Listar returns one page of captured documents.
func (s *Service) Listar(ctx context.Context, params documento.ListParams) (*ListResponse, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 || params.Limit > 100 {
		params.Limit = 10
	}
	if params.Tipo == "" {
		params.Tipo = documento.TipoNFSe
	}

	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list documentos: %w", err)
	}

	totalPages := (total + params.Limit - 1) / params.Limit
	if totalPages < 1 {
		totalPages = 1
	}
	return &ListResponse{
		Documentos: items,
		Pagination: Pagination{
			Page:       params.Page,
			Limit:      params.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// ImportResult reports one stored import.
type ImportResult struct {
	ID    int64  `json:"id"`
	Chave string `json:"chave"`
}

// ImportarNFSe validates and stores an uploaded NFSe XML. The payload is
// kept base64-encoded exactly as received; duplicate access keys are
// rejected with documento.ErrDuplicado.
func (s *Service) ImportarNFSe(ctx context.Context, raw []byte) (*ImportResult, error) {
	info, err := s.danfse.ExtractImportInfo(string(raw))
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByChave(ctx, documento.TipoNFSe, info.Chave)
	if err != nil {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: chave %s", documento.ErrDuplicado, info.Chave)
	}

	d := documento.Documento{
		Tipo:           documento.TipoNFSe,
		Chave:          info.Chave,
		DataEmissao:    info.DataEmissao,
		CNPJPrestador:  info.CNPJPrestador,
		NomePrestador:  info.NomePrestador,
		LocalPrestacao: info.LocalPrestacao,
		ValorServico:   info.ValorServico,
		CNPJTomador:    info.CNPJTomador,
		NomeTomador:    info.NomeTomador,
		XMLBase64:      base64.StdEncoding.EncodeToString(raw),
		CreatedAt:      time.Now(),
	}
	id, err := s.repo.Insert(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("insert documento: %w", err)
	}

	s.log.Info("NFSe importada", "documento_id", id, "chave", info.Chave, "cnpj_prestador", info.CNPJPrestador)
	return &ImportResult{ID: id, Chave: info.Chave}, nil
}

// DownloadXML returns the decoded XML payload of a stored document.
func (s *Service) DownloadXML(ctx context.Context, tipo string, id int64) ([]byte, error) {
	d, err := s.repo.FindByID(ctx, tipo, id)
	if err != nil {
		return nil, fmt.Errorf("find documento: %w", err)
	}
	if d == nil {
		return nil, documento.ErrNaoEncontrado
	}

	xml, err := base64.StdEncoding.DecodeString(d.XMLBase64)
	if err != nil {
		return nil, fmt.Errorf("decode stored XML: %w", err)
	}
	return xml, nil
}

// Danfse returns the canonical normalized record for a stored NFSe, the
// same payload the visual renderer consumes.
func (s *Service) Danfse(ctx context.Context, id int64) (*coredanfse.Documento, error) {
	xml, err := s.DownloadXML(ctx, documento.TipoNFSe, id)
	if err != nil {
		return nil, err
	}
	doc, err := s.danfse.Normalize(string(xml))
	if err != nil {
		return nil, fmt.Errorf("normalizar NFSe: %w", err)
	}
	return doc, nil
}

// Stats aggregates the capture store for the dashboard.
func (s *Service) Stats(ctx context.Context) (documento.Stats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return documento.Stats{}, fmt.Errorf("aggregate stats: %w", err)
	}
	return stats, nil
}
