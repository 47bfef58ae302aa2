package report

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	appdanfse "simpleit/simpledfe_core/internal/application/danfse"
	"simpleit/simpledfe_core/internal/core/danfse"
	"simpleit/simpledfe_core/internal/core/documento"
)

// Service builds withheld-tax reports over the captured NFSe store.
type Service struct {
	repo    documento.Repository
	danfse  *appdanfse.Service
	workers int
	log     *slog.Logger
}

// NewService creates a new report service. workers bounds the concurrent
// XML extractions per report run.
func NewService(repo documento.Repository, normalizer *appdanfse.Service, workers int, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		danfse:  normalizer,
		workers: workers,
		log:     log,
	}
}

// TributosRequest selects the report period and optional tomador filter.
type TributosRequest struct {
	DataInicio  string `json:"dataInicio"`
	DataFim     string `json:"dataFim"`
	CNPJTomador string `json:"cnpjTomador,omitempty"`
}

// EmpresaTributos aggregates the withheld taxes of one tomador company.
type EmpresaTributos struct {
	CNPJTomador     string          `json:"cnpj_tomadora"`
	NomeTomador     string          `json:"nome_tomadora"`
	QuantidadeNotas int             `json:"quantidade_notas"`
	ValorServicos   float64         `json:"valor_servicos"`
	Tributos        danfse.Tributos `json:"tributos"`
	TotalTributos   float64         `json:"total_tributos"`
}

// TributosResponse is the complete tax report payload.
type TributosResponse struct {
	DataInicio    string            `json:"dataInicio"`
	DataFim       string            `json:"dataFim"`
	Empresas      []EmpresaTributos `json:"empresas"`
	TotalNotas    int               `json:"total_notas"`
	ValorServicos float64           `json:"valor_servicos"`
	Tributos      danfse.Tributos   `json:"tributos"`
	TotalTributos float64           `json:"total_tributos"`
}

// Tributos builds the withheld-tax report for the period. Documents whose
// XML no longer parses contribute zeroed taxes; the report never aborts on
// a single broken payload.
func (s *Service) Tributos(ctx context.Context, req TributosRequest) (*TributosResponse, error) {
	if req.DataInicio == "" || req.DataFim == "" {
		return nil, fmt.Errorf("dataInicio e dataFim são obrigatórios")
	}

	docs, err := s.repo.ListByPeriodo(ctx, req.DataInicio, req.DataFim, req.CNPJTomador)
	if err != nil {
		return nil, fmt.Errorf("list documentos por período: %w", err)
	}

	pool := newExtractPool(s.workers, s.extractTributos)
	results := pool.run(ctx, docs)

	resp := &TributosResponse{
		DataInicio: req.DataInicio,
		DataFim:    req.DataFim,
		Empresas:   make([]EmpresaTributos, 0),
	}

	index := make(map[string]int)
	for _, res := range results {
		if res.Doc.ID == 0 {
			continue
		}
		key := res.Doc.CNPJTomador

		i, ok := index[key]
		if !ok {
			i = len(resp.Empresas)
			index[key] = i
			resp.Empresas = append(resp.Empresas, EmpresaTributos{
				CNPJTomador: res.Doc.CNPJTomador,
				NomeTomador: res.Doc.NomeTomador,
			})
		}

		e := &resp.Empresas[i]
		e.QuantidadeNotas++
		e.ValorServicos += res.Doc.ValorServico
		addTributos(&e.Tributos, res.Tributos)

		resp.TotalNotas++
		resp.ValorServicos += res.Doc.ValorServico
		addTributos(&resp.Tributos, res.Tributos)
	}

	for i := range resp.Empresas {
		resp.Empresas[i].TotalTributos = resp.Empresas[i].Tributos.Total()
	}
	resp.TotalTributos = resp.Tributos.Total()

	s.log.Info("relatório de tributos gerado",
		"data_inicio", req.DataInicio,
		"data_fim", req.DataFim,
		"notas", resp.TotalNotas,
		"empresas", len(resp.Empresas))
	return resp, nil
}

// extractTributos decodes one stored payload and pulls its tax values.
// Any decode or parse failure yields zeroed taxes.
func (s *Service) extractTributos(xmlBase64 string) danfse.Tributos {
	raw, err := base64.StdEncoding.DecodeString(xmlBase64)
	if err != nil {
		s.log.Warn("XML armazenado ilegível no relatório", "error", err)
		return danfse.Tributos{}
	}
	t, err := s.danfse.Tributos(string(raw))
	if err != nil {
		s.log.Warn("XML armazenado não parseável no relatório", "error", err)
		return danfse.Tributos{}
	}
	return t
}

func addTributos(dst *danfse.Tributos, src danfse.Tributos) {
	dst.Iss += src.Iss
	dst.Pis += src.Pis
	dst.Cofins += src.Cofins
	dst.Inss += src.Inss
	dst.Irrf += src.Irrf
	dst.Csll += src.Csll
}
