package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"simpleit/simpledfe_core/internal/core/cnpj"
	"simpleit/simpledfe_core/internal/core/erp"
	infrahttp "simpleit/simpledfe_core/internal/infrastructure/http"
)

var nonDigits = regexp.MustCompile(`\D`)

// Doer abstracts the HTTP transport so the traced client can stand in.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// client consults the ReceitaWS public API for company registration data.
type client struct {
	baseURL string
	http    Doer
	log     *slog.Logger
	sem     chan struct{}
}

// NewClient creates a ReceitaWS lookup client. maxConcurrent bounds the
// number of in-flight lookups; the free tier throttles aggressively.
func NewClient(baseURL string, timeout time.Duration, maxConcurrent int, log *slog.Logger) cnpj.Service {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return NewClientWithTransport(baseURL,
		infrahttp.NewClient(&infrahttp.ClientConfig{Timeout: timeout}),
		maxConcurrent, log)
}

// NewClientWithTransport creates a lookup client over an injected transport,
// used to route lookups through the traced audit client.
func NewClientWithTransport(baseURL string, doer Doer, maxConcurrent int, log *slog.Logger) cnpj.Service {
	if baseURL == "" {
		baseURL = "https://receitaws.com.br/v1/cnpj"
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	return &client{
		baseURL: baseURL,
		http:    doer,
		log:     log,
		sem:     make(chan struct{}, maxConcurrent),
	}
}

type receitaWSResponse struct {
	Status             string `json:"status"`
	Message            string `json:"message"`
	Nome               string `json:"nome"`
	Fantasia           string `json:"fantasia"`
	Logradouro         string `json:"logradouro"`
	Numero             string `json:"numero"`
	Bairro             string `json:"bairro"`
	Municipio          string `json:"municipio"`
	UF                 string `json:"uf"`
	CEP                string `json:"cep"`
	Telefone           string `json:"telefone"`
	Email              string `json:"email"`
	Situacao           string `json:"situacao"`
	CodigoMunicipio    string `json:"codigo_municipio"`
	InscricaoMunicipal string `json:"inscricao_municipal"`
}

// Consultar implements cnpj.Service.
func (c *client) Consultar(ctx context.Context, raw string) (*erp.Empresa, error) {
	digits := nonDigits.ReplaceAllString(raw, "")
	if len(digits) != 14 {
		return nil, cnpj.ErrCNPJInvalido
	}

	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, digits)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("erro ao consultar ReceitaWS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		c.log.Warn("limite de consultas da ReceitaWS atingido", "cnpj", digits)
		return nil, cnpj.ErrLimiteConsultas
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ReceitaWS respondeu status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var data receitaWSResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("resposta inválida da ReceitaWS: %w", err)
	}
	if data.Status == "ERROR" {
		c.log.Info("CNPJ não encontrado na ReceitaWS", "cnpj", digits, "message", data.Message)
		return nil, cnpj.ErrNaoEncontrado
	}

	return &erp.Empresa{
		CNPJ:               digits,
		Nome:               data.Nome,
		Fantasia:           data.Fantasia,
		Logradouro:         data.Logradouro,
		Numero:             data.Numero,
		Bairro:             data.Bairro,
		Municipio:          data.Municipio,
		UF:                 data.UF,
		CEP:                data.CEP,
		Telefone:           data.Telefone,
		Email:              data.Email,
		Situacao:           data.Situacao,
		CodigoMunicipio:    data.CodigoMunicipio,
		InscricaoMunicipal: data.InscricaoMunicipal,
	}, nil
}
