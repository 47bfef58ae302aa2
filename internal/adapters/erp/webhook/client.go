package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	infrahttp "simpleit/simpledfe_core/internal/infrastructure/http"
)

// Client consults the ERP-side automation webhook that reports whether a
// vendor already exists for a CNPJ. The webhook answers with a JSON object
// carrying CODCFO when the vendor is registered.
type Client struct {
	endpoint string
	http     *http.Client
	log      *slog.Logger
}

// NewClient creates a webhook verifier. timeout of zero falls back to 30s.
func NewClient(endpoint string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		http:     infrahttp.NewClient(&infrahttp.ClientConfig{Timeout: timeout}),
		log:      log,
	}
}

// VerificarCadastro implements erp.Verifier.
func (c *Client) VerificarCadastro(ctx context.Context, cnpj string) (string, bool, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", false, fmt.Errorf("endereço do webhook inválido: %w", err)
	}
	q := u.Query()
	q.Set("cnpj", cnpj)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("erro ao consultar webhook do ERP: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", false, fmt.Errorf("webhook do ERP respondeu status %d", resp.StatusCode)
	}

	var payload struct {
		CODCFO string `json:"CODCFO"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		// Some automation runs answer with an array of rows.
		var rows []struct {
			CODCFO string `json:"CODCFO"`
		}
		if err2 := json.Unmarshal(body, &rows); err2 != nil || len(rows) == 0 {
			c.log.Warn("resposta inesperada do webhook do ERP", "status", resp.StatusCode)
			return "", false, nil
		}
		payload.CODCFO = rows[0].CODCFO
	}

	if payload.CODCFO == "" {
		return "", false, nil
	}
	return payload.CODCFO, true, nil
}
