package soap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"simpleit/simpledfe_core/internal/core/erp"
	"simpleit/simpledfe_core/internal/infrastructure/cache"
)

const (
	msgSuccess      = "Pré-cadastro realizado com sucesso no ERP"
	msgConnectivity = "Erro de conexão com o ERP. Verifique sua internet e tente novamente."
	msgTimeout      = "Tempo limite excedido. O ERP pode estar temporariamente indisponível."
	msgNotFound     = "Serviço do ERP não encontrado. Verifique o endereço configurado."
	msgAuth         = "Falha de autenticação no ERP. Verifique as credenciais."
	msgServerError  = "Erro interno do ERP. Tente novamente mais tarde."
)

var (
	faultRe      = regexp.MustCompile(`(?s)<faultstring[^>]*>(.*?)</faultstring>`)
	saveResultRe = regexp.MustCompile(`(?s)<SaveRecordResult[^>]*>(.*?)</SaveRecordResult>`)
	codcfoRe     = regexp.MustCompile(`<CODCFO>(\d+)</CODCFO>`)
	digitsRe     = regexp.MustCompile(`\D`)
)

// Config carries the TOTVS SOAP endpoint settings.
type Config struct {
	Endpoint    string
	Username    string
	Password    string
	CodColigada string
	Timeout     time.Duration
}

// Doer abstracts the HTTP transport so tests and traced clients can stand in.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client submits vendor pre-registrations to the TOTVS ERP over SOAP.
type Client struct {
	cfg     Config
	http    Doer
	breaker *circuitBreaker
	debug   *cache.DebugBuffer
	log     *slog.Logger
	now     func() time.Time
}

// NewClient creates a SOAP client for the TOTVS FinCFODataBr data server.
// debug may be nil when exchange capture is disabled.
func NewClient(cfg Config, doer Doer, debug *cache.DebugBuffer, log *slog.Logger) *Client {
	if cfg.CodColigada == "" {
		cfg.CodColigada = "1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if doer == nil {
		doer = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		cfg:     cfg,
		http:    doer,
		breaker: newCircuitBreaker(5, 30*time.Second),
		debug:   debug,
		log:     log,
		now:     time.Now,
	}
}

// PreCadastro implements erp.Service.
func (c *Client) PreCadastro(ctx context.Context, empresa erp.Empresa) erp.Resultado {
	envelope := buildEnvelope(empresa, c.cfg.CodColigada, c.cfg.Username, c.now())
	key := digitsRe.ReplaceAllString(empresa.CNPJ, "")

	var (
		statusCode int
		respBody   string
	)

	err := c.breaker.Execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, strings.NewReader(envelope))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "text/xml; charset=utf-8")
		req.Header.Set("SOAPAction", `""`)
		req.Header.Set("User-Agent", "SimpleDFe/1.0")
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		statusCode = resp.StatusCode
		respBody = string(body)
		return nil
	})

	var res erp.Resultado
	switch {
	case err != nil:
		res = classifyTransportError(err)
		c.log.Error("falha de transporte no ERP", "cnpj", key, "error", err)
	default:
		res = classifyResponse(statusCode, respBody)
		if res.Success {
			c.log.Info("pré-cadastro aceito pelo ERP", "cnpj", key, "codcfo", res.ERPCode)
		} else {
			c.log.Warn("ERP recusou pré-cadastro", "cnpj", key, "status", statusCode, "message", res.Message)
		}
	}

	if c.debug != nil {
		c.debug.Append(key, cache.DebugEntry{
			Timestamp:    c.now(),
			Operation:    "SaveRecord",
			RequestBody:  envelope,
			ResponseBody: respBody,
			StatusCode:   statusCode,
			Success:      res.Success,
			Message:      res.Message,
		})
	}
	return res
}

func classifyTransportError(err error) erp.Resultado {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return erp.Resultado{Success: false, Message: msgTimeout}
	}
	return erp.Resultado{Success: false, Message: msgConnectivity}
}

func classifyResponse(status int, body string) erp.Resultado {
	switch {
	case status == http.StatusNotFound:
		return erp.Resultado{Success: false, Message: msgNotFound}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return erp.Resultado{Success: false, Message: msgAuth}
	case status >= 500:
		return erp.Resultado{Success: false, Message: msgServerError}
	case status < 200 || status >= 300:
		return erp.Resultado{Success: false, Message: fmt.Sprintf("Erro na requisição ao ERP (status %d).", status)}
	}

	if m := faultRe.FindStringSubmatch(body); m != nil {
		return erp.Resultado{Success: false, Message: "Erro do ERP: " + strings.TrimSpace(m[1])}
	}

	return erp.Resultado{Success: true, Message: msgSuccess, ERPCode: extractVendorCode(body)}
}

// extractVendorCode pulls the CODCFO out of a SaveRecord response. The data
// server answers with "<ids>;<codcfo>" inside SaveRecordResult; when that
// shape is absent the raw body is scanned for a CODCFO element instead.
func extractVendorCode(body string) string {
	if m := saveResultRe.FindStringSubmatch(body); m != nil {
		parts := strings.Split(strings.TrimSpace(m[1]), ";")
		if len(parts) >= 2 && strings.TrimSpace(parts[1]) != "" {
			return strings.TrimSpace(parts[1])
		}
	}
	if m := codcfoRe.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	return ""
}
