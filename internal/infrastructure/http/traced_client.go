package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"simpleit/simpledfe_core/internal/core/audit"
	ctxutil "simpleit/simpledfe_core/internal/infrastructure/context"
	"simpleit/simpledfe_core/internal/infrastructure/security"
)

// TracedClient wraps an HTTP client so every outbound provider exchange
// (TOTVS SOAP, ReceitaWS) is logged with sanitized bodies and persisted to
// the provider audit trail. Audit writes are asynchronous and never fail
// the request.
type TracedClient struct {
	client       *http.Client
	log          *slog.Logger
	auditRepo    audit.Repository
	provider     string
	auditEnabled bool
	logReqBody   bool
	logRespBody  bool
	maxBodySize  int
}

// TracedClientConfig holds configuration for the traced HTTP client.
type TracedClientConfig struct {
	Timeout         time.Duration
	AuditEnabled    bool
	LogRequestBody  bool
	LogResponseBody bool
	MaxBodySize     int
	MaxConnsPerHost int
}

// NewTracedClient creates a traced client with pooled connections.
// auditRepo may be nil; exchanges are then only logged.
func NewTracedClient(cfg *TracedClientConfig, log *slog.Logger, auditRepo audit.Repository, provider string) *TracedClient {
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = 102400
	}
	maxConns := cfg.MaxConnsPerHost
	if maxConns == 0 {
		maxConns = 50
	}

	// ResponseHeaderTimeout must cover the client timeout; the TOTVS data
	// server can sit on a SaveRecord for most of it before answering.
	headerTimeout := cfg.Timeout
	if headerTimeout < 60*time.Second {
		headerTimeout = 60 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   maxConns,
		MaxConnsPerHost:       maxConns,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: headerTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &TracedClient{
		client:       &http.Client{Timeout: cfg.Timeout, Transport: transport},
		log:          log,
		auditRepo:    auditRepo,
		provider:     provider,
		auditEnabled: cfg.AuditEnabled,
		logReqBody:   cfg.LogRequestBody,
		logRespBody:  cfg.LogResponseBody,
		maxBodySize:  cfg.MaxBodySize,
	}
}

// Do executes the request, capturing both bodies for the log and the audit
// trail. Bodies are restored so caller and server see them untouched.
func (c *TracedClient) Do(req *http.Request) (*http.Response, error) {
	correlationID := ctxutil.GetCorrelationID(req.Context())
	if correlationID != "" {
		req.Header.Set("X-Correlation-ID", correlationID)
	}

	operation := c.extractOperation(req)
	start := time.Now()

	var requestBody []byte
	if req.Body != nil {
		var readErr error
		requestBody, readErr = io.ReadAll(req.Body)
		if readErr != nil {
			c.log.Error("Falha ao capturar corpo da requisição", "error", readErr, "correlation_id", correlationID)
		}
		req.Body = io.NopCloser(bytes.NewReader(requestBody))
	}

	c.logRequest(correlationID, operation, req, requestBody)

	resp, err := c.client.Do(req)
	duration := time.Since(start)

	var responseBody []byte
	if resp != nil && resp.Body != nil {
		responseBody, _ = io.ReadAll(resp.Body)
		resp.Body = io.NopCloser(bytes.NewReader(responseBody))
	}

	c.logResponse(correlationID, operation, req, resp, err, duration, responseBody)

	if c.auditEnabled && c.auditRepo != nil {
		if correlationID == "" {
			correlationID = fmt.Sprintf("audit-%d", time.Now().UnixNano())
		}
		// Persisted on a background context: the request context is done by
		// the time the caller finishes reading the response.
		go func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.Error("Pânico ao persistir auditoria de provedor",
						"panic", r,
						"correlation_id", correlationID,
						"provider", c.provider,
					)
				}
			}()
			saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			c.persistAuditLog(saveCtx, correlationID, operation, req, resp, err, duration, requestBody, responseBody)
		}()
	}

	return resp, err
}

func (c *TracedClient) logRequest(correlationID, operation string, req *http.Request, body []byte) {
	attrs := []any{
		"correlation_id", correlationID,
		"provider", c.provider,
		"operation", operation,
		"method", req.Method,
		"url", security.SanitizeURL(req.URL.String()),
	}
	if c.logReqBody && len(body) > 0 {
		attrs = append(attrs, "request_body", string(security.SanitizeBody(body, c.maxBodySize)))
	}
	c.log.Info("provider_request", attrs...)
}

func (c *TracedClient) logResponse(correlationID, operation string, req *http.Request, resp *http.Response, err error, duration time.Duration, body []byte) {
	attrs := []any{
		"correlation_id", correlationID,
		"provider", c.provider,
		"operation", operation,
		"method", req.Method,
		"url", security.SanitizeURL(req.URL.String()),
		"duration_ms", duration.Milliseconds(),
	}
	if err != nil {
		attrs = append(attrs, "error", err.Error())
		c.log.Error("provider_request_failed", attrs...)
		return
	}

	attrs = append(attrs, "status", resp.StatusCode, "response_size_bytes", len(body))
	if c.logRespBody && len(body) > 0 {
		attrs = append(attrs, "response_body", string(security.SanitizeBody(body, c.maxBodySize)))
	}

	switch {
	case resp.StatusCode >= 500:
		c.log.Error("provider_response", attrs...)
	case resp.StatusCode >= 400:
		c.log.Warn("provider_response", attrs...)
	default:
		c.log.Info("provider_response", attrs...)
	}
}

func (c *TracedClient) persistAuditLog(ctx context.Context, correlationID, operation string, req *http.Request, resp *http.Response, err error, duration time.Duration, requestBody, responseBody []byte) {
	entry := audit.ProviderAuditLog{
		CorrelationID:  correlationID,
		Provider:       c.provider,
		Operation:      operation,
		RequestMethod:  req.Method,
		RequestURL:     security.SanitizeURL(req.URL.String()),
		RequestHeaders: security.SanitizeHeaders(req.Header),
		DurationMs:     duration.Milliseconds(),
	}
	if len(requestBody) > 0 {
		entry.RequestBody = security.SanitizeBody(requestBody, c.maxBodySize)
	}
	if resp != nil {
		status := resp.StatusCode
		entry.ResponseStatus = &status
		entry.ResponseHeaders = security.SanitizeHeaders(resp.Header)
		if len(responseBody) > 0 {
			entry.ResponseBody = security.SanitizeBody(responseBody, c.maxBodySize)
		}
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}

	if saveErr := c.auditRepo.Save(ctx, entry); saveErr != nil {
		c.log.Error("Falha ao persistir auditoria de provedor",
			"error", saveErr,
			"correlation_id", correlationID,
			"provider", c.provider,
			"operation", operation,
		)
	}
}

// extractOperation derives an operation label from the last path segment;
// for the TOTVS endpoint that is the data-server service name.
func (c *TracedClient) extractOperation(req *http.Request) string {
	parts := strings.Split(strings.Trim(req.URL.Path, "/"), "/")
	if last := parts[len(parts)-1]; last != "" {
		return strings.ToUpper(last[:1]) + last[1:]
	}
	return fmt.Sprintf("%s_%s", req.Method, c.provider)
}

// Client exposes the underlying HTTP client.
func (c *TracedClient) Client() *http.Client {
	return c.client
}
