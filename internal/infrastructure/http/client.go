package http

import (
	"net/http"
	"time"
)

// ClientConfig holds configuration for plain outbound HTTP clients, used
// where the provider audit trail does not apply (webhook verification,
// lookups without an injected traced transport).
type ClientConfig struct {
	Timeout       time.Duration
	Transport     http.RoundTripper
	CheckRedirect func(req *http.Request, via []*http.Request) error
}

// NewClient builds an HTTP client from cfg. A nil cfg gets a 30s timeout.
func NewClient(cfg *ClientConfig) *http.Client {
	if cfg == nil {
		cfg = &ClientConfig{Timeout: 30 * time.Second}
	}
	return &http.Client{
		Timeout:       cfg.Timeout,
		Transport:     cfg.Transport,
		CheckRedirect: cfg.CheckRedirect,
	}
}
