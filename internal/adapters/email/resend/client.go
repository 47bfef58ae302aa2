package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"simpleit/simpledfe_core/internal/core/email"
)

const defaultBaseURL = "https://api.resend.com"

// Client delivers transactional email through the Resend HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	from    string
	http    *http.Client
	log     *slog.Logger
}

// NewClient creates a Resend email client. from is the sender address shown
// to recipients.
func NewClient(baseURL, apiKey, from string, log *slog.Logger) email.Sender {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		from:    from,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send implements email.Sender.
func (c *Client) Send(ctx context.Context, msg email.Message) error {
	payload, err := json.Marshal(sendRequest{
		From:    c.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("erro ao enviar email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("Resend respondeu status %d: %s", resp.StatusCode, string(body))
	}

	c.log.Debug("email enviado", "to", msg.To, "subject", msg.Subject)
	return nil
}
