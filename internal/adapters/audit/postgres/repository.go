package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"simpleit/simpledfe_core/internal/core/audit"
)

// Repository implements audit.Repository using PostgreSQL. It stores the
// full request/response exchange of outbound provider calls (TOTVS SOAP),
// already sanitized by the traced client.
type Repository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewRepository creates a new PostgreSQL provider audit repository.
func NewRepository(pool *pgxpool.Pool) audit.Repository {
	return &Repository{pool: pool, log: slog.Default()}
}

// NewRepositoryWithLogger creates a provider audit repository with logging.
func NewRepositoryWithLogger(pool *pgxpool.Pool, log *slog.Logger) audit.Repository {
	return &Repository{pool: pool, log: log}
}

// Save persists one provider exchange.
func (r *Repository) Save(ctx context.Context, entry audit.ProviderAuditLog) error {
	requestHeaders, err := json.Marshal(entry.RequestHeaders)
	if err != nil {
		return fmt.Errorf("marshal request headers: %w", err)
	}
	responseHeaders, err := json.Marshal(entry.ResponseHeaders)
	if err != nil {
		return fmt.Errorf("marshal response headers: %w", err)
	}

	// Empty bodies are stored as NULL, not empty JSON.
	var requestBody, responseBody interface{}
	if len(entry.RequestBody) > 0 {
		requestBody = entry.RequestBody
	}
	if len(entry.ResponseBody) > 0 {
		responseBody = entry.ResponseBody
	}

	query := `
		INSERT INTO provider_audit_log (
			correlation_id, provider, operation, request_method, request_url,
			request_headers, request_body, response_status, response_headers,
			response_body, duration_ms, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.pool.Exec(ctx, query,
		entry.CorrelationID, entry.Provider, entry.Operation,
		entry.RequestMethod, entry.RequestURL,
		requestHeaders, requestBody,
		entry.ResponseStatus, responseHeaders, responseBody,
		entry.DurationMs, entry.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("insert provider audit log: %w", err)
	}

	r.log.Debug("Provider exchange persisted",
		"correlation_id", entry.CorrelationID,
		"provider", entry.Provider,
		"operation", entry.Operation,
		"response_status", entry.ResponseStatus,
		"duration_ms", entry.DurationMs,
	)
	return nil
}

// FindByCorrelationID retrieves all exchanges recorded under one
// correlation ID, newest first.
func (r *Repository) FindByCorrelationID(ctx context.Context, correlationID string) ([]audit.ProviderAuditLog, error) {
	query := `
		SELECT id, correlation_id, provider, operation, request_method, request_url,
		       request_headers, request_body, response_status, response_headers,
		       response_body, duration_ms, error_message, created_at
		FROM provider_audit_log
		WHERE correlation_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, correlationID)
	if err != nil {
		return nil, fmt.Errorf("query provider audit logs: %w", err)
	}
	defer rows.Close()

	var logs []audit.ProviderAuditLog
	for rows.Next() {
		var entry audit.ProviderAuditLog
		var requestHeaders, responseHeaders []byte
		var requestBody, responseBody []byte

		if err := rows.Scan(
			&entry.ID, &entry.CorrelationID, &entry.Provider, &entry.Operation,
			&entry.RequestMethod, &entry.RequestURL,
			&requestHeaders, &requestBody,
			&entry.ResponseStatus, &responseHeaders, &responseBody,
			&entry.DurationMs, &entry.ErrorMessage, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan provider audit log: %w", err)
		}

		if err := json.Unmarshal(requestHeaders, &entry.RequestHeaders); err != nil {
			return nil, fmt.Errorf("unmarshal request headers: %w", err)
		}
		if err := json.Unmarshal(responseHeaders, &entry.ResponseHeaders); err != nil {
			return nil, fmt.Errorf("unmarshal response headers: %w", err)
		}
		entry.RequestBody = requestBody
		entry.ResponseBody = responseBody

		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return logs, nil
}
