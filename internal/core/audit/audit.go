package audit

import (
	"context"
	"encoding/json"
	"time"
)

// ProviderAuditLog records one exchange with an external provider (the
// TOTVS data server or ReceitaWS). Bodies are stored sanitized; nothing
// credential-bearing reaches this record.
type ProviderAuditLog struct {
	ID              int64
	CorrelationID   string
	Provider        string
	Operation       string
	RequestMethod   string
	RequestURL      string
	RequestHeaders  map[string]string
	RequestBody     json.RawMessage
	ResponseStatus  *int
	ResponseHeaders map[string]string
	ResponseBody    json.RawMessage
	DurationMs      int64
	ErrorMessage    string
	CreatedAt       time.Time
}

// Repository persists and queries the provider audit trail.
type Repository interface {
	Save(ctx context.Context, entry ProviderAuditLog) error

	// FindByCorrelationID returns every exchange made while serving the
	// request identified by correlationID, oldest first.
	FindByCorrelationID(ctx context.Context, correlationID string) ([]ProviderAuditLog, error)
}
