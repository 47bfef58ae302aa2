package audit

import (
	"context"
	"time"
)

// UserActionLog records one user-visible action for the audit trail.
type UserActionLog struct {
	ID        int64     `json:"id"`
	UserID    *int64    `json:"user_id"`
	Username  string    `json:"username"`
	Acao      string    `json:"acao"`
	Detalhes  string    `json:"detalhes"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

// ActionListParams filters the audit trail listing.
type ActionListParams struct {
	Page     int
	Limit    int
	Username string
	Acao     string
	DataIni  string
	DataFim  string
}

// ActionRepository persists and lists user action logs.
type ActionRepository interface {
	// SaveAction persists one action record.
	SaveAction(ctx context.Context, entry UserActionLog) error

	// ListActions retrieves action records with filters and pagination.
	// Returns the page and the total count for the filter.
	ListActions(ctx context.Context, params ActionListParams) ([]UserActionLog, int, error)
}
