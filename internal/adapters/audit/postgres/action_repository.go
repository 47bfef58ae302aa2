package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"simpleit/simpledfe_core/internal/core/audit"
)

// ActionRepository implements audit.ActionRepository using PostgreSQL.
type ActionRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewActionRepository creates a new PostgreSQL user-action audit repository.
func NewActionRepository(pool *pgxpool.Pool, log *slog.Logger) audit.ActionRepository {
	return &ActionRepository{pool: pool, log: log}
}

// SaveAction persists one action record.
func (r *ActionRepository) SaveAction(ctx context.Context, entry audit.UserActionLog) error {
	query := `
		INSERT INTO audit_logs (user_id, username, acao, detalhes, ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		entry.UserID, entry.Username, entry.Acao, entry.Detalhes,
		entry.IP, entry.UserAgent, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// ListActions retrieves action records with filters and pagination.
func (r *ActionRepository) ListActions(ctx context.Context, params audit.ActionListParams) ([]audit.UserActionLog, int, error) {
	var conditions []string
	var args []interface{}

	addCondition := func(cond string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if params.Username != "" {
		addCondition("username ILIKE '%%' || $%d || '%%'", params.Username)
	}
	if params.Acao != "" {
		addCondition("acao = $%d", params.Acao)
	}
	if params.DataIni != "" {
		addCondition("created_at >= $%d::date", params.DataIni)
	}
	if params.DataFim != "" {
		addCondition("created_at < $%d::date + INTERVAL '1 day'", params.DataFim)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM audit_logs " + whereClause
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}

	offset := (params.Page - 1) * params.Limit
	query := fmt.Sprintf(`
		SELECT id, user_id, username, acao, detalhes, ip, user_agent, created_at
		FROM audit_logs
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, len(args)+1, len(args)+2)
	args = append(args, params.Limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	logs := make([]audit.UserActionLog, 0)
	for rows.Next() {
		var entry audit.UserActionLog
		if err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.Username, &entry.Acao,
			&entry.Detalhes, &entry.IP, &entry.UserAgent, &entry.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate rows: %w", err)
	}

	return logs, total, nil
}
