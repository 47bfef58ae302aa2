package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"simpleit/simpledfe_core/internal/core/fornecedor"
)

// Repository implements fornecedor.Repository on the capture-side document
// store (database/sql), where the pending-vendor table lives.
type Repository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewRepository creates a new PostgreSQL fornecedor repository.
func NewRepository(db *sql.DB, log *slog.Logger) fornecedor.Repository {
	return &Repository{db: db, log: log}
}

// sortColumns whitelists user-supplied sort keys.
var sortColumns = map[string]string{
	"nome":          "nome",
	"cnpj":          "cnpj",
	"codigo_erp":    "codigo_erp",
	"data_cadastro": "data_cadastro",
}

// Create persists a new pending vendor and returns its ID.
func (r *Repository) Create(ctx context.Context, f fornecedor.Fornecedor) (int64, error) {
	query := `
		INSERT INTO simplefcfo (nome, cnpj, codigo_erp, data_cadastro)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (cnpj) DO UPDATE SET nome = EXCLUDED.nome
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, f.Nome, f.CNPJ, f.CodigoERP).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert fornecedor: %w", err)
	}
	return id, nil
}

// FindByID retrieves a vendor by primary key.
func (r *Repository) FindByID(ctx context.Context, id int64) (*fornecedor.Fornecedor, error) {
	query := `SELECT id, nome, cnpj, codigo_erp, data_cadastro FROM simplefcfo WHERE id = $1`
	return r.findOne(ctx, query, id)
}

// FindByCNPJ retrieves a vendor by CNPJ digits.
func (r *Repository) FindByCNPJ(ctx context.Context, cnpj string) (*fornecedor.Fornecedor, error) {
	query := `SELECT id, nome, cnpj, codigo_erp, data_cadastro FROM simplefcfo WHERE cnpj = $1`
	return r.findOne(ctx, query, cnpj)
}

func (r *Repository) findOne(ctx context.Context, query string, arg interface{}) (*fornecedor.Fornecedor, error) {
	var f fornecedor.Fornecedor
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&f.ID, &f.Nome, &f.CNPJ, &f.CodigoERP, &f.DataCadastro,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query fornecedor: %w", err)
	}
	return &f, nil
}

// List retrieves vendors with pagination, search, and sorting.
func (r *Repository) List(ctx context.Context, params fornecedor.ListParams) ([]fornecedor.Fornecedor, int, error) {
	whereClause := ""
	var args []interface{}
	if params.Search != "" {
		args = append(args, params.Search)
		whereClause = "WHERE (nome ILIKE '%' || $1 || '%' OR cnpj ILIKE '%' || $1 || '%' OR COALESCE(codigo_erp, '') ILIKE '%' || $1 || '%')"
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM simplefcfo " + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count fornecedores: %w", err)
	}

	orderBy := "data_cadastro"
	if col, ok := sortColumns[params.SortBy]; ok {
		orderBy = col
	}
	direction := "DESC"
	if strings.EqualFold(params.SortOrder, "asc") {
		direction = "ASC"
	}

	offset := (params.Page - 1) * params.Limit
	query := fmt.Sprintf(`
		SELECT id, nome, cnpj, codigo_erp, data_cadastro
		FROM simplefcfo
		%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, whereClause, orderBy, direction, len(args)+1, len(args)+2)
	args = append(args, params.Limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query fornecedores: %w", err)
	}
	defer rows.Close()

	items := make([]fornecedor.Fornecedor, 0)
	for rows.Next() {
		var f fornecedor.Fornecedor
		if err := rows.Scan(&f.ID, &f.Nome, &f.CNPJ, &f.CodigoERP, &f.DataCadastro); err != nil {
			return nil, 0, fmt.Errorf("scan fornecedor: %w", err)
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate rows: %w", err)
	}

	return items, total, nil
}

// UpdateCodigoERP stores the vendor code returned by the ERP.
func (r *Repository) UpdateCodigoERP(ctx context.Context, id int64, codigo string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE simplefcfo SET codigo_erp = $2 WHERE id = $1`, id, codigo)
	if err != nil {
		return fmt.Errorf("update codigo_erp: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fornecedor.ErrNaoEncontrado
	}
	return nil
}

// DeleteByCNPJ removes a vendor confirmed as registered in the ERP.
func (r *Repository) DeleteByCNPJ(ctx context.Context, cnpj string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM simplefcfo WHERE cnpj = $1`, cnpj); err != nil {
		return fmt.Errorf("delete fornecedor: %w", err)
	}
	return nil
}
