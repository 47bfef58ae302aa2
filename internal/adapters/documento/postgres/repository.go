package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"simpleit/simpledfe_core/internal/core/documento"
)

// Repository implements documento.Repository on the capture-side document
// store. Each document kind lives in its own table with the same columns.
type Repository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewRepository creates a new PostgreSQL documento repository.
func NewRepository(db *sql.DB, log *slog.Logger) documento.Repository {
	return &Repository{db: db, log: log}
}

// tableFor maps a document kind to its table, rejecting anything else so
// user input can never reach the SQL text.
func tableFor(tipo string) (string, error) {
	switch tipo {
	case documento.TipoNFSe:
		return "nfse", nil
	case documento.TipoNFe:
		return "nfe", nil
	case documento.TipoCTe:
		return "cte", nil
	}
	return "", fmt.Errorf("tipo de documento desconhecido: %q", tipo)
}

var docSortColumns = map[string]string{
	"data_emissao":   "data_emissao",
	"valor_servico":  "valor_servico",
	"nome_prestador": "nome_prestador",
	"created_at":     "created_at",
}

// Insert persists a captured document and returns its ID.
func (r *Repository) Insert(ctx context.Context, d documento.Documento) (int64, error) {
	table, err := tableFor(d.Tipo)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (
			chave, data_emissao, cnpj_prestador, nome_prestador, local_prestacao,
			valor_servico, cnpj_tomador, nome_tomador, xml
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, table)

	var id int64
	err = r.db.QueryRowContext(ctx, query,
		d.Chave, d.DataEmissao, d.CNPJPrestador, d.NomePrestador, d.LocalPrestacao,
		d.ValorServico, d.CNPJTomador, d.NomeTomador, d.XMLBase64,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert documento: %w", err)
	}
	return id, nil
}

// ExistsByChave reports whether a document with the access key exists.
func (r *Repository) ExistsByChave(ctx context.Context, tipo, chave string) (bool, error) {
	table, err := tableFor(tipo)
	if err != nil {
		return false, err
	}

	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE chave = $1)`, table)
	if err := r.db.QueryRowContext(ctx, query, chave).Scan(&exists); err != nil {
		return false, fmt.Errorf("check chave: %w", err)
	}
	return exists, nil
}

// FindByID retrieves a document including its XML payload.
func (r *Repository) FindByID(ctx context.Context, tipo string, id int64) (*documento.Documento, error) {
	table, err := tableFor(tipo)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, chave, data_emissao, cnpj_prestador, nome_prestador, local_prestacao,
		       valor_servico, cnpj_tomador, nome_tomador, xml, created_at
		FROM %s WHERE id = $1
	`, table)

	var d documento.Documento
	d.Tipo = tipo
	err = r.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.Chave, &d.DataEmissao, &d.CNPJPrestador, &d.NomePrestador,
		&d.LocalPrestacao, &d.ValorServico, &d.CNPJTomador, &d.NomeTomador,
		&d.XMLBase64, &d.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query documento: %w", err)
	}
	return &d, nil
}

// List retrieves documents with pagination, search and filters.
func (r *Repository) List(ctx context.Context, params documento.ListParams) ([]documento.Documento, int, error) {
	table, err := tableFor(params.Tipo)
	if err != nil {
		return nil, 0, err
	}

	var conditions []string
	var args []interface{}

	addCondition := func(cond string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if params.Search != "" {
		addCondition("(chave ILIKE '%%' || $%[1]d || '%%' OR nome_prestador ILIKE '%%' || $%[1]d || '%%' OR nome_tomador ILIKE '%%' || $%[1]d || '%%')", params.Search)
	}
	if params.CNPJ != "" {
		addCondition("(cnpj_prestador = $%[1]d OR cnpj_tomador = $%[1]d)", params.CNPJ)
	}
	if params.DataInicio != "" {
		addCondition("LEFT(data_emissao, 10) >= $%d", params.DataInicio)
	}
	if params.DataFim != "" {
		addCondition("LEFT(data_emissao, 10) <= $%d", params.DataFim)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s %s", table, whereClause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documentos: %w", err)
	}

	orderBy := "data_emissao"
	if col, ok := docSortColumns[params.SortBy]; ok {
		orderBy = col
	}
	direction := "DESC"
	if strings.EqualFold(params.SortOrder, "asc") {
		direction = "ASC"
	}

	offset := (params.Page - 1) * params.Limit
	query := fmt.Sprintf(`
		SELECT id, chave, data_emissao, cnpj_prestador, nome_prestador, local_prestacao,
		       valor_servico, cnpj_tomador, nome_tomador, created_at
		FROM %s
		%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, table, whereClause, orderBy, direction, len(args)+1, len(args)+2)
	args = append(args, params.Limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query documentos: %w", err)
	}
	defer rows.Close()

	items := make([]documento.Documento, 0)
	for rows.Next() {
		var d documento.Documento
		d.Tipo = params.Tipo
		if err := rows.Scan(
			&d.ID, &d.Chave, &d.DataEmissao, &d.CNPJPrestador, &d.NomePrestador,
			&d.LocalPrestacao, &d.ValorServico, &d.CNPJTomador, &d.NomeTomador, &d.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan documento: %w", err)
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate rows: %w", err)
	}

	return items, total, nil
}

// ListByPeriodo retrieves NFSe documents with XML payloads for the report.
func (r *Repository) ListByPeriodo(ctx context.Context, dataInicio, dataFim, cnpjTomador string) ([]documento.Documento, error) {
	query := `
		SELECT id, chave, data_emissao, cnpj_prestador, nome_prestador, local_prestacao,
		       valor_servico, cnpj_tomador, nome_tomador, xml, created_at
		FROM nfse
		WHERE LEFT(data_emissao, 10) >= $1 AND LEFT(data_emissao, 10) <= $2
	`
	args := []interface{}{dataInicio, dataFim}
	if cnpjTomador != "" {
		query += " AND cnpj_tomador = $3"
		args = append(args, cnpjTomador)
	}
	query += " ORDER BY data_emissao"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query período: %w", err)
	}
	defer rows.Close()

	items := make([]documento.Documento, 0)
	for rows.Next() {
		var d documento.Documento
		d.Tipo = documento.TipoNFSe
		if err := rows.Scan(
			&d.ID, &d.Chave, &d.DataEmissao, &d.CNPJPrestador, &d.NomePrestador,
			&d.LocalPrestacao, &d.ValorServico, &d.CNPJTomador, &d.NomeTomador,
			&d.XMLBase64, &d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan documento: %w", err)
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return items, nil
}

// Stats aggregates document counts and totals for the dashboard.
func (r *Repository) Stats(ctx context.Context) (documento.Stats, error) {
	var stats documento.Stats
	query := `
		SELECT
			(SELECT COUNT(*) FROM nfse),
			(SELECT COUNT(*) FROM nfe),
			(SELECT COUNT(*) FROM cte),
			(SELECT COALESCE(SUM(valor_servico), 0) FROM nfse),
			(SELECT COUNT(*) FROM nfse WHERE created_at::date = CURRENT_DATE)
	`
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalNFSe, &stats.TotalNFe, &stats.TotalCTe,
		&stats.ValorTotalNFSe, &stats.ImportadosHoje,
	)
	if err != nil {
		return documento.Stats{}, fmt.Errorf("aggregate stats: %w", err)
	}
	return stats, nil
}
