package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// NewDocStore opens the capture-side document database. It is a separate
// PostgreSQL instance owned by the document capture process, so this side
// only ensures the tables it reads and writes exist.
func NewDocStore(ctx context.Context, cfg Config) (*sql.DB, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.Database,
		cfg.User,
		cfg.Password,
		cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping document store: %w", err)
	}

	return db, nil
}

// EnsureDocSchema creates the capture tables when absent. The capture
// process normally owns them; this keeps fresh environments usable.
func EnsureDocSchema(ctx context.Context, db *sql.DB, log *slog.Logger) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS nfse (
			id BIGSERIAL PRIMARY KEY,
			chave VARCHAR(64) NOT NULL UNIQUE,
			data_emissao VARCHAR(40) NOT NULL DEFAULT '',
			cnpj_prestador VARCHAR(14) NOT NULL DEFAULT '',
			nome_prestador TEXT NOT NULL DEFAULT '',
			local_prestacao VARCHAR(20) NOT NULL DEFAULT '',
			valor_servico NUMERIC(15,2) NOT NULL DEFAULT 0,
			cnpj_tomador VARCHAR(14) NOT NULL DEFAULT '',
			nome_tomador TEXT NOT NULL DEFAULT '',
			xml TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS nfe (
			id BIGSERIAL PRIMARY KEY,
			chave VARCHAR(64) NOT NULL UNIQUE,
			data_emissao VARCHAR(40) NOT NULL DEFAULT '',
			cnpj_prestador VARCHAR(14) NOT NULL DEFAULT '',
			nome_prestador TEXT NOT NULL DEFAULT '',
			local_prestacao VARCHAR(20) NOT NULL DEFAULT '',
			valor_servico NUMERIC(15,2) NOT NULL DEFAULT 0,
			cnpj_tomador VARCHAR(14) NOT NULL DEFAULT '',
			nome_tomador TEXT NOT NULL DEFAULT '',
			xml TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS cte (
			id BIGSERIAL PRIMARY KEY,
			chave VARCHAR(64) NOT NULL UNIQUE,
			data_emissao VARCHAR(40) NOT NULL DEFAULT '',
			cnpj_prestador VARCHAR(14) NOT NULL DEFAULT '',
			nome_prestador TEXT NOT NULL DEFAULT '',
			local_prestacao VARCHAR(20) NOT NULL DEFAULT '',
			valor_servico NUMERIC(15,2) NOT NULL DEFAULT 0,
			cnpj_tomador VARCHAR(14) NOT NULL DEFAULT '',
			nome_tomador TEXT NOT NULL DEFAULT '',
			xml TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS simplefcfo (
			id BIGSERIAL PRIMARY KEY,
			nome TEXT NOT NULL DEFAULT '',
			cnpj VARCHAR(14) NOT NULL UNIQUE,
			codigo_erp VARCHAR(20),
			data_cadastro TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure document schema: %w", err)
		}
	}
	log.Info("Document store schema verified")
	return nil
}
