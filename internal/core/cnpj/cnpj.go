package cnpj

import (
	"context"
	"errors"

	"simpleit/simpledfe_core/internal/core/erp"
)

// Lookup errors surfaced by implementations.
var (
	// ErrCNPJInvalido indicates the input does not carry 14 digits.
	ErrCNPJInvalido = errors.New("CNPJ deve ter 14 dígitos")

	// ErrNaoEncontrado indicates the registry has no company for the CNPJ.
	ErrNaoEncontrado = errors.New("CNPJ não encontrado")

	// ErrLimiteConsultas indicates the public API rate limit was hit.
	ErrLimiteConsultas = errors.New("muitas consultas realizadas, tente novamente em alguns minutos")
)

// Service looks up company registration data for a CNPJ in the public
// federal registry.
type Service interface {
	Consultar(ctx context.Context, cnpj string) (*erp.Empresa, error)
}
