package fornecedor

import (
	"errors"
	"time"
)

// ErrNaoEncontrado indicates the pending-vendor row does not exist.
var ErrNaoEncontrado = errors.New("fornecedor não encontrado")

// Fornecedor is a vendor captured from incoming fiscal documents and pending
// pre-registration in the ERP. CodigoERP is set once the ERP accepts the
// SaveRecord and the row survives until the verification webhook confirms
// the vendor exists on the ERP side.
type Fornecedor struct {
	ID           int64     `json:"id"`
	Nome         string    `json:"nome"`
	CNPJ         string    `json:"cnpj"`
	CodigoERP    *string   `json:"codigo_erp"`
	DataCadastro time.Time `json:"data_cadastro"`
}
