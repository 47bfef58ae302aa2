package erp

import "context"

// Resultado is the structured outcome of an ERP operation. ERP adapters never
// return Go errors across this boundary: every failure mode (transport,
// auth, SOAP fault) is classified into a user-facing message here.
type Resultado struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ERPCode string `json:"erpCode,omitempty"`
}

// Service registers vendor records in the ERP.
type Service interface {
	// PreCadastro serializes the company record into the ERP's SaveRecord
	// envelope and submits it. The returned vendor code (CODCFO) is set on
	// success when the ERP reports one.
	PreCadastro(ctx context.Context, empresa Empresa) Resultado
}

// Verifier checks whether a vendor already exists in the ERP.
type Verifier interface {
	// VerificarCadastro queries the ERP for an existing vendor by CNPJ.
	// found reports whether the ERP returned a vendor code.
	VerificarCadastro(ctx context.Context, cnpj string) (codcfo string, found bool, err error)
}

// Empresa is the normalized company-lookup record fed into pre-registration,
// sourced from the public CNPJ lookup API.
type Empresa struct {
	CNPJ               string `json:"cnpj"`
	Nome               string `json:"nome"`
	Fantasia           string `json:"fantasia,omitempty"`
	Logradouro         string `json:"logradouro,omitempty"`
	Numero             string `json:"numero,omitempty"`
	Bairro             string `json:"bairro,omitempty"`
	Municipio          string `json:"municipio,omitempty"`
	UF                 string `json:"uf,omitempty"`
	CEP                string `json:"cep,omitempty"`
	Telefone           string `json:"telefone,omitempty"`
	Email              string `json:"email,omitempty"`
	Situacao           string `json:"situacao,omitempty"`
	CodigoMunicipio    string `json:"codigo_municipio,omitempty"`
	InscricaoMunicipal string `json:"inscricao_municipal,omitempty"`
}
