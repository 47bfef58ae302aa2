package documento

import (
	"errors"
	"time"
)

// Domain errors for fiscal document capture.
var (
	ErrDuplicado     = errors.New("documento já importado")
	ErrNaoEncontrado = errors.New("documento não encontrado")
)

// Document kinds kept in the capture store.
const (
	TipoNFSe = "nfse"
	TipoNFe  = "nfe"
	TipoCTe  = "cte"
)

// Documento is a captured fiscal document. XMLBase64 holds the original
// payload base64-encoded exactly as received; decoding happens only at
// download and report time.
type Documento struct {
	ID             int64     `json:"id"`
	Tipo           string    `json:"tipo"`
	Chave          string    `json:"chave"`
	DataEmissao    string    `json:"data_emissao"`
	CNPJPrestador  string    `json:"cnpj_prestador"`
	NomePrestador  string    `json:"nome_prestador"`
	LocalPrestacao string    `json:"local_prestacao"`
	ValorServico   float64   `json:"valor_servico"`
	CNPJTomador    string    `json:"cnpj_tomador"`
	NomeTomador    string    `json:"nome_tomador"`
	XMLBase64      string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}
