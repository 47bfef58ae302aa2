package danfse

import "errors"

// Domain errors surfaced by the normalizer. Field-level absence is never an
// error; these are the only two ways a normalization can fail.
var (
	// ErrXMLMalformado indicates the raw blob could not be decoded or parsed as XML.
	ErrXMLMalformado = errors.New("xml malformado: não foi possível decodificar o conteúdo")

	// ErrLayoutDesconhecido indicates the XML parsed but matched none of the known
	// municipal layouts.
	ErrLayoutDesconhecido = errors.New("estrutura XML não reconhecida: formato de NFSe não suportado")
)

// Layout identifies the municipal NFSe schema variant a document matched.
// Detection is ordered; see the application-layer detector.
type Layout string

const (
	// LayoutBarueri covers Barueri and alternative-emit documents where the
	// emitter and amounts hang directly off infNFSe.
	LayoutBarueri Layout = "barueri"
	// LayoutBeloHorizonte covers the Belo Horizonte national-standard variant.
	LayoutBeloHorizonte Layout = "belo_horizonte"
	// LayoutSaoPaulo covers the São Paulo variant carrying a DPS declaration.
	LayoutSaoPaulo Layout = "sao_paulo"
	// LayoutNFeLegado covers the legacy flat schema with NFe-style tag names.
	LayoutNFeLegado Layout = "nfe_legado"
	// LayoutRootNfe covers the legacy root/Nfe wrapper schema.
	LayoutRootNfe Layout = "root_nfe"
	// LayoutGenerico is the best-effort fallback for any NFSe/infNFSe document.
	LayoutGenerico Layout = "generico"
)

// Prestador is the service-provider party of a canonical document.
type Prestador struct {
	CNPJ               string `json:"cnpj"`
	RazaoSocial        string `json:"razaoSocial"`
	Endereco           string `json:"endereco"`
	Numero             string `json:"numero"`
	Complemento        string `json:"complemento"`
	Bairro             string `json:"bairro"`
	CEP                string `json:"cep"`
	Municipio          string `json:"municipio"`
	UF                 string `json:"uf"`
	InscricaoMunicipal string `json:"inscricaoMunicipal"`
	InscricaoEstadual  string `json:"inscricaoEstadual"`
	Telefone           string `json:"telefone"`
	Email              string `json:"email"`
}

// Tomador is the service-taker party of a canonical document.
type Tomador struct {
	CNPJ               string `json:"cnpj"`
	RazaoSocial        string `json:"razaoSocial"`
	Endereco           string `json:"endereco"`
	Numero             string `json:"numero"`
	Bairro             string `json:"bairro"`
	CEP                string `json:"cep"`
	Municipio          string `json:"municipio"`
	UF                 string `json:"uf"`
	InscricaoMunicipal string `json:"inscricaoMunicipal"`
	InscricaoEstadual  string `json:"inscricaoEstadual"`
}

// Documento is the canonical fiscal document produced by normalizing one
// municipal NFSe XML. All monetary fields default to zero and all strings to
// empty, so consumers never need presence checks.
type Documento struct {
	Layout Layout `json:"layout"`

	NumeroNfse        string `json:"numeroNfse"`
	DataEmissao       string `json:"dataEmissao"`
	CodigoVerificacao string `json:"codigoVerificacao"`

	Prestador Prestador `json:"prestador"`
	Tomador   Tomador   `json:"tomador"`

	DescricaoServicos string `json:"descricaoServicos"`
	Observacoes       string `json:"observacoes"`

	CodigoServico  string  `json:"codigoServico"`
	ValorServicos  float64 `json:"valorServicos"`
	ValorDeducoes  float64 `json:"valorDeducoes"`
	BaseCalculo    float64 `json:"baseCalculo"`
	Aliquota       float64 `json:"aliquota"`
	ValorIss       float64 `json:"valorIss"`
	IssRetido      bool    `json:"issRetido"`
	ValorTotalNota float64 `json:"valorTotalNota"`

	Pis    float64 `json:"pis"`
	Cofins float64 `json:"cofins"`
	Inss   float64 `json:"inss"`
	Ir     float64 `json:"ir"`
	Csll   float64 `json:"csll"`

	OutrasInformacoes string `json:"outrasInformacoes"`
}

// Tributos is the per-document withheld-tax summary used by the tax report.
type Tributos struct {
	Iss    float64 `json:"iss"`
	Pis    float64 `json:"pis"`
	Cofins float64 `json:"cofins"`
	Inss   float64 `json:"inss"`
	Irrf   float64 `json:"irrf"`
	Csll   float64 `json:"csll"`
}

// Total returns the sum of all withheld taxes in the summary.
func (t Tributos) Total() float64 {
	return t.Iss + t.Pis + t.Cofins + t.Inss + t.Irrf + t.Csll
}
