package danfse

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/antchfx/xmlquery"

	"simpleit/simpledfe_core/internal/core/danfse"
)

// Service normalizes heterogeneous municipal NFSe XML into the canonical
// document representation. It is stateless; one normalization owns its
// parsed tree exclusively.
type Service struct {
	log *slog.Logger
}

// NewService creates a new normalizer service.
func NewService(log *slog.Logger) *Service {
	return &Service{log: log}
}

// Normalize decodes, parses, classifies and extracts a raw stored XML blob
// into a canonical document. It fails only on undecodable input
// (danfse.ErrXMLMalformado) or an unrecognized layout
// (danfse.ErrLayoutDesconhecido); missing fields degrade to defaults.
func (s *Service) Normalize(raw string) (*danfse.Documento, error) {
	doc, err := s.parse(raw)
	if err != nil {
		return nil, err
	}

	layout, ok := detectLayout(doc)
	if !ok {
		return nil, danfse.ErrLayoutDesconhecido
	}

	d := extract(layout, doc)
	s.log.Debug("documento normalizado",
		"layout", layout,
		"numero_nfse", d.NumeroNfse,
		"valor_total", d.ValorTotalNota,
	)
	return d, nil
}

func (s *Service) parse(raw string) (*xmlquery.Node, error) {
	clean, err := sanitize(raw)
	if err != nil {
		return nil, err
	}
	doc, err := xmlquery.Parse(strings.NewReader(clean))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", danfse.ErrXMLMalformado, err)
	}
	if rootElement(doc) == nil {
		return nil, fmt.Errorf("%w: documento sem elemento raiz", danfse.ErrXMLMalformado)
	}
	return doc, nil
}

func rootElement(doc *xmlquery.Node) *xmlquery.Node {
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return c
		}
	}
	return nil
}

// Tax alias sets used by the withheld-tax report. Broader than the canonical
// extraction aliases: the report matches case-insensitively against every
// variation seen in stored documents.
var (
	reportAliasIss    = []string{"vISSQN", "vISS", "ISSQN", "ISS"}
	reportAliasPis    = []string{"vPis", "vPIS", "Pis", "PIS"}
	reportAliasCofins = []string{"vCofins", "vCOFINS", "Cofins", "COFINS"}
	reportAliasInss   = []string{"vRetINSS", "vINSS", "INSS", "RetINSS"}
	reportAliasIrrf   = []string{"vRetIRRF", "vIRRF", "IRRF", "IR"}
	reportAliasCsll   = []string{"vRetCSLL", "vCSLL", "CSLL", "RetCSLL"}
)

func searchReportTax(root *xmlquery.Node, aliases []string) float64 {
	for _, alias := range aliases {
		if v := searchTax(root, alias, true); v > 0 {
			return v
		}
	}
	return 0
}

// Tributos extracts the withheld-tax summary of one stored XML blob for the
// tax report. Any decode or parse failure yields a zeroed summary together
// with the error, so a single broken document never aborts a whole report.
func (s *Service) Tributos(raw string) (danfse.Tributos, error) {
	doc, err := s.parse(raw)
	if err != nil {
		return danfse.Tributos{}, err
	}
	return danfse.Tributos{
		Iss:    searchReportTax(doc, reportAliasIss),
		Pis:    searchReportTax(doc, reportAliasPis),
		Cofins: searchReportTax(doc, reportAliasCofins),
		Inss:   searchReportTax(doc, reportAliasInss),
		Irrf:   searchReportTax(doc, reportAliasIrrf),
		Csll:   searchReportTax(doc, reportAliasCsll),
	}, nil
}

// ImportInfo carries the fields extracted from an uploaded NFSe XML for
// persisting a new capture-side record.
type ImportInfo struct {
	Chave          string
	DataEmissao    string
	CNPJPrestador  string
	NomePrestador  string
	LocalPrestacao string
	ValorServico   float64
	CNPJTomador    string
	NomeTomador    string
}

// ExtractImportInfo validates an uploaded XML as an NFSe and pulls out the
// fields needed to persist it. Validation only requires one of the NFSe
// marker tags; extraction is recursive and case-insensitive because
// uploaded files come from any municipality.
func (s *Service) ExtractImportInfo(xmlContent string) (*ImportInfo, error) {
	doc, err := s.parse(xmlContent)
	if err != nil {
		return nil, err
	}

	if !hasNFSeMarkers(doc) {
		return nil, fmt.Errorf("%w: tags obrigatórias de NFSe não encontradas", danfse.ErrLayoutDesconhecido)
	}

	chave := findValueFold(doc, "CodigoVerificacao", "codigo_verificacao")
	if chave == "" {
		if inf := findElemFold(doc, "infNFSe"); inf != nil {
			chave = onlyDigits(inf.SelectAttr("Id"))
		}
	}

	return &ImportInfo{
		Chave:          chave,
		DataEmissao:    findValueFold(doc, "DataEmissaoNFe", "dhEmi", "dataEmissao", "DataEmissao"),
		CNPJPrestador:  findValueFold(doc, "CNPJ", "CNPJPrestador"),
		NomePrestador:  findValueFold(doc, "nome", "xNome", "RazaoSocialPrestador", "razaoSocial"),
		LocalPrestacao: findValueFold(doc, "cLocPrestacao", "MunicipioPrestacao", "municipioPrestacao"),
		ValorServico:   money(findValueFold(doc, "ValorServicos", "vServ", "valorServicos")),
		CNPJTomador:    findValueFold(doc, "CNPJTomador", "cnpjTomador"),
		NomeTomador:    findValueFold(doc, "RazaoSocialTomador", "razaoSocialTomador", "xNomeTomador"),
	}, nil
}

func hasNFSeMarkers(doc *xmlquery.Node) bool {
	return child(doc, "NFSe") != nil ||
		findElemFold(doc, "ChaveRPS") != nil ||
		findElemFold(doc, "nNFSe") != nil ||
		findElemFold(doc, "numeroNfse") != nil ||
		findElemFold(doc, "infNFSe") != nil
}

// findElemFold returns the first element anywhere in the tree whose name
// matches case-insensitively.
func findElemFold(n *xmlquery.Node, name string) *xmlquery.Node {
	if n == nil {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		if strings.EqualFold(c.Data, name) {
			return c
		}
		if found := findElemFold(c, name); found != nil {
			return found
		}
	}
	return nil
}

// findValueFold tries each key in order, searching the whole tree
// case-insensitively for an element with non-empty text.
func findValueFold(n *xmlquery.Node, keys ...string) string {
	for _, key := range keys {
		if el := findElemFoldWithText(n, key); el != "" {
			return el
		}
	}
	return ""
}

func findElemFoldWithText(n *xmlquery.Node, name string) string {
	if n == nil {
		return ""
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		if strings.EqualFold(c.Data, name) {
			if v := strings.TrimSpace(c.InnerText()); v != "" {
				return v
			}
		}
		if v := findElemFoldWithText(c, name); v != "" {
			return v
		}
	}
	return ""
}
