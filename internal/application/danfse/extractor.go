package danfse

import (
	"github.com/antchfx/xmlquery"

	"simpleit/simpledfe_core/internal/core/danfse"
)

// nfseTree holds the shared navigation points of the national-standard
// NFSe/infNFSe family (Barueri, Belo Horizonte, São Paulo, generic). Any of
// the nodes may be nil; the lookup helpers tolerate that.
type nfseTree struct {
	inf         *xmlquery.Node
	emit        *xmlquery.Node
	enderNac    *xmlquery.Node
	dps         *xmlquery.Node
	prest       *xmlquery.Node
	prestEnd    *xmlquery.Node
	prestEndNac *xmlquery.Node
	toma        *xmlquery.Node
	tomaEnd     *xmlquery.Node
	tomaEndNac  *xmlquery.Node
	cServ       *xmlquery.Node
	serv        *xmlquery.Node
	valores     *xmlquery.Node
}

func newNfseTree(doc *xmlquery.Node) nfseTree {
	t := nfseTree{inf: elem(doc, "NFSe", "infNFSe")}
	t.emit = child(t.inf, "emit")
	t.enderNac = child(t.emit, "enderNac")
	t.dps = elem(t.inf, "DPS", "infDPS")
	t.prest = child(t.dps, "prest")
	t.prestEnd = child(t.prest, "end")
	t.prestEndNac = child(t.prestEnd, "endNac")
	t.toma = child(t.dps, "toma")
	t.tomaEnd = child(t.toma, "end")
	t.tomaEndNac = child(t.tomaEnd, "endNac")
	t.serv = child(t.dps, "serv")
	t.cServ = child(t.serv, "cServ")
	if t.valores = child(t.dps, "valores"); t.valores == nil {
		t.valores = child(t.inf, "valores")
	}
	return t
}

// extract dispatches to the layout-specific extractor. Extraction never
// fails once a layout matched; every missing field degrades to a default.
func extract(layout danfse.Layout, doc *xmlquery.Node) *danfse.Documento {
	var d *danfse.Documento
	switch layout {
	case danfse.LayoutBarueri:
		d = extractBarueri(doc)
	case danfse.LayoutBeloHorizonte:
		d = extractBeloHorizonte(doc)
	case danfse.LayoutSaoPaulo:
		d = extractSaoPaulo(doc)
	case danfse.LayoutNFeLegado:
		d = extractNFeLegado(doc)
	case danfse.LayoutRootNfe:
		d = extractRootNfe(doc)
	default:
		d = extractGenerico(doc)
	}
	d.Layout = layout
	return d
}

func extractBarueri(doc *xmlquery.Node) *danfse.Documento {
	t := newNfseTree(doc)
	vIss := findValue(doc, "vISSQN")
	vServ := findValue(doc, "vServ")

	return &danfse.Documento{
		NumeroNfse:        firstText(text(t.inf, "nNFSe"), text(t.inf, "nDFSe")),
		DataEmissao:       firstText(text(t.dps, "dhEmi"), text(t.inf, "dhEmi"), text(t.inf, "dhProc")),
		CodigoVerificacao: text(t.inf, "cVerif"),

		Prestador: danfse.Prestador{
			CNPJ:               FormatCNPJ(firstText(text(t.emit, "CNPJ"), text(t.prest, "CNPJ"))),
			RazaoSocial:        firstText(text(t.emit, "xNome"), text(t.prest, "xNome")),
			Endereco:           firstText(text(t.enderNac, "xLgr"), text(t.prestEnd, "xLgr")),
			Numero:             firstText(text(t.enderNac, "nro"), text(t.prestEnd, "nro")),
			Complemento:        firstText(text(t.enderNac, "xCpl"), text(t.prestEnd, "xCpl")),
			Bairro:             firstText(text(t.enderNac, "xBairro"), text(t.prestEnd, "xBairro")),
			CEP:                FormatCEP(firstText(text(t.enderNac, "CEP"), text(t.prestEndNac, "CEP"))),
			Municipio:          firstText(MunicipioNome(firstText(text(t.enderNac, "cMun"), text(t.prestEndNac, "cMun"))), text(t.inf, "xLocEmi")),
			UF:                 firstText(text(t.enderNac, "UF"), text(t.prestEndNac, "UF")),
			InscricaoMunicipal: firstText(text(t.emit, "IM"), text(t.prest, "IM")),
			Telefone:           text(t.emit, "fone"),
			Email:              text(t.emit, "email"),
		},

		Tomador: danfse.Tomador{
			CNPJ:               FormatCNPJ(text(t.toma, "CNPJ")),
			RazaoSocial:        text(t.toma, "xNome"),
			Endereco:           text(t.tomaEnd, "xLgr"),
			Numero:             text(t.tomaEnd, "nro"),
			Bairro:             text(t.tomaEnd, "xBairro"),
			CEP:                FormatCEP(text(t.tomaEndNac, "CEP")),
			Municipio:          firstText(MunicipioNome(text(t.tomaEndNac, "cMun")), text(t.inf, "xLocPrestacao")),
			UF:                 text(t.tomaEndNac, "UF"),
			InscricaoMunicipal: text(t.toma, "IM"),
		},

		DescricaoServicos: firstText(text(t.cServ, "xDescServ"), text(t.inf, "xTribNac"), text(t.inf, "xTribMun")),
		Observacoes:       firstText(text(t.valores, "xOutInf"), text(t.inf, "xOutInf")),

		CodigoServico:  text(t.cServ, "cTribNac"),
		ValorServicos:  money(vServ, text(t.valores, "vServPrest", "vServ"), text(t.valores, "vServ"), text(t.valores, "vBC")),
		BaseCalculo:    money(text(t.valores, "vBC"), vServ, text(t.valores, "vServ")),
		Aliquota:       money(text(t.valores, "pAliqAplic")),
		ValorIss:       money(vIss, text(t.valores, "vISSQN")),
		IssRetido:      text(t.valores, "tpRetISSQN") == "1",
		ValorTotalNota: money(text(t.valores, "vLiq"), vServ, text(t.valores, "vServ"), text(t.valores, "vBC")),

		Pis:    findPis(doc),
		Cofins: findCofins(doc),
		Inss:   findInss(doc),
		Ir:     findIr(doc),
		Csll:   findCsll(doc),

		OutrasInformacoes: firstText(text(t.valores, "xOutInf"), text(t.inf, "xOutInf")),
	}
}

func extractBeloHorizonte(doc *xmlquery.Node) *danfse.Documento {
	t := newNfseTree(doc)
	vIss := findValue(doc, "vISSQN")
	vServ := findValue(doc, "vServ")

	return &danfse.Documento{
		NumeroNfse:        text(t.inf, "nNFSe"),
		DataEmissao:       firstText(text(t.dps, "dhEmi"), text(t.inf, "dhEmi")),
		CodigoVerificacao: text(t.inf, "cVerif"),

		Prestador: danfse.Prestador{
			CNPJ:               FormatCNPJ(firstText(text(t.emit, "CNPJ"), text(t.prest, "CNPJ"))),
			RazaoSocial:        firstText(text(t.emit, "xNome"), text(t.prest, "xNome")),
			Endereco:           firstText(text(t.enderNac, "xLgr"), text(t.prestEnd, "xLgr")),
			Numero:             firstText(text(t.enderNac, "nro"), text(t.prestEnd, "nro")),
			Complemento:        firstText(text(t.enderNac, "xCpl"), text(t.prestEnd, "xCpl")),
			Bairro:             firstText(text(t.enderNac, "xBairro"), text(t.prestEnd, "xBairro")),
			CEP:                FormatCEP(firstText(text(t.enderNac, "CEP"), text(t.prestEndNac, "CEP"))),
			Municipio:          MunicipioNome(firstText(text(t.enderNac, "cMun"), text(t.prestEndNac, "cMun"))),
			UF:                 firstText(text(t.enderNac, "UF"), text(t.prestEndNac, "UF")),
			InscricaoMunicipal: firstText(text(t.emit, "IM"), text(t.prest, "IM")),
			Telefone:           text(t.emit, "fone"),
			Email:              text(t.emit, "email"),
		},

		Tomador: danfse.Tomador{
			CNPJ:               FormatCNPJ(text(t.toma, "CNPJ")),
			RazaoSocial:        text(t.toma, "xNome"),
			Endereco:           text(t.tomaEnd, "xLgr"),
			Numero:             text(t.tomaEnd, "nro"),
			Bairro:             text(t.tomaEnd, "xBairro"),
			CEP:                FormatCEP(text(t.tomaEndNac, "CEP")),
			Municipio:          MunicipioNome(text(t.tomaEndNac, "cMun")),
			UF:                 text(t.tomaEndNac, "UF"),
			InscricaoMunicipal: text(t.toma, "IM"),
		},

		DescricaoServicos: firstText(text(t.cServ, "xDescServ"), text(t.inf, "xTribNac")),
		Observacoes:       firstText(text(t.valores, "xOutInf"), text(t.inf, "xOutInf")),

		CodigoServico:  text(t.cServ, "cTribNac"),
		ValorServicos:  money(vServ, text(t.valores, "vServPrest", "vServ"), text(t.valores, "vServ")),
		BaseCalculo:    money(text(t.valores, "vBC"), vServ, text(t.valores, "vServ")),
		Aliquota:       money(text(t.valores, "pAliqAplic")),
		ValorIss:       money(vIss, text(t.valores, "vISSQN")),
		IssRetido:      text(t.valores, "tpRetISSQN") == "1",
		ValorTotalNota: money(text(t.valores, "vLiq"), vServ, text(t.valores, "vServ")),

		Pis:    findPis(doc),
		Cofins: findCofins(doc),
		Inss:   findInss(doc),
		Ir:     findIr(doc),
		Csll:   findCsll(doc),

		OutrasInformacoes: firstText(text(t.valores, "xOutInf"), text(t.inf, "xOutInf")),
	}
}

func extractSaoPaulo(doc *xmlquery.Node) *danfse.Documento {
	t := newNfseTree(doc)
	vIss := findValue(doc, "vISSQN")
	vServ := findValue(doc, "vServ")

	return &danfse.Documento{
		NumeroNfse:        text(t.inf, "nNFSe"),
		DataEmissao:       firstText(text(t.dps, "dhEmi"), text(t.inf, "dhEmi")),
		CodigoVerificacao: text(t.inf, "cVerif"),

		Prestador: danfse.Prestador{
			CNPJ:               FormatCNPJ(text(t.emit, "CNPJ")),
			RazaoSocial:        text(t.emit, "xNome"),
			Endereco:           text(t.enderNac, "xLgr"),
			Numero:             text(t.enderNac, "nro"),
			Complemento:        text(t.enderNac, "xCpl"),
			Bairro:             text(t.enderNac, "xBairro"),
			CEP:                FormatCEP(text(t.enderNac, "CEP")),
			Municipio:          MunicipioNome(text(t.enderNac, "cMun")),
			UF:                 text(t.enderNac, "UF"),
			InscricaoMunicipal: text(t.emit, "IM"),
			Telefone:           text(t.emit, "fone"),
			Email:              text(t.emit, "email"),
		},

		Tomador: danfse.Tomador{
			CNPJ:               FormatCNPJ(text(t.toma, "CNPJ")),
			RazaoSocial:        text(t.toma, "xNome"),
			Endereco:           text(t.tomaEnd, "xLgr"),
			Numero:             text(t.tomaEnd, "nro"),
			Bairro:             text(t.tomaEnd, "xBairro"),
			CEP:                FormatCEP(text(t.tomaEndNac, "CEP")),
			Municipio:          MunicipioNome(text(t.tomaEndNac, "cMun")),
			UF:                 text(t.tomaEndNac, "UF"),
			InscricaoMunicipal: text(t.toma, "IM"),
		},

		DescricaoServicos: text(t.cServ, "xDescServ"),
		Observacoes:       text(t.valores, "xOutInf"),

		CodigoServico:  text(t.cServ, "cTribNac"),
		ValorServicos:  money(vServ, text(t.valores, "vServPrest", "vServ"), text(t.valores, "vServ"), text(t.serv, "vServ")),
		BaseCalculo:    money(text(t.valores, "vBC"), vServ, text(t.valores, "vServ"), text(t.serv, "vServ")),
		Aliquota:       money(text(t.valores, "pAliqAplic")),
		ValorIss:       money(vIss),
		IssRetido:      text(t.valores, "tpRetISSQN") == "1",
		ValorTotalNota: money(text(t.valores, "vLiq"), vServ, text(t.valores, "vServ"), text(t.serv, "vServ")),

		Pis:    findPis(doc),
		Cofins: findCofins(doc),
		Inss:   findInss(doc),
		Ir:     findIr(doc),
		Csll:   findCsll(doc),

		OutrasInformacoes: text(t.valores, "xOutInf"),
	}
}

// extractNFeLegado handles the legacy flat schema that reuses NFe-style tag
// names (ChaveNFe, RazaoSocialPrestador, ...). Its rate field is a fraction,
// not a percentage, so it is scaled here.
func extractNFeLegado(doc *xmlquery.Node) *danfse.Documento {
	nfe := child(doc, "NFe")
	chave := child(nfe, "ChaveNFe")
	endPrest := child(nfe, "EnderecoPrestador")
	endToma := child(nfe, "EnderecoTomador")

	return &danfse.Documento{
		NumeroNfse:        text(chave, "NumeroNFe"),
		DataEmissao:       text(nfe, "DataEmissaoNFe"),
		CodigoVerificacao: text(chave, "CodigoVerificacao"),

		Prestador: danfse.Prestador{
			CNPJ:               FormatCNPJ(text(nfe, "CPFCNPJPrestador", "CNPJ")),
			RazaoSocial:        text(nfe, "RazaoSocialPrestador"),
			Endereco:           text(endPrest, "Logradouro"),
			Numero:             text(endPrest, "NumeroEndereco"),
			Complemento:        text(endPrest, "ComplementoEndereco"),
			Bairro:             text(endPrest, "Bairro"),
			CEP:                FormatCEP(text(endPrest, "CEP")),
			Municipio:          MunicipioNome(text(endPrest, "Cidade")),
			UF:                 text(endPrest, "UF"),
			InscricaoMunicipal: text(chave, "InscricaoPrestador"),
			Email:              text(nfe, "EmailPrestador"),
		},

		Tomador: danfse.Tomador{
			CNPJ:              FormatCNPJ(text(nfe, "CPFCNPJTomador", "CNPJ")),
			RazaoSocial:       text(nfe, "RazaoSocialTomador"),
			Endereco:          text(endToma, "Logradouro"),
			Numero:            text(endToma, "NumeroEndereco"),
			Bairro:            text(endToma, "Bairro"),
			CEP:               FormatCEP(text(endToma, "CEP")),
			Municipio:         MunicipioNome(text(endToma, "Cidade")),
			UF:                text(endToma, "UF"),
			InscricaoEstadual: text(nfe, "InscricaoEstadualTomador"),
		},

		DescricaoServicos: text(nfe, "Discriminacao"),

		CodigoServico:  text(nfe, "CodigoServico"),
		ValorServicos:  money(text(nfe, "ValorServicos")),
		BaseCalculo:    money(text(nfe, "ValorServicos")),
		Aliquota:       money(text(nfe, "AliquotaServicos")) * 100,
		ValorIss:       money(text(nfe, "ValorISS")),
		IssRetido:      text(nfe, "ISSRetido") == "true",
		ValorTotalNota: money(text(nfe, "ValorServicos")),

		Pis:    findPis(doc),
		Cofins: findCofins(doc),
		Inss:   findInss(doc),
		Ir:     findIr(doc),
		Csll:   findCsll(doc),

		OutrasInformacoes: text(nfe, "Discriminacao"),
	}
}

// extractRootNfe handles the root/Nfe wrapper schema. Withheld taxes live at
// fixed paths under Servico/Valores, so the recursive search is not needed.
func extractRootNfe(doc *xmlquery.Node) *danfse.Documento {
	nfe := elem(doc, "root", "Nfe")
	infNFe := child(nfe, "InfNFe")
	if infNFe == nil {
		infNFe = child(nfe, "infNFe")
	}
	prestador := child(infNFe, "PrestadorServico")
	prestEnd := child(prestador, "Endereco")
	prestID := child(prestador, "IdentificacaoPrestador")
	contato := child(prestador, "Contato")
	infDecl := elem(infNFe, "DeclaracaoPrestacaoServico", "InfDeclaracaoPrestacaoServico")
	valores := child(infNFe, "ValoresNfe")
	tomador := child(infDecl, "TomadorServico")
	tomaEnd := child(tomador, "Endereco")
	tomaID := child(tomador, "IdentificacaoTomador")
	servico := child(infDecl, "Servico")
	valServ := child(servico, "Valores")

	return &danfse.Documento{
		NumeroNfse:        text(infNFe, "NumeroNfe"),
		DataEmissao:       text(infNFe, "DataEmissao"),
		CodigoVerificacao: text(infNFe, "CodigoVerificacao"),

		Prestador: danfse.Prestador{
			CNPJ:               FormatCNPJ(text(prestID, "CpfCnpj", "Cnpj")),
			RazaoSocial:        text(prestador, "RazaoSocial"),
			Endereco:           text(prestEnd, "Endereco"),
			Numero:             text(prestEnd, "NumeroEndereco"),
			Complemento:        text(prestEnd, "ComplementoEndereco"),
			Bairro:             text(prestEnd, "Bairro"),
			CEP:                FormatCEP(text(prestEnd, "Cep")),
			Municipio:          text(prestEnd, "Cidade"),
			UF:                 text(prestEnd, "Uf"),
			InscricaoMunicipal: text(prestID, "InscricaoMunicipal"),
			Telefone:           text(contato, "Telefone"),
			Email:              text(contato, "Email"),
		},

		Tomador: danfse.Tomador{
			CNPJ:               FormatCNPJ(text(tomaID, "CpfCnpj", "Cnpj")),
			RazaoSocial:        text(tomador, "RazaoSocial"),
			Endereco:           text(tomaEnd, "Endereco"),
			Numero:             text(tomaEnd, "NumeroEndereco"),
			Bairro:             text(tomaEnd, "Bairro"),
			CEP:                FormatCEP(text(tomaEnd, "Cep")),
			Municipio:          text(tomaEnd, "Cidade"),
			UF:                 text(tomaEnd, "Uf"),
			InscricaoMunicipal: text(tomaID, "InscricaoMunicipal"),
			InscricaoEstadual:  text(tomaID, "InscricaoEstadual"),
		},

		DescricaoServicos: text(servico, "Discriminacao"),

		CodigoServico:  text(servico, "CodigoServico"),
		ValorServicos:  money(text(valServ, "ValorServicos")),
		ValorDeducoes:  money(text(valServ, "ValorDeducoes")),
		BaseCalculo:    money(text(valores, "BaseCalculo"), text(valServ, "ValorServicos")),
		Aliquota:       money(text(valores, "Aliquota"), text(valServ, "Aliquota")),
		ValorIss:       money(text(valores, "ValorIss"), text(valServ, "ValorIss")),
		IssRetido:      text(servico, "IssRetido") == "1",
		ValorTotalNota: money(text(valores, "ValorLiquidoNfe"), text(valServ, "ValorServicos")),

		Pis:    money(text(valServ, "ValorPis")),
		Cofins: money(text(valServ, "ValorCofins")),
		Inss:   money(text(valServ, "ValorInss")),
		Ir:     money(text(valServ, "ValorIr")),
		Csll:   money(text(valServ, "ValorCsll")),

		OutrasInformacoes: text(servico, "Discriminacao"),
	}
}

// extractGenerico is the best-effort pass for any NFSe/infNFSe document that
// matched no specific municipality.
func extractGenerico(doc *xmlquery.Node) *danfse.Documento {
	t := newNfseTree(doc)
	vIss := findValue(doc, "vISSQN")
	vServ := findValue(doc, "vServ")
	valores := child(t.inf, "valores")

	return &danfse.Documento{
		NumeroNfse:        firstText(text(t.inf, "nNFSe"), text(t.inf, "nDFSe")),
		DataEmissao:       firstText(text(t.inf, "dhEmi"), text(t.inf, "dhProc")),
		CodigoVerificacao: text(t.inf, "cVerif"),

		Prestador: danfse.Prestador{
			CNPJ:               FormatCNPJ(text(t.emit, "CNPJ")),
			RazaoSocial:        text(t.emit, "xNome"),
			Endereco:           text(t.enderNac, "xLgr"),
			Numero:             text(t.enderNac, "nro"),
			Complemento:        text(t.enderNac, "xCpl"),
			Bairro:             text(t.enderNac, "xBairro"),
			CEP:                FormatCEP(text(t.enderNac, "CEP")),
			Municipio:          firstText(MunicipioNome(text(t.enderNac, "cMun")), text(t.inf, "xLocEmi")),
			UF:                 text(t.enderNac, "UF"),
			InscricaoMunicipal: text(t.emit, "IM"),
			Telefone:           text(t.emit, "fone"),
			Email:              text(t.emit, "email"),
		},

		Tomador: danfse.Tomador{
			CNPJ:               FormatCNPJ(text(t.toma, "CNPJ")),
			RazaoSocial:        text(t.toma, "xNome"),
			Endereco:           text(t.tomaEnd, "xLgr"),
			Numero:             text(t.tomaEnd, "nro"),
			Bairro:             text(t.tomaEnd, "xBairro"),
			CEP:                FormatCEP(text(t.tomaEndNac, "CEP")),
			Municipio:          firstText(MunicipioNome(text(t.tomaEndNac, "cMun")), text(t.inf, "xLocPrestacao")),
			UF:                 text(t.tomaEndNac, "UF"),
			InscricaoMunicipal: text(t.toma, "IM"),
		},

		DescricaoServicos: firstText(text(t.cServ, "xDescServ"), text(t.inf, "xTribNac"), text(t.inf, "xTribMun")),
		Observacoes:       firstText(text(valores, "xOutInf"), text(t.inf, "xOutInf")),

		CodigoServico:  text(t.cServ, "cTribNac"),
		ValorServicos:  money(vServ, text(valores, "vServPrest", "vServ"), text(valores, "vServ"), text(valores, "vBC")),
		BaseCalculo:    money(text(valores, "vBC"), vServ, text(valores, "vServ")),
		Aliquota:       money(text(valores, "pAliqAplic")),
		ValorIss:       money(vIss, text(valores, "vISSQN")),
		IssRetido:      text(valores, "tpRetISSQN") == "1",
		ValorTotalNota: money(text(valores, "vLiq"), vServ, text(valores, "vServ"), text(valores, "vBC")),

		Pis:    findPis(doc),
		Cofins: findCofins(doc),
		Inss:   findInss(doc),
		Ir:     findIr(doc),
		Csll:   findCsll(doc),

		OutrasInformacoes: firstText(text(valores, "xOutInf"), text(t.inf, "xOutInf")),
	}
}
