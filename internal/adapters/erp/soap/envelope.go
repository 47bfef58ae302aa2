package soap

import (
	"fmt"
	"strings"
	"time"

	appdanfse "simpleit/simpledfe_core/internal/application/danfse"
	"simpleit/simpledfe_core/internal/core/erp"
)

// Fixed FCFO field values required by the TOTVS FinCFODataBr contract.
// These are ERP-side constants, not deployment configuration.
const (
	defaultPagRec         = "2" // suppliers
	defaultAtivo          = "1"
	defaultPais           = "BRASIL"
	defaultCodReceita     = "0000"
	defaultRamoAtiv       = "4"
	defaultOptanteSimples = "1"
	defaultTipoRua        = "1"
	defaultTipoBairro     = "14"
	defaultRegimeISS      = "N"
	defaultPorte          = "3"
	defaultTipoCombust    = "3"
	defaultIDPais         = "1"
	defaultAplicFormula   = "F"
	defaultDigVerific     = "1"
	defaultTipoRendimento = "000"
	defaultFormaTrib      = "00"
	defaultUsuarioAlt     = "MARILDA"
	defaultUsuarioCriacao = "srvtotvsautboffice"
	defaultNaoUsarCalc    = "NUNCA"
)

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// escape entity-escapes free text before embedding it in the inner document.
func escape(s string) string {
	return xmlEscaper.Replace(s)
}

// buildEnvelope serializes a company record into the TOTVS SaveRecord SOAP
// envelope. The FinCFOBR payload is CDATA-wrapped, so its already-escaped
// field values are not escaped a second time by the outer document.
func buildEnvelope(e erp.Empresa, codColigada, username string, now time.Time) string {
	date := now.Format("2006-01-02")

	fantasia := e.Fantasia
	if fantasia == "" {
		fantasia = e.Nome
	}

	inner := fmt.Sprintf(`<FinCFOBR >
  <FCFO>
    <CODEXTERNO>00000000</CODEXTERNO>
    <CODCOLIGADA>%s</CODCOLIGADA>
    <CODCFO>-1</CODCFO>
    <NOMEFANTASIA>%s</NOMEFANTASIA>
    <NOME>%s</NOME>
    <CGCCFO>%s</CGCCFO>
    <PAGREC>%s</PAGREC>
    <RUA>%s</RUA>
    <NUMERO>%s</NUMERO>
    <BAIRRO>%s</BAIRRO>
    <CIDADE>%s</CIDADE>
    <CODETD>%s</CODETD>
    <CEP>%s</CEP>
    <TELEFONE>%s</TELEFONE>
    <EMAIL>%s</EMAIL>
    <CONTATO>%s</CONTATO>
    <ATIVO>%s</ATIVO>
    <LIMITECREDITO>0</LIMITECREDITO>
    <DATAULTALTERACAO>%s</DATAULTALTERACAO>
    <DATACRIACAO>%s</DATACRIACAO>
    <DATAULTMOVIMENTO>%s</DATAULTMOVIMENTO>
    <VALOROP1>0</VALOROP1>
    <VALOROP2>0</VALOROP2>
    <VALOROP3>0</VALOROP3>
    <PATRIMONIO>0</PATRIMONIO>
    <NUMFUNCIONARIOS>0</NUMFUNCIONARIOS>
    <CODMUNICIPIO>%s</CODMUNICIPIO>
    <INSCRMUNICIPAL>%s</INSCRMUNICIPAL>
    <PESSOAFISOUJUR>J</PESSOAFISOUJUR>
    <PAIS>%s</PAIS>
    <CONTRIBUINTE>0</CONTRIBUINTE>
    <CFOIMOB>0</CFOIMOB>
    <VALFRETE>0</VALFRETE>
    <TPTOMADOR>0</TPTOMADOR>
    <CONTRIBUINTEISS>0</CONTRIBUINTEISS>
    <NUMDEPENDENTES>0</NUMDEPENDENTES>
    <USUARIOALTERACAO>%s</USUARIOALTERACAO>
    <ORGAOPUBLICO>0</ORGAOPUBLICO>
    <IDCFO></IDCFO>
    <VROUTRASDEDUCOESIRRF>0</VROUTRASDEDUCOESIRRF>
    <CODRECEITA>%s</CODRECEITA>
    <RAMOATIV>%s</RAMOATIV>
    <OPTANTEPELOSIMPLES>%s</OPTANTEPELOSIMPLES>
    <TIPORUA>%s</TIPORUA>
    <TIPOBAIRRO>%s</TIPOBAIRRO>
    <REGIMEISS>%s</REGIMEISS>
    <RETENCAOISS>0</RETENCAOISS>
    <USUARIOCRIACAO>%s</USUARIOCRIACAO>
    <PORTE>%s</PORTE>
    <TIPOOPCOMBUSTIVEL>%s</TIPOOPCOMBUSTIVEL>
    <IDPAIS>%s</IDPAIS>
    <NACIONALIDADE>0</NACIONALIDADE>
    <CALCULAAVP>0</CALCULAAVP>
    <RECCREATEDBY>%s</RECCREATEDBY>
    <RECCREATEDON>%s</RECCREATEDON>
    <RECMODIFIEDBY>%s</RECMODIFIEDBY>
    <RECMODIFIEDON>%s</RECMODIFIEDON>
    <TIPORENDIMENTO>%s</TIPORENDIMENTO>
    <FORMATRIBUTACAO>%s</FORMATRIBUTACAO>
    <SITUACAONIF>0</SITUACAONIF>
    <ISTOTVSMESSAGE>0</ISTOTVSMESSAGE>
    <INOVAR_AUTO>0</INOVAR_AUTO>
    <APLICFORMULA>%s</APLICFORMULA>
    <CODCFOCOLINTEGRACAO>0</CODCFOCOLINTEGRACAO>
    <DIGVERIFICDEBAUTOMATICO>%s</DIGVERIFICDEBAUTOMATICO>
    <ENTIDADEEXECUTORAPAA>0</ENTIDADEEXECUTORAPAA>
    <APOSENTADOOUPENSIONISTA>0</APOSENTADOOUPENSIONISTA>
    <SOCIOCOOPERADO>0</SOCIOCOOPERADO>
  </FCFO>
  <FCFOCOMPL>
    <CODCOLIGADA>%s</CODCOLIGADA>
    <CODCFO>-1</CODCFO>
    <NAOUSARCALCSIMPIRPF>%s</NAOUSARCALCSIMPIRPF>
  </FCFOCOMPL>
</FinCFOBR>`,
		codColigada,
		escape(fantasia),
		escape(e.Nome),
		appdanfse.FormatCNPJ(e.CNPJ),
		defaultPagRec,
		escape(e.Logradouro),
		escape(e.Numero),
		escape(e.Bairro),
		escape(e.Municipio),
		escape(e.UF),
		appdanfse.FormatCEP(e.CEP),
		escape(e.Telefone),
		escape(e.Email),
		escape(e.Nome),
		defaultAtivo,
		date, date, date,
		escape(e.CodigoMunicipio),
		escape(e.InscricaoMunicipal),
		defaultPais,
		defaultUsuarioAlt,
		defaultCodReceita,
		defaultRamoAtiv,
		defaultOptanteSimples,
		defaultTipoRua,
		defaultTipoBairro,
		defaultRegimeISS,
		defaultUsuarioCriacao,
		defaultPorte,
		defaultTipoCombust,
		defaultIDPais,
		defaultUsuarioCriacao,
		date,
		defaultUsuarioCriacao,
		date,
		defaultTipoRendimento,
		defaultFormaTrib,
		defaultAplicFormula,
		defaultDigVerific,
		codColigada,
		defaultNaoUsarCalc,
	)

	return fmt.Sprintf(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:tot="http://www.totvs.com/">
   <soapenv:Header/>
   <soapenv:Body>
      <tot:SaveRecord>
         <tot:DataServerName>FinCFODataBr</tot:DataServerName>
         <tot:XML><![CDATA[%s]]></tot:XML>
         <tot:Contexto>CODCOLIGADA=%s;CODUSUARIO='%s';CODSISTEMA=F</tot:Contexto>
      </tot:SaveRecord>
   </soapenv:Body>
</soapenv:Envelope>`, inner, codColigada, username)
}
