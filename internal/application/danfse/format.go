package danfse

import "strings"

// municipios maps the IBGE codes observed in production to display names.
// Unknown codes resolve to empty string; resolution never fails.
var municipios = map[string]string{
	"3106200": "BELO HORIZONTE",
	"3550308": "SÃO PAULO",
	"3509502": "CAMPINAS",
	"2927408": "SALVADOR",
}

// MunicipioNome resolves an IBGE municipality code to its display name.
func MunicipioNome(codigo string) string {
	return municipios[codigo]
}

func onlyDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r < '0' || r > '9' {
			return -1
		}
		return r
	}, s)
}

// FormatCNPJ formats a 14-digit CNPJ as 12.345.678/0001-95. Input with any
// other digit count is returned unchanged.
func FormatCNPJ(cnpj string) string {
	digits := onlyDigits(cnpj)
	if len(digits) != 14 {
		return cnpj
	}
	return digits[:2] + "." + digits[2:5] + "." + digits[5:8] + "/" + digits[8:12] + "-" + digits[12:]
}

// FormatCEP formats an 8-digit CEP as 01310-100. Input with any other digit
// count is returned unchanged.
func FormatCEP(cep string) string {
	digits := onlyDigits(cep)
	if len(digits) != 8 {
		return cep
	}
	return digits[:5] + "-" + digits[5:]
}
