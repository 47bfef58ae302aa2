package danfse

import (
	"strings"

	"github.com/antchfx/xmlquery"

	"simpleit/simpledfe_core/internal/core/danfse"
)

// detectLayout classifies a parsed tree into exactly one municipal layout.
// Order matters: the variants are not mutually exclusive by tag presence
// alone, so the more specific probes run first and the first match wins.
func detectLayout(doc *xmlquery.Node) (danfse.Layout, bool) {
	switch {
	case isBarueri(doc):
		return danfse.LayoutBarueri, true
	case isBeloHorizonte(doc):
		return danfse.LayoutBeloHorizonte, true
	case isSaoPaulo(doc):
		return danfse.LayoutSaoPaulo, true
	case child(doc, "NFe") != nil:
		return danfse.LayoutNFeLegado, true
	case elem(doc, "root", "Nfe") != nil:
		return danfse.LayoutRootNfe, true
	case elem(doc, "NFSe", "infNFSe") != nil:
		return danfse.LayoutGenerico, true
	}
	return "", false
}

// isBarueri matches Barueri and the alternative-emit family: the emitter and
// amounts hang directly off infNFSe instead of inside a DPS declaration.
func isBarueri(doc *xmlquery.Node) bool {
	inf := elem(doc, "NFSe", "infNFSe")
	if inf == nil {
		return false
	}
	if child(inf, "DPS") != nil && (child(inf, "emit") == nil || child(inf, "valores") == nil) {
		return false
	}
	return strings.Contains(text(inf, "xLocEmi"), "BARUERI") || child(inf, "nNFSe") != nil
}

func isBeloHorizonte(doc *xmlquery.Node) bool {
	loc := text(doc, "NFSe", "infNFSe", "xLocEmi")
	return strings.Contains(loc, "BELO") ||
		strings.Contains(loc, "HORIZONTE") ||
		strings.Contains(loc, "BARUERI")
}

func isSaoPaulo(doc *xmlquery.Node) bool {
	return elem(doc, "NFSe", "infNFSe", "DPS") != nil && !isBeloHorizonte(doc)
}
