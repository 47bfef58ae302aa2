package danfse

import (
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
)

// child returns the first child element of n with the given local name.
// Comparison is on the local name, so namespace prefixes do not matter.
func child(n *xmlquery.Node, name string) *xmlquery.Node {
	if n == nil {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == name {
			return c
		}
	}
	return nil
}

// elem walks a chain of child element names starting at n.
func elem(n *xmlquery.Node, names ...string) *xmlquery.Node {
	for _, name := range names {
		n = child(n, name)
		if n == nil {
			return nil
		}
	}
	return n
}

// text returns the trimmed inner text of the element at the given path,
// or empty string when any step of the path is missing.
func text(n *xmlquery.Node, names ...string) string {
	target := elem(n, names...)
	if target == nil {
		return ""
	}
	return strings.TrimSpace(target.InnerText())
}

// firstText returns the first non-empty candidate.
func firstText(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

// money returns the numeric value of the first non-empty candidate. Candidate
// order matters: a value present at the expected path must not be overridden
// by a zero found at a later fallback path.
func money(candidates ...string) float64 {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return parseDecimal(c)
		}
	}
	return 0
}

// parseDecimal parses a monetary string, tolerating trailing garbage the way
// municipal portals sometimes emit it. Unparseable input yields 0.
func parseDecimal(s string) float64 {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}

	// Fall back to the longest numeric prefix.
	end := 0
	seenDot := false
	for i, r := range s {
		if r == '-' || r == '+' {
			if i != 0 {
				break
			}
		} else if r == '.' {
			if seenDot {
				break
			}
			seenDot = true
		} else if r < '0' || r > '9' {
			break
		}
		end = i + 1
	}
	v, err := strconv.ParseFloat(strings.TrimRight(s[:end], ".+-"), 64)
	if err != nil {
		return 0
	}
	return v
}

// findValue walks the tree depth-first in document order and returns the text
// of the first element named exactly name with non-empty content.
func findValue(n *xmlquery.Node, name string) string {
	if n == nil {
		return ""
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		if c.Data == name {
			if v := strings.TrimSpace(c.InnerText()); v != "" {
				return v
			}
		}
		if v := findValue(c, name); v != "" {
			return v
		}
	}
	return ""
}

// searchTax walks the tree depth-first in document order looking for an
// element with the given name. On a direct name match with non-empty content
// the parsed value is returned even when zero; deeper matches only win when
// positive, so a zero does not shadow a real value elsewhere in the tree.
func searchTax(n *xmlquery.Node, name string, fold bool) float64 {
	if n == nil {
		return 0
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		match := c.Data == name
		if fold {
			match = strings.EqualFold(c.Data, name)
		}
		if match {
			if v := strings.TrimSpace(c.InnerText()); v != "" {
				return parseDecimal(v)
			}
		}
		if v := searchTax(c, name, fold); v > 0 {
			return v
		}
	}
	return 0
}

// findTax searches the whole tree for a withheld-tax amount under any of the
// known aliases for that tax. Aliases are tried case-sensitively first, then
// case-insensitively; the first positive hit wins.
func findTax(root *xmlquery.Node, aliases ...string) float64 {
	for _, alias := range aliases {
		if v := searchTax(root, alias, false); v > 0 {
			return v
		}
	}
	for _, alias := range aliases {
		if v := searchTax(root, alias, true); v > 0 {
			return v
		}
	}
	return 0
}

// Alias chains per tax, in lookup priority order. Municipalities disagree on
// both casing and whether the retained ("vRet...") or plain name is used.
var (
	aliasesPis    = []string{"vPis", "vPIS", "pis", "PIS"}
	aliasesCofins = []string{"vCofins", "vCOFINS", "cofins", "COFINS"}
	aliasesIr     = []string{"vRetIRRF", "vIRRF", "vIR", "ir", "IR"}
	aliasesCsll   = []string{"vRetCSLL", "vCSLL", "csll", "CSLL"}
	aliasesInss   = []string{"vRetINSS", "vINSS", "inss", "INSS"}
)

func findPis(root *xmlquery.Node) float64    { return findTax(root, aliasesPis...) }
func findCofins(root *xmlquery.Node) float64 { return findTax(root, aliasesCofins...) }
func findIr(root *xmlquery.Node) float64     { return findTax(root, aliasesIr...) }
func findCsll(root *xmlquery.Node) float64   { return findTax(root, aliasesCsll...) }
func findInss(root *xmlquery.Node) float64   { return findTax(root, aliasesInss...) }
