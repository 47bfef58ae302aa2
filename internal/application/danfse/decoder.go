package danfse

import (
	"encoding/base64"
	"fmt"
	"strings"

	"simpleit/simpledfe_core/internal/core/danfse"
)

// sanitize turns a raw stored blob into clean parseable XML text. Capture
// processes hand us either plain XML or a base64 blob, sometimes with a BOM
// or stray control characters from the municipal portals.
func sanitize(raw string) (string, error) {
	clean := strings.TrimPrefix(strings.TrimSpace(raw), "\uFEFF")
	if clean == "" {
		return "", fmt.Errorf("%w: conteúdo vazio", danfse.ErrXMLMalformado)
	}

	if !strings.HasPrefix(clean, "<") {
		decoded, err := decodeBase64(clean)
		if err != nil {
			return "", fmt.Errorf("%w: %v", danfse.ErrXMLMalformado, err)
		}
		clean = decoded
	}

	clean = strings.TrimPrefix(clean, "\uFEFF")
	return stripControlChars(clean), nil
}

func decodeBase64(s string) (string, error) {
	// Stored blobs may carry line breaks from the capture side.
	compact := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)

	decoded, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(compact)
	}
	if err != nil {
		return "", fmt.Errorf("decodificar base64: %w", err)
	}
	return string(decoded), nil
}

// stripControlChars removes ASCII control characters outside the whitespace
// range (0x00-0x08, 0x0B, 0x0C, 0x0E-0x1F, 0x7F), which break XML parsers.
func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 0x00 && r <= 0x08:
			return -1
		case r == 0x0B || r == 0x0C:
			return -1
		case r >= 0x0E && r <= 0x1F:
			return -1
		case r == 0x7F:
			return -1
		}
		return r
	}, s)
}
