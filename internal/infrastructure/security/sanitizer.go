package security

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

const redactedValue = "[REDACTED]"

// Headers whose values never reach logs or the audit store.
var sensitiveHeaders = map[string]struct{}{
	"authorization":       {},
	"proxy-authorization": {},
	"cookie":              {},
	"set-cookie":          {},
	"x-api-key":           {},
	"x-auth-token":        {},
}

// Substrings that mark a JSON field or query parameter as sensitive.
var sensitiveFields = []string{
	"password", "senha", "secret", "token", "api_key", "apikey",
	"access_token", "refresh_token", "client_secret", "private_key",
	"credential", "authorization",
}

// SOAP envelopes carry credentials inline; these elements are masked
// before the XML is stored.
var sensitiveXMLTags = regexp.MustCompile(`(?i)<(Password|Senha|wsse:Password)>.*?</(Password|Senha|wsse:Password)>`)

// SanitizeHeaders flattens an HTTP header map, redacting credential headers.
func SanitizeHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for key, values := range headers {
		if _, sensitive := sensitiveHeaders[strings.ToLower(key)]; sensitive {
			out[key] = redactedValue
			continue
		}
		out[key] = strings.Join(values, ", ")
	}
	return out
}

// SanitizeURL redacts the values of sensitive query parameters. Unparseable
// URLs are returned as-is; they carry no query to leak.
func SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}

	q := u.Query()
	changed := false
	for name := range q {
		if isSensitiveName(name) {
			q.Set(name, redactedValue)
			changed = true
		}
	}
	if !changed {
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// SanitizeBody prepares a request or response body for the audit store:
// gzip is transparently decompressed, binary data is base64-wrapped, JSON
// has credential fields masked recursively, and XML/plain text has
// credential elements masked. The result is always valid JSON.
func SanitizeBody(body []byte, maxSize int) json.RawMessage {
	if len(body) == 0 {
		return nil
	}

	if isGzip(body) {
		plain, err := gunzip(body)
		if err != nil {
			return wrapBinary(body, "gzip (decompression failed)")
		}
		body = plain
	}

	if !utf8.Valid(body) {
		return wrapBinary(body, "binary")
	}

	if maxSize > 0 && len(body) > maxSize {
		out, _ := json.Marshal(map[string]interface{}{
			"_truncated": true,
			"_size":      len(body),
			"_preview":   string(sensitiveXMLTags.ReplaceAll(body[:maxSize], []byte("<Password>"+redactedValue+"</Password>"))),
		})
		return out
	}

	var parsed interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return wrapText(body)
	}

	out, err := json.Marshal(maskValue(parsed))
	if err != nil {
		return wrapText(body)
	}
	return out
}

func isSensitiveName(name string) bool {
	lower := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lower, field) {
			return true
		}
	}
	return false
}

func isGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

func gunzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// wrapText stores non-JSON text (SOAP envelopes, HTML error pages) with
// credential elements masked.
func wrapText(body []byte) json.RawMessage {
	masked := sensitiveXMLTags.ReplaceAll(body, []byte("<Password>"+redactedValue+"</Password>"))
	out, _ := json.Marshal(map[string]interface{}{
		"_raw":    string(masked),
		"_format": "text",
	})
	return out
}

func wrapBinary(data []byte, format string) json.RawMessage {
	out, _ := json.Marshal(map[string]interface{}{
		"_binary": true,
		"_format": format,
		"_size":   len(data),
		"_base64": base64.StdEncoding.EncodeToString(data),
	})
	return out
}

func maskValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for key, inner := range val {
			if isSensitiveName(key) {
				out[key] = redactedValue
				continue
			}
			out[key] = maskValue(inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, inner := range val {
			out[i] = maskValue(inner)
		}
		return out
	default:
		return val
	}
}
