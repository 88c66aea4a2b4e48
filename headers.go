package lightup

import (
	"net/http"
	"strings"
)

// ParseHeaders parses a raw header block ("Key: value" lines separated by
// CRLF or LF) into a map with lower-cased keys. Lines are split at the first
// colon only, so values may contain colons. Repeated keys are joined with ", ".
func ParseHeaders(raw string) map[string]string {
	parsed := make(map[string]string)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return parsed
	}

	lines := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\r' || r == '\n'
	})
	for _, line := range lines {
		idx := strings.IndexByte(line, ':')
		if idx <= 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:idx]))
		if key == "" {
			continue
		}
		value := strings.TrimSpace(line[idx+1:])
		if prev, ok := parsed[key]; ok {
			value = prev + ", " + value
		}
		parsed[key] = value
	}
	return parsed
}

// flattenHeader converts an http.Header into the lower-cased map used by Response.
func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		out[strings.ToLower(k)] = strings.Join(vs, ", ")
	}
	return out
}

// responseHeaders prefers the raw header block when the transport provides one.
func responseHeaders(tr *TransportResponse) map[string]string {
	if tr.RawHeader != "" {
		return ParseHeaders(tr.RawHeader)
	}
	return flattenHeader(tr.Header)
}
