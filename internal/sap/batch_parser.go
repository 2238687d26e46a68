package sap

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// BatchResult is the reconciled outcome of one batch execution.
type BatchResult struct {
	Invoice  *DocumentRef
	Payments []DocumentRef
	Errors   []string
}

// OK reports whether no operation was rejected.
func (r BatchResult) OK() bool {
	return len(r.Errors) == 0
}

// responseMarker precedes each embedded per-operation response.
const responseMarker = "HTTP/1.1 "

// ParseBatchResponse splits the raw multipart batch response into
// per-operation records. This is a best-effort structural parse, not a
// full MIME parser: the response is treated as text fragments, each
// starting with a 3-digit status and carrying at most one JSON object.
// The first document-bearing fragment is the invoice; operation order
// is preserved by the server for synchronous changesets, and the
// invoice operation is always submitted first.
func ParseBatchResponse(raw string) BatchResult {
	var result BatchResult

	fragments := strings.Split(raw, responseMarker)
	if len(fragments) < 2 {
		result.Errors = append(result.Errors, "no operation responses found in batch reply")
		return result
	}

	// fragments[0] is the multipart preamble
	for _, fragment := range fragments[1:] {
		fragment = strings.TrimSpace(fragment)
		if len(fragment) < 3 {
			continue
		}
		status, err := strconv.Atoi(fragment[:3])
		if err != nil {
			continue
		}

		payload := firstJSONObject(fragment)

		if status >= 400 {
			// Collect every rejection; do not stop at the first one.
			message := fmt.Sprintf("batch operation failed with status %d", status)
			if payload != "" {
				message = serviceMessage([]byte(payload), message)
			}
			result.Errors = append(result.Errors, message)
			continue
		}

		if payload == "" {
			continue
		}
		var doc DocumentRef
		if err := json.Unmarshal([]byte(payload), &doc); err != nil || doc.DocEntry == 0 {
			continue
		}
		if result.Invoice == nil {
			result.Invoice = &doc
		} else {
			result.Payments = append(result.Payments, doc)
		}
	}

	return result
}

// firstJSONObject extracts the first balanced top-level JSON object
// from the fragment, tolerating braces inside string literals.
func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
