package workflow

import "strings"

// extractJSONPayload pulls the JSON body out of an AI response: a fenced
// ```json block when present, a bare fenced block otherwise, else the
// outermost brace- or bracket-delimited region. Returns "" when nothing
// JSON-shaped is found.
func extractJSONPayload(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if body, found := fencedBlock(raw, "```json"); found {
		return body
	}
	if body, found := fencedBlock(raw, "```"); found {
		if strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[") {
			return body
		}
	}

	if start := strings.IndexAny(raw, "{["); start >= 0 {
		closer := "}"
		if raw[start] == '[' {
			closer = "]"
		}
		if end := strings.LastIndex(raw, closer); end > start {
			return strings.TrimSpace(raw[start : end+1])
		}
	}
	return ""
}

func fencedBlock(raw, fence string) (string, bool) {
	start := strings.Index(raw, fence)
	if start == -1 {
		return "", false
	}
	rest := raw[start+len(fence):]
	end := strings.Index(rest, "```")
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}
