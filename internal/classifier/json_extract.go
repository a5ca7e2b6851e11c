package classifier

import (
	"regexp"
	"strings"
)

var (
	reFenceStart = regexp.MustCompile("(?is)^\\s*```(?:json)?\\s*")
	reFenceEnd   = regexp.MustCompile("(?is)\\s*```\\s*$")
)

// cleanLLMJSONResponse quita fences ```json ... ``` y BOM, dejando el contenido usable.
func cleanLLMJSONResponse(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = strings.TrimPrefix(s, "\uFEFF")
	s = reFenceStart.ReplaceAllString(s, "")
	s = reFenceEnd.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// extractFirstJSONValue devuelve el primer objeto o arreglo JSON balanceado del texto.
func extractFirstJSONValue(input string) string {
	start := strings.IndexAny(input, "[{")
	if start == -1 {
		return ""
	}

	inString := false
	escape := false
	depth := 0

	for i := start; i < len(input); i++ {
		ch := input[i]

		if inString {
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
			if depth < 0 {
				return ""
			}
		}
	}

	return ""
}
