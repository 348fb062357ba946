package ai

import "strings"

// StripJSONWrapper removes markdown code fences and any leading/trailing
// prose the model wrapped around a JSON document, returning the substring
// from the first opening brace or bracket to its matching close. The
// collaborator is untrusted: it sometimes fences its output or prefixes
// it with commentary despite being told not to.
func StripJSONWrapper(s string) string {
	s = strings.TrimSpace(s)

	// Drop ```json ... ``` fences first; the fence may itself be
	// surrounded by prose.
	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := s[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			s = rest[:end]
		} else {
			s = rest
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}

	open := s[start]
	var close byte = '}'
	if open == '[' {
		close = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}

	return s[start:]
}
