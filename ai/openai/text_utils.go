package openai

import "strings"

// trimResponse strips surrounding whitespace and markdown code fences
// that some local models wrap around plain answers.
func trimResponse(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```markdown")
		s = strings.TrimPrefix(s, "```text")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
