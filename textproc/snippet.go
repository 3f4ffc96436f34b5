package textproc

import (
	"strings"
	"unicode/utf8"
)

// Truncate returns the first n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// RuneLen is the length of s in runes.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

type span struct {
	start, end int // byte offsets
	hit        bool
}

// DensitySnippet returns the window of at most length runes whose words
// contain the most occurrences of terms. When no term occurs it returns
// the first length runes of content.
func DensitySnippet(content string, terms []string, length int) string {
	if content == "" || length <= 0 {
		return ""
	}
	if RuneLen(content) <= length {
		return strings.TrimSpace(content)
	}
	want := Set(terms)
	spans := wordSpans(content, want)

	bestHits, bestStart, bestEnd := 0, 0, 0
	hits := 0
	left := 0
	for right := range spans {
		if spans[right].hit {
			hits++
		}
		for left < right && RuneLen(content[spans[left].start:spans[right].end]) > length {
			if spans[left].hit {
				hits--
			}
			left++
		}
		if RuneLen(content[spans[left].start:spans[right].end]) > length {
			continue
		}
		if hits > bestHits {
			bestHits = hits
			bestStart, bestEnd = spans[left].start, spans[right].end
		}
	}
	if bestHits == 0 {
		return strings.TrimSpace(Truncate(content, length))
	}
	return strings.TrimSpace(content[bestStart:bestEnd])
}

func wordSpans(content string, want map[string]bool) []span {
	var spans []span
	start := -1
	for i, r := range content {
		isSpace := r == ' ' || r == '\n' || r == '\t' || r == '\r'
		switch {
		case !isSpace && start < 0:
			start = i
		case isSpace && start >= 0:
			spans = append(spans, span{start: start, end: i, hit: want[CleanWord(content[start:i])]})
			start = -1
		}
	}
	if start >= 0 {
		spans = append(spans, span{start: start, end: len(content), hit: want[CleanWord(content[start:])]})
	}
	return spans
}
