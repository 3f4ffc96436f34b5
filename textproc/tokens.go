package textproc

import (
	"strings"
	"unicode"
)

// stopWords are ignored when deciding whether a term is significant.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "were": true, "to": true, "of": true, "and": true, "in": true,
	"that": true, "have": true, "has": true, "had": true, "it": true, "for": true,
	"not": true, "on": true, "with": true, "as": true, "you": true, "do": true,
	"did": true, "does": true, "at": true, "this": true, "but": true, "by": true,
	"from": true, "or": true, "what": true, "which": true, "who": true, "whom": true,
	"when": true, "where": true, "why": true, "how": true, "about": true, "say": true,
	"said": true, "says": true, "tell": true, "me": true, "my": true, "i": true,
	"we": true, "our": true, "your": true, "they": true, "their": true, "there": true,
	"these": true, "those": true, "any": true, "some": true, "all": true, "can": true,
	"could": true, "would": true, "should": true, "will": true, "into": true,
	"find": true, "show": true, "know": true, "think": true, "thing": true,
	"things": true, "been": true, "being": true, "also": true, "just": true,
	"than": true, "then": true, "them": true, "him": true, "her": true, "his": true,
	"she": true, "he": true, "its": true, "if": true, "so": true, "up": true,
	"out": true, "get": true, "got": true, "like": true, "very": true, "much": true,
	"many": true, "more": true, "most": true, "other": true, "such": true, "only": true,
	"over": true, "after": true, "before": true, "again": true, "each": true,
}

const punctuation = ".,!?;:'\"-()[]{}<>/\\|*_`~@$%^&+=…“”‘’"

// IsStopWord reports whether w (lowercase) is a stop word.
func IsStopWord(w string) bool {
	return stopWords[w]
}

// Tokenize splits text on whitespace, lowercases, and trims surrounding
// punctuation. Empty tokens are dropped; stop words are kept.
func Tokenize(text string) []string {
	words := strings.Fields(text)
	out := make([]string, 0, len(words))
	for _, word := range words {
		if cleaned := CleanWord(word); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}

// CleanWord lowercases w and trims surrounding punctuation.
func CleanWord(w string) string {
	return strings.ToLower(strings.Trim(w, punctuation))
}

// FilterStopWords returns the tokens that are not stop words.
func FilterStopWords(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !stopWords[t] {
			out = append(out, t)
		}
	}
	return out
}

// WordsLongerThan returns the tokens whose rune length exceeds n,
// deduplicated and in first-seen order.
func WordsLongerThan(tokens []string, n int) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if len([]rune(t)) <= n || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// SignificantTerms returns deduplicated non-stop-word tokens of text that
// are longer than minLen runes.
func SignificantTerms(text string, minLen int) []string {
	return WordsLongerThan(FilterStopWords(Tokenize(text)), minLen)
}

// Set builds a membership set from tokens.
func Set(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// TopicRelevance returns the fraction of terms that appear as whole words
// in text. It returns 0 when terms is empty.
func TopicRelevance(terms []string, text string) float64 {
	if len(terms) == 0 {
		return 0
	}
	words := Set(Tokenize(text))
	hits := 0
	for _, t := range terms {
		if words[t] {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

// IsCapitalized reports whether the raw word starts with an upper-case letter.
func IsCapitalized(word string) bool {
	word = strings.TrimLeft(word, punctuation)
	for _, r := range word {
		return unicode.IsUpper(r)
	}
	return false
}

// ContainsAny reports whether s contains any of the substrings.
func ContainsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
