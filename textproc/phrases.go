package textproc

import "strings"

// Phrases returns the distinct 2- and 3-word sequences of tokens whose
// joined length is at least minLen characters.
func Phrases(tokens []string, minLen int) []string {
	seen := make(map[string]bool)
	var out []string
	for n := 2; n <= 3; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			phrase := strings.Join(tokens[i:i+n], " ")
			if len(phrase) < minLen || seen[phrase] {
				continue
			}
			seen[phrase] = true
			out = append(out, phrase)
		}
	}
	return out
}

// AdjacentPairs counts query word pairs that appear next to each other in
// the same order within text tokens.
func AdjacentPairs(queryTokens, textTokens []string) int {
	if len(queryTokens) < 2 || len(textTokens) < 2 {
		return 0
	}
	bigrams := make(map[[2]string]bool, len(textTokens))
	for i := 0; i+1 < len(textTokens); i++ {
		bigrams[[2]string{textTokens[i], textTokens[i+1]}] = true
	}
	count := 0
	seen := make(map[[2]string]bool)
	for i := 0; i+1 < len(queryTokens); i++ {
		pair := [2]string{queryTokens[i], queryTokens[i+1]}
		if bigrams[pair] && !seen[pair] {
			seen[pair] = true
			count++
		}
	}
	return count
}
