package validation

import (
	"strings"

	"github.com/poiesic/noteseek/config"
	"github.com/poiesic/noteseek/core"
	"github.com/poiesic/noteseek/textproc"
)

// Entity kinds in the known-entity dictionary.
const (
	KindCreator = "creator"
	KindPerson  = "person"
	KindTopic   = "topic"
)

var (
	videoWords = []string{"watch", "watched", "video", "videos", "stream", "streamed", "episode", "youtube", "clip", "vod"}
	textWords  = []string{"note", "notes", "wrote", "written", "article", "document", "journal"}
)

// significantTermLength is the length a term must exceed to count as significant.
const significantTermLength = 4

type knownEntity struct {
	name     string
	kind     string
	patterns []string
}

func compileEntities(entities []config.KnownEntity) []knownEntity {
	out := make([]knownEntity, 0, len(entities))
	for _, e := range entities {
		ke := knownEntity{name: normalize(e.Name), kind: e.Kind}
		ke.patterns = append(ke.patterns, ke.name)
		for _, p := range e.Patterns {
			if p = normalize(p); p != "" && p != ke.name {
				ke.patterns = append(ke.patterns, p)
			}
		}
		out = append(out, ke)
	}
	return out
}

// normalize lowercases text and reduces it to space separated words.
func normalize(s string) string {
	return strings.Join(textproc.Tokenize(s), " ")
}

// containsWords reports whether phrase occurs in text on word boundaries.
// Both must be normalized.
func containsWords(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}

// compact lowercases s and drops everything but letters and digits, so
// "PowerfulJRE" and "Powerful JRE" compare equal.
func compact(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') || r > 127 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// matchesText reports whether any of the entity's patterns occur in the
// normalized text.
func (e *knownEntity) matchesText(text string) bool {
	for _, p := range e.patterns {
		if containsWords(text, p) {
			return true
		}
	}
	return false
}

// matchesChannel reports whether any pattern occurs in a channel name.
// Channel names are often run together, so patterns match as substrings.
func (e *knownEntity) matchesChannel(channel string) bool {
	c := compact(channel)
	if c == "" {
		return false
	}
	for _, p := range e.patterns {
		if cp := compact(p); cp != "" && strings.Contains(c, cp) {
			return true
		}
	}
	return false
}

func (e *knownEntity) isPerson() bool {
	return e.kind == KindCreator || e.kind == KindPerson
}

// Analyze extracts entities, intent and content preference from query.
func (v *Validator) Analyze(query string) core.QueryAnalysis {
	text := normalize(query)
	analysis := core.QueryAnalysis{
		Query:             query,
		Terms:             textproc.SignificantTerms(query, significantTermLength),
		Intent:            core.IntentGeneral,
		ContentPreference: contentPreference(text),
	}
	if text == "" {
		return analysis
	}

	seen := make(map[string]bool)
	namesPerson := false
	for i := range v.entities {
		e := &v.entities[i]
		if e.matchesText(text) && !seen[e.name] {
			seen[e.name] = true
			analysis.KnownEntities = append(analysis.KnownEntities, e.name)
			analysis.NamedEntities = append(analysis.NamedEntities, e.name)
			namesPerson = namesPerson || e.isPerson()
		}
	}

	for _, span := range capitalizedSpans(query) {
		if seen[span] || v.coveredByKnown(span, analysis.KnownEntities) {
			continue
		}
		seen[span] = true
		analysis.NamedEntities = append(analysis.NamedEntities, span)
	}

	if len(analysis.NamedEntities) > 0 {
		analysis.Entities = analysis.NamedEntities
	} else {
		analysis.Entities = analysis.Terms
	}

	switch {
	case namesPerson:
		analysis.Intent = core.IntentSpecificPerson
	case len(analysis.Entities) > 0:
		analysis.Intent = core.IntentTopic
	}
	return analysis
}

// coveredByKnown reports whether span is a pattern of an entity already
// found by dictionary lookup.
func (v *Validator) coveredByKnown(span string, known []string) bool {
	for _, name := range known {
		e := v.entity(name)
		if e == nil {
			continue
		}
		for _, p := range e.patterns {
			if containsWords(p, span) {
				return true
			}
		}
	}
	return false
}

func (v *Validator) entity(name string) *knownEntity {
	for i := range v.entities {
		if v.entities[i].name == name {
			return &v.entities[i]
		}
	}
	return nil
}

// capitalizedSpans returns runs of capitalized, non-stopword words in
// query, lowercased.
func capitalizedSpans(query string) []string {
	var spans []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			spans = append(spans, strings.Join(current, " "))
			current = current[:0]
		}
	}
	for _, word := range strings.Fields(query) {
		clean := textproc.CleanWord(word)
		if clean == "" || !textproc.IsCapitalized(word) || textproc.IsStopWord(clean) {
			flush()
			continue
		}
		current = append(current, clean)
		// Trailing punctuation ends a span.
		if strings.ContainsAny(word[len(word)-1:], ".,;:!?") {
			flush()
		}
	}
	flush()
	return spans
}

func contentPreference(text string) core.ContentPreference {
	video, written := false, false
	for _, w := range videoWords {
		video = video || containsWords(text, w)
	}
	for _, w := range textWords {
		written = written || containsWords(text, w)
	}
	switch {
	case video && !written:
		return core.PreferVideo
	case written && !video:
		return core.PreferText
	default:
		return core.PreferAny
	}
}
