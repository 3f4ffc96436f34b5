package core

// QueryIntent classifies what a query is looking for.
type QueryIntent string

const (
	// IntentSpecificPerson means the query names a known person or creator.
	IntentSpecificPerson QueryIntent = "specific_person"
	// IntentTopic means the query has significant subject terms but names no one.
	IntentTopic QueryIntent = "topic"
	// IntentGeneral covers everything else.
	IntentGeneral QueryIntent = "general"
)

// ContentPreference is the kind of source a query asks for.
type ContentPreference string

const (
	PreferVideo ContentPreference = "video"
	PreferText  ContentPreference = "text"
	PreferAny   ContentPreference = "any"
)

// QueryAnalysis is the parsed form of a query used by validation.
type QueryAnalysis struct {
	Query string
	// Entities are the lowercased terms candidate overlap is measured against.
	Entities []string
	// NamedEntities are entities found via the known-entity dictionary or
	// capitalized spans.
	NamedEntities []string
	// KnownEntities are canonical dictionary names mentioned by the query.
	KnownEntities []string
	// Terms are significant (long, non-stopword) query terms.
	Terms             []string
	Intent            QueryIntent
	ContentPreference ContentPreference
}

// Strict reports whether validation should run in strict mode.
func (q *QueryAnalysis) Strict() bool {
	return q.Intent == IntentSpecificPerson
}
