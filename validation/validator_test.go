package validation

import (
	"testing"

	"github.com/poiesic/noteseek/config"
	"github.com/poiesic/noteseek/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator(config.DefaultConfig().Validator)
	require.NoError(t, err)
	return v
}

func TestAnalyze(t *testing.T) {
	v := newValidator(t)

	t.Run("known creator", func(t *testing.T) {
		a := v.Analyze("what did Joe Rogan say about knots")
		assert.Equal(t, []string{"joe rogan"}, a.Entities)
		assert.Equal(t, []string{"joe rogan"}, a.KnownEntities)
		assert.Equal(t, core.IntentSpecificPerson, a.Intent)
		assert.Equal(t, core.PreferAny, a.ContentPreference)
		assert.True(t, a.Strict())
		assert.Contains(t, a.Terms, "knots")
	})

	t.Run("capitalized spans", func(t *testing.T) {
		a := v.Analyze("my notes about Ada Lovelace and Paris")
		assert.Equal(t, []string{"ada lovelace", "paris"}, a.NamedEntities)
		assert.Empty(t, a.KnownEntities)
		assert.Equal(t, core.IntentTopic, a.Intent)
		assert.Equal(t, core.PreferText, a.ContentPreference)
	})

	t.Run("significant terms when nothing is named", func(t *testing.T) {
		a := v.Analyze("climbing knots for beginners")
		assert.Equal(t, []string{"climbing", "knots", "beginners"}, a.Entities)
		assert.Empty(t, a.NamedEntities)
		assert.Equal(t, core.IntentTopic, a.Intent)
	})

	t.Run("pattern alias", func(t *testing.T) {
		a := v.Analyze("latest mkbhd video")
		assert.Equal(t, []string{"marques brownlee"}, a.KnownEntities)
		assert.Equal(t, core.PreferVideo, a.ContentPreference)
	})

	t.Run("general", func(t *testing.T) {
		a := v.Analyze("what is it")
		assert.Empty(t, a.Entities)
		assert.Equal(t, core.IntentGeneral, a.Intent)
		assert.False(t, a.Strict())
	})
}

func TestValidate_EntityGate(t *testing.T) {
	v := newValidator(t)
	analysis := v.Analyze("what did Joe Rogan say about knots")

	climbing := core.SearchResult{ID: "a", Title: "Intro to Rock Climbing Knots", Content: "...", SourceType: core.SourceTypeNote, Relevance: 0.9}
	podcast := core.SearchResult{ID: "b", Title: "Joe Rogan Podcast #500", Content: "...", SourceType: core.SourceTypeVideo, ChannelName: "PowerfulJRE", Relevance: 0.6}

	verdict := v.Validate(&podcast, &analysis, true)
	assert.True(t, verdict.IsValid)
	assert.Equal(t, 1.0, verdict.EntityOverlap)
	assert.Equal(t, "ok", verdict.Reason)

	verdict = v.Validate(&climbing, &analysis, true)
	assert.False(t, verdict.IsValid)
	assert.Zero(t, verdict.EntityOverlap)
	assert.Contains(t, verdict.Reason, "entity overlap")

	kept, rejected := v.Rerank([]core.SearchResult{climbing, podcast}, &analysis)
	require.Len(t, kept, 1)
	assert.Equal(t, "b", kept[0].ID)
	assert.Equal(t, 0.6, kept[0].Relevance)
	require.Len(t, rejected, 1)
	assert.Equal(t, "a", rejected[0].ID)
}

func TestValidate_ChannelOnlyMatch(t *testing.T) {
	v := newValidator(t)
	analysis := v.Analyze("Joe Rogan on elk hunting")
	clip := core.SearchResult{ID: "c", Title: "Episode 1200 with Steven Rinella", SourceType: core.SourceTypeVideo, ChannelName: "PowerfulJRE"}

	verdict := v.Validate(&clip, &analysis, true)
	assert.True(t, verdict.IsValid)
}

func TestValidate_CreatorMismatch(t *testing.T) {
	v := newValidator(t)
	analysis := v.Analyze("Joe Rogan knots")
	video := core.SearchResult{ID: "v", Title: "Five knots everyone should know", SourceType: core.SourceTypeVideo, ChannelName: "KnotMaster"}

	verdict := v.Validate(&video, &analysis, false)
	assert.False(t, verdict.IsValid)
	assert.InDelta(t, 0.0, verdict.Confidence, 1e-9)
	assert.Contains(t, verdict.Issues, `channel "KnotMaster" does not match creator "joe rogan"`)

	t.Run("only the channel check", func(t *testing.T) {
		analysis := core.QueryAnalysis{KnownEntities: []string{"joe rogan"}}
		verdict := v.Validate(&video, &analysis, false)
		assert.False(t, verdict.IsValid)
		assert.InDelta(t, 0.1, verdict.Confidence, 1e-9)
	})
}

func TestValidate_ContentTypeGate(t *testing.T) {
	v := newValidator(t)
	analysis := core.QueryAnalysis{ContentPreference: core.PreferVideo}
	note := core.SearchResult{ID: "n", Title: "Climbing", SourceType: core.SourceTypeNote, Relevance: 0.8}

	lenient := v.Validate(&note, &analysis, false)
	assert.False(t, lenient.IsValid)
	assert.InDelta(t, 0.5, lenient.Confidence, 1e-9)

	strict := v.Validate(&note, &analysis, true)
	assert.False(t, strict.IsValid)
	assert.Equal(t, "query prefers video content", strict.Reason)

	kept, rejected := v.Rerank([]core.SearchResult{note}, &analysis)
	require.Len(t, kept, 1)
	assert.Empty(t, rejected)
	assert.InDelta(t, 0.6, kept[0].Relevance, 1e-9)
}

func TestValidate_NoEntitiesIsNonRestrictive(t *testing.T) {
	v := newValidator(t)
	analysis := v.Analyze("what is it")
	r := core.SearchResult{ID: "x", Title: "Anything", SourceType: core.SourceTypeNote}

	verdict := v.Validate(&r, &analysis, true)
	assert.True(t, verdict.IsValid)
	assert.Equal(t, 1.0, verdict.Confidence)
	assert.Zero(t, verdict.EntityOverlap)
}

func TestValidateVideoContent(t *testing.T) {
	v := newValidator(t)

	tests := []struct {
		name       string
		query      string
		title      string
		valid      bool
		confidence float64
		issues     int
	}{
		{"plain video", "Joe Rogan knots", "Joe Rogan Experience #1", true, 1, 0},
		{"reaction and compilation", "Joe Rogan knots", "Streamer Reacts to Joe Rogan Compilation", false, 0.15, 2},
		{"requested reaction", "joe rogan reaction compilation", "Streamer Reacts to Joe Rogan Compilation", true, 1, 0},
		{"unrelated creator in title", "Lex Fridman on ai", "MrBeast Challenge", true, 0.5, 1},
		{"compilation only", "climbing", "Best of climbing 2023", true, 0.5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := v.Analyze(tt.query)
			candidate := core.SearchResult{ID: "v", Title: tt.title, SourceType: core.SourceTypeVideo}
			verdict := v.ValidateVideoContent(&candidate, &analysis)
			assert.Equal(t, tt.valid, verdict.IsValid)
			assert.InDelta(t, tt.confidence, verdict.Confidence, 1e-9)
			assert.Len(t, verdict.Issues, tt.issues)
		})
	}

	t.Run("notes are not video checked", func(t *testing.T) {
		analysis := v.Analyze("anything")
		note := core.SearchResult{ID: "n", Title: "Reaction compilation", SourceType: core.SourceTypeNote}
		assert.True(t, v.ValidateVideoContent(&note, &analysis).IsValid)
	})
}

func TestRerank_NonStrict(t *testing.T) {
	v := newValidator(t)
	analysis := v.Analyze("climbing knots")
	require.False(t, analysis.Strict())

	results := []core.SearchResult{
		{ID: "pasta", Title: "Pasta", SourceType: core.SourceTypeNote, Relevance: 0.95},
		{ID: "gear", Title: "Climbing gear", SourceType: core.SourceTypeNote, Relevance: 0.9},
		{ID: "guide", Title: "Climbing knots guide", SourceType: core.SourceTypeNote, Relevance: 0.8},
		{ID: "react", Title: "Guy reacts to climbing knots compilation", SourceType: core.SourceTypeVideo, Relevance: 0.9},
	}
	kept, rejected := v.Rerank(results, &analysis)

	require.Len(t, kept, 3)
	assert.Equal(t, "guide", kept[0].ID)
	assert.InDelta(t, 0.8, kept[0].Relevance, 1e-9)
	assert.Equal(t, "gear", kept[1].ID)
	assert.InDelta(t, 0.675, kept[1].Relevance, 1e-9)
	assert.Equal(t, "pasta", kept[2].ID, "no title overlap only down-weights")
	assert.InDelta(t, 0.475, kept[2].Relevance, 1e-9)

	require.Len(t, rejected, 1)
	assert.Equal(t, "react", rejected[0].ID)

	for _, r := range kept {
		assert.LessOrEqual(t, r.Relevance, 1.0)
	}
}

func TestRerank_ContentOnlyMatchSurvives(t *testing.T) {
	v := newValidator(t)

	for _, query := range []string{"climbing knots", "Climbing knots guide"} {
		t.Run(query, func(t *testing.T) {
			analysis := v.Analyze(query)
			require.NotEmpty(t, analysis.Entities)
			gym := core.SearchResult{
				ID: "gym", Title: "Gym log", Content: "Practiced climbing knots at the gym today.",
				SourceType: core.SourceTypeNote, Relevance: 0.7,
			}

			kept, rejected := v.Rerank([]core.SearchResult{gym}, &analysis)
			assert.Empty(t, rejected)
			require.Len(t, kept, 1)
			assert.Equal(t, "gym", kept[0].ID)
			assert.Positive(t, kept[0].Relevance)
		})
	}
}

func TestValidate_CreatorNamedOnlyInTitle(t *testing.T) {
	v := newValidator(t)
	analysis := v.Analyze("what did Joe Rogan say about knots")
	clip := core.SearchResult{ID: "clip", Title: "Joe Rogan on climbing knots", SourceType: core.SourceTypeVideo, ChannelName: "ClipFarmDaily", Relevance: 0.9}

	verdict := v.Validate(&clip, &analysis, true)
	assert.False(t, verdict.IsValid)
	assert.True(t, verdict.Vetoed)
	assert.InDelta(t, 0.1, verdict.Confidence, 1e-9)
	assert.Contains(t, verdict.Reason, "ClipFarmDaily")

	kept, rejected := v.Rerank([]core.SearchResult{clip}, &analysis)
	assert.Empty(t, kept)
	require.Len(t, rejected, 1)
	assert.Equal(t, "clip", rejected[0].ID)

	t.Run("vetoed in lenient mode too", func(t *testing.T) {
		analysis := core.QueryAnalysis{Query: "joe rogan", KnownEntities: []string{"joe rogan"}}
		require.False(t, analysis.Strict())
		kept, rejected := v.Rerank([]core.SearchResult{clip}, &analysis)
		assert.Empty(t, kept)
		assert.Len(t, rejected, 1)
	})
}

func TestValidate_PersonChannelMismatch(t *testing.T) {
	cfg := config.DefaultConfig().Validator
	cfg.KnownEntities = append(cfg.KnownEntities, config.KnownEntity{Name: "Ada Lovelace", Kind: KindPerson})
	v, err := NewValidator(cfg)
	require.NoError(t, err)

	analysis := v.Analyze("Ada Lovelace interview")
	require.Contains(t, analysis.KnownEntities, "ada lovelace")
	video := core.SearchResult{ID: "v", Title: "Ada Lovelace interview", SourceType: core.SourceTypeVideo, ChannelName: "HistoryClips"}

	verdict := v.Validate(&video, &analysis, true)
	assert.True(t, verdict.Vetoed)
	assert.InDelta(t, 0.1, verdict.Confidence, 1e-9)
}

func TestNewValidator_RejectsNamelessEntity(t *testing.T) {
	cfg := config.DefaultConfig().Validator
	cfg.KnownEntities = append(cfg.KnownEntities, config.KnownEntity{Name: "!!!"})
	_, err := NewValidator(cfg)
	assert.Error(t, err)
}
