// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package validation

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/noteseek/config"
	"github.com/poiesic/noteseek/core"
)

var (
	reactionWords    = []string{"react", "reacts", "reacting", "reaction", "reactions", "responds to"}
	compilationWords = []string{"compilation", "best of", "highlights", "top 10", "top 5", "funniest moments", "best moments"}
)

// Verdict is the outcome of validating one candidate. Vetoed marks a hard
// rejection that applies whatever the mode, such as a channel that does not
// belong to the creator the query names.
type Verdict struct {
	IsValid       bool
	Vetoed        bool
	Confidence    float64
	Reason        string
	Issues        []string
	EntityOverlap float64
}

// VideoVerdict is the outcome of ValidateVideoContent.
type VideoVerdict struct {
	IsValid    bool
	Confidence float64
	Issues     []string
}

// Rejection records a result removed by Rerank.
type Rejection struct {
	ID         string
	Reason     string
	Confidence float64
}

// Validator checks candidates against a query analysis.
type Validator struct {
	cfg      config.ValidatorConfig
	entities []knownEntity
	logger   *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) error {
		if logger == nil {
			logger = slog.Default()
		}
		v.logger = logger
		return nil
	}
}

// NewValidator creates a validator from cfg.
func NewValidator(cfg config.ValidatorConfig, opts ...Option) (*Validator, error) {
	for _, e := range cfg.KnownEntities {
		if normalize(e.Name) == "" {
			return nil, fmt.Errorf("known entity %q has no usable name", e.Name)
		}
	}
	v := &Validator{
		cfg:      cfg,
		entities: compileEntities(cfg.KnownEntities),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}
	v.logger = v.logger.With("component", "validator")
	return v, nil
}

// candidateText is the normalized form of a candidate's identifying fields.
type candidateText struct {
	title   string
	channel string
	isVideo bool
}

func newCandidateText(c *core.SearchResult) candidateText {
	return candidateText{
		title:   normalize(c.Title),
		channel: c.ChannelName,
		isVideo: c.SourceType == core.SourceTypeVideo,
	}
}

// mentions reports whether a query entity appears in the candidate's title
// or channel.
func (v *Validator) mentions(ct candidateText, entity string) bool {
	if e := v.entity(entity); e != nil {
		return e.matchesText(ct.title) || e.matchesChannel(ct.channel)
	}
	if containsWords(ct.title, entity) || containsWords(normalize(ct.channel), entity) {
		return true
	}
	c := compact(entity)
	return c != "" && strings.Contains(compact(ct.channel), c)
}

// Validate checks candidate against analysis. In strict mode low entity
// overlap and content type mismatches reject the candidate outright.
func (v *Validator) Validate(candidate *core.SearchResult, analysis *core.QueryAnalysis, strict bool) Verdict {
	ct := newCandidateText(candidate)
	verdict := Verdict{Confidence: 1}
	rejected := false
	reject := func(issue string) {
		rejected = true
		verdict.Issues = append(verdict.Issues, issue)
	}

	if n := len(analysis.Entities); n > 0 {
		matched := 0
		for _, e := range analysis.Entities {
			if v.mentions(ct, e) {
				matched++
			}
		}
		verdict.EntityOverlap = float64(matched) / float64(n)
		verdict.Confidence = min(verdict.Confidence, verdict.EntityOverlap)
		if verdict.EntityOverlap < v.cfg.MinEntityOverlap {
			issue := fmt.Sprintf("entity overlap %.2f below %.2f", verdict.EntityOverlap, v.cfg.MinEntityOverlap)
			if strict {
				reject(issue)
			} else {
				verdict.Issues = append(verdict.Issues, issue)
			}
		}
	}

	if ct.isVideo && ct.channel != "" {
		if creator, ok := v.missingCreator(ct, analysis); ok {
			verdict.Confidence = min(verdict.Confidence, v.cfg.CreatorMismatchConfidence)
			verdict.Vetoed = true
			reject(fmt.Sprintf("channel %q does not match creator %q", ct.channel, creator))
		}
	}

	mismatch := (analysis.ContentPreference == core.PreferVideo && !ct.isVideo) ||
		(analysis.ContentPreference == core.PreferText && ct.isVideo)
	if mismatch {
		verdict.Confidence = min(verdict.Confidence, v.cfg.ContentTypeMismatchConfidence)
		issue := fmt.Sprintf("query prefers %s content", analysis.ContentPreference)
		if strict {
			reject(issue)
		} else {
			verdict.Issues = append(verdict.Issues, issue)
		}
	}

	verdict.Confidence = core.Clamp01(verdict.Confidence)
	verdict.IsValid = !rejected && verdict.Confidence >= v.cfg.StrictMatchThreshold
	switch {
	case len(verdict.Issues) > 0:
		verdict.Reason = verdict.Issues[0]
	case !verdict.IsValid:
		verdict.Reason = fmt.Sprintf("confidence %.2f below %.2f", verdict.Confidence, v.cfg.StrictMatchThreshold)
	default:
		verdict.Reason = "ok"
	}
	return verdict
}

// missingCreator returns a creator or person named by the query that the
// channel does not match. Title mentions do not count.
func (v *Validator) missingCreator(ct candidateText, analysis *core.QueryAnalysis) (string, bool) {
	var creators []*knownEntity
	for _, name := range analysis.KnownEntities {
		if e := v.entity(name); e != nil && e.isPerson() {
			creators = append(creators, e)
		}
	}
	if len(creators) == 0 {
		return "", false
	}
	for _, e := range creators {
		if e.matchesChannel(ct.channel) {
			return "", false
		}
	}
	return creators[0].name, true
}

// ValidateVideoContent penalizes reaction and compilation videos, and
// videos whose title names a different creator than the query, unless the
// query asks for them.
func (v *Validator) ValidateVideoContent(candidate *core.SearchResult, analysis *core.QueryAnalysis) VideoVerdict {
	verdict := VideoVerdict{IsValid: true, Confidence: 1}
	if candidate.SourceType != core.SourceTypeVideo {
		return verdict
	}
	title := normalize(candidate.Title)
	query := normalize(analysis.Query)

	if hasAnyWords(title, reactionWords) && !hasAnyWords(query, reactionWords) {
		verdict.Confidence *= v.cfg.ReactionPenalty
		verdict.Issues = append(verdict.Issues, "reaction video not requested")
	}
	if hasAnyWords(title, compilationWords) && !hasAnyWords(query, compilationWords) {
		verdict.Confidence *= v.cfg.CompilationPenalty
		verdict.Issues = append(verdict.Issues, "compilation video not requested")
	}

	if len(analysis.KnownEntities) > 0 {
		for i := range v.entities {
			e := &v.entities[i]
			if e.kind != KindCreator || !e.matchesText(title) || slices.Contains(analysis.KnownEntities, e.name) {
				continue
			}
			verdict.Confidence *= v.cfg.CreatorTitlePenalty
			verdict.Issues = append(verdict.Issues, fmt.Sprintf("title names unrelated creator %q", e.name))
			break
		}
	}

	verdict.IsValid = !(verdict.Confidence <= 0.5 && len(verdict.Issues) >= 2)
	return verdict
}

// Rerank validates results against analysis and returns the survivors
// ordered by adjusted relevance, along with the rejected results.
func (v *Validator) Rerank(results []core.SearchResult, analysis *core.QueryAnalysis) ([]core.SearchResult, []Rejection) {
	strict := analysis.Strict()
	kept := make([]core.SearchResult, 0, len(results))
	var rejected []Rejection

	for _, r := range results {
		verdict := v.Validate(&r, analysis, strict)
		if strict && !verdict.IsValid {
			rejected = append(rejected, Rejection{ID: r.ID, Reason: verdict.Reason, Confidence: verdict.Confidence})
			continue
		}
		if !strict {
			// Entity overlap never rejects outside strict mode.
			if verdict.Vetoed {
				rejected = append(rejected, Rejection{ID: r.ID, Reason: verdict.Reason, Confidence: verdict.Confidence})
				continue
			}
			r.Relevance *= 1 - v.cfg.DownWeight*(1-verdict.Confidence)
		}

		if r.SourceType == core.SourceTypeVideo {
			video := v.ValidateVideoContent(&r, analysis)
			if !video.IsValid {
				rejected = append(rejected, Rejection{ID: r.ID, Reason: strings.Join(video.Issues, "; "), Confidence: video.Confidence})
				continue
			}
			r.Relevance *= video.Confidence
		}

		r.Relevance = core.Clamp01(r.Relevance)
		kept = append(kept, r)
	}

	core.SortByRelevance(kept)
	if len(rejected) > 0 {
		v.logger.Debug("validation rejected results", "query", analysis.Query, "strict", strict, "rejected", len(rejected), "kept", len(kept))
	}
	return kept, rejected
}

func hasAnyWords(text string, words []string) bool {
	for _, w := range words {
		if containsWords(text, w) {
			return true
		}
	}
	return false
}
