package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/noteseek/core"
)

// Strategy ranks documents of a corpus snapshot against a query.
type Strategy interface {
	// Method names the strategy.
	Method() core.SearchMethod

	// Search returns results ordered by relevance descending, ties by ID.
	Search(ctx context.Context, corpus []core.Document, query string) ([]core.SearchResult, error)

	// Run is Search with branch faults reported instead of swallowed.
	Run(ctx context.Context, corpus []core.Document, query string) *Report
}

// Report is the outcome of one strategy run.
type Report struct {
	Method  core.SearchMethod
	Results []core.SearchResult
	// SemanticFault is set when the semantic branch ran and failed.
	SemanticFault error
	// KeywordFault is set when the keyword branch ran and failed.
	KeywordFault error
}

// Degraded reports whether a hybrid run lost its semantic branch.
func (r *Report) Degraded() bool {
	return r.Method == core.SearchMethodHybrid && r.SemanticFault != nil && r.KeywordFault == nil
}

// Failed reports whether every branch that ran faulted.
func (r *Report) Failed() bool {
	switch r.Method {
	case core.SearchMethodKeyword:
		return r.KeywordFault != nil
	case core.SearchMethodSemantic:
		return r.SemanticFault != nil
	default:
		return r.SemanticFault != nil && r.KeywordFault != nil
	}
}

// Err returns the combined fault of a failed run, or nil.
func (r *Report) Err() error {
	if !r.Failed() {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrAllStrategiesFailed, errors.Join(r.SemanticFault, r.KeywordFault))
}

type settings struct {
	logger  *slog.Logger
	monitor SearchMonitor
}

// Option configures a strategy.
type Option func(*settings) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMonitor attaches a monitor that observes every run.
func WithMonitor(monitor SearchMonitor) Option {
	return func(s *settings) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		s.monitor = monitor
		return nil
	}
}

func newSettings(component string, opts []Option) (settings, error) {
	s := settings{logger: slog.Default(), monitor: &noopMonitor{}}
	for _, opt := range opts {
		if err := opt(&s); err != nil {
			return s, err
		}
	}
	s.logger = s.logger.With("component", component)
	return s, nil
}
