package orchestrator

import (
	"errors"

	"github.com/poiesic/noteseek/search"
)

var (
	ErrSourceRequired   = errors.New("document source is required")
	ErrStrategyRequired = errors.New("at least one search strategy is required")

	// ErrAllStrategiesFailed is returned when every strategy of a request faulted.
	ErrAllStrategiesFailed = search.ErrAllStrategiesFailed

	// ErrCorpusUnavailable is returned when the document source cannot be read.
	ErrCorpusUnavailable = errors.New("corpus unavailable")

	// ErrCancelled is returned when a request was superseded or its context ended.
	ErrCancelled = errors.New("search cancelled")
)
