package reindex

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker tracks and reports progress of a reindex run.
type ProgressTracker struct {
	writer         io.Writer
	total          int
	current        int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	now            func() time.Time
	mu             sync.Mutex
}

// NewProgressTracker creates a tracker that writes to writer every
// reportInterval documents.
func NewProgressTracker(writer io.Writer, total, reportInterval int) *ProgressTracker {
	if writer == nil {
		writer = io.Discard
	}
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &ProgressTracker{
		writer:         writer,
		total:          total,
		reportInterval: reportInterval,
		now:            time.Now,
	}
}

// Start begins tracking at the given offset. A resumed run starts at the
// number of documents already processed.
func (p *ProgressTracker) Start(offset int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = p.now()
	p.started = true
	p.current = min(offset, p.total)
	p.lastReported = p.current
}

// Update sets the number of processed documents.
func (p *ProgressTracker) Update(current int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.current = min(current, p.total)
	p.maybeReport()
}

// Increment adds delta processed documents.
func (p *ProgressTracker) Increment(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.current = min(p.current+delta, p.total)
	p.maybeReport()
}

// Finish reports the final state and terminates the progress line.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.report()
	fmt.Fprintln(p.writer)
}

// Current returns the number of processed documents.
func (p *ProgressTracker) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Elapsed returns the time since Start.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return p.now().Sub(p.startTime)
}

func (p *ProgressTracker) maybeReport() {
	if p.current-p.lastReported >= p.reportInterval || p.current == p.total {
		p.report()
		p.lastReported = p.current
	}
}

func (p *ProgressTracker) report() {
	rate := 0.0
	if secs := p.now().Sub(p.startTime).Seconds(); secs > 0 {
		rate = float64(p.current) / secs
	}

	percentage := 100.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rProgress: %d/%d (%.1f%%) - %.1f docs/s",
		p.current, p.total, percentage, rate)
}
