package reindex

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestTracker(buf *bytes.Buffer, total, interval int) (*ProgressTracker, *time.Time) {
	clock := time.Unix(1700000000, 0)
	tracker := NewProgressTracker(buf, total, interval)
	tracker.now = func() time.Time { return clock }
	return tracker, &clock
}

func TestProgressTracker_Basic(t *testing.T) {
	var buf bytes.Buffer
	tracker, clock := newTestTracker(&buf, 100, 10)

	tracker.Start(0)
	*clock = clock.Add(2 * time.Second)
	tracker.Increment(25)
	tracker.Increment(25)
	tracker.Increment(50)

	assert.Equal(t, 2*time.Second, tracker.Elapsed())
	assert.Equal(t, 100, tracker.Current())

	output := buf.String()
	assert.Contains(t, output, "100/100")
	assert.Contains(t, output, "100.0%")
	assert.Contains(t, output, "50.0 docs/s")
}

func TestProgressTracker_ReportInterval(t *testing.T) {
	var buf bytes.Buffer
	tracker, _ := newTestTracker(&buf, 1000, 100)

	tracker.Start(0)
	tracker.Update(50)
	assert.Empty(t, buf.String(), "below interval")

	tracker.Update(150)
	assert.Contains(t, buf.String(), "150/1000")
}

func TestProgressTracker_CapsAtTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker, _ := newTestTracker(&buf, 10, 1)

	tracker.Start(0)
	tracker.Update(25)
	assert.Equal(t, 10, tracker.Current())
	assert.NotContains(t, buf.String(), "25/10")
}

func TestProgressTracker_ResumeOffset(t *testing.T) {
	var buf bytes.Buffer
	tracker, _ := newTestTracker(&buf, 100, 10)

	tracker.Start(40)
	assert.Equal(t, 40, tracker.Current())
	tracker.Increment(5)
	assert.Empty(t, buf.String())
	tracker.Increment(5)
	assert.Contains(t, buf.String(), "50/100")
}

func TestProgressTracker_Finish(t *testing.T) {
	var buf bytes.Buffer
	tracker, _ := newTestTracker(&buf, 100, 10)

	tracker.Start(0)
	tracker.Update(100)
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "100/100")
	assert.Contains(t, output, "\n")
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 100, 10)

	tracker.Update(50)
	tracker.Increment(10)
	tracker.Finish()

	assert.Empty(t, buf.String())
	assert.Zero(t, tracker.Elapsed())
}

func TestProgressTracker_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker, _ := newTestTracker(&buf, 0, 10)

	tracker.Start(0)
	tracker.Finish()
	assert.Contains(t, buf.String(), "0/0 (100.0%)")
}
