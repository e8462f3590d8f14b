package progress

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Options configures a progress tracker.
type Options struct {
	// Label describes the activity (for display).
	Label string

	// Unit names a single counted thing, e.g. "paper" or "month".
	Unit string

	// Total is the number of units expected.
	Total int

	// Output is where to write progress output.
	// A nil Output disables display; counting still works.
	Output io.Writer

	// UpdateInterval is how often to update the progress display.
	// Default: 500ms
	UpdateInterval time.Duration
}

// Tracker is a concurrency-safe counter over a known total.
// Workers call Advance; a separate goroutine started by Start reads the
// counters and renders them, so counting never waits on display.
type Tracker struct {
	opts Options

	completed atomic.Int64
	failed    atomic.Int64
	bytes     atomic.Int64

	mu        sync.Mutex
	startTime time.Time
	started   bool
	stopped   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewTracker creates a new progress tracker.
func NewTracker(opts Options) *Tracker {
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 500 * time.Millisecond
	}
	if opts.Unit == "" {
		opts.Unit = "item"
	}

	return &Tracker{
		opts:      opts,
		startTime: time.Now(),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins outputting progress information.
// It is a no-op when the tracker has no Output.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started || t.stopped || t.opts.Output == nil {
		return
	}
	t.started = true
	t.startTime = time.Now()

	fmt.Fprintf(t.opts.Output, "[harvest] %s: %d %ss\n", t.opts.Label, t.opts.Total, t.opts.Unit)

	go t.updateLoop()
}

// Close stops the display and prints the final status. Safe to call more
// than once.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	started := t.started
	t.mu.Unlock()

	close(t.stopCh)
	if started {
		<-t.doneCh
	}
}

// Advance records one finished unit.
func (t *Tracker) Advance() {
	t.Add(1)
}

// Add records n finished units.
func (t *Tracker) Add(n int) {
	t.completed.Add(int64(n))
}

// Fail records a failed unit. The unit must still be reported through
// Advance; Fail only feeds the failure count shown next to it.
func (t *Tracker) Fail() {
	t.failed.Add(1)
}

// AddBytes records transferred bytes.
func (t *Tracker) AddBytes(n int64) {
	t.bytes.Add(n)
}

// Completed returns the number of finished units.
func (t *Tracker) Completed() int {
	return int(t.completed.Load())
}

// Failed returns the number of failed units.
func (t *Tracker) Failed() int {
	return int(t.failed.Load())
}

// Bytes returns the number of transferred bytes.
func (t *Tracker) Bytes() int64 {
	return t.bytes.Load()
}

// Total returns the expected number of units.
func (t *Tracker) Total() int {
	return t.opts.Total
}

// updateLoop periodically updates the progress display.
func (t *Tracker) updateLoop() {
	defer close(t.doneCh)

	ticker := time.NewTicker(t.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			t.printFinalStatus()
			return
		case <-ticker.C:
			t.printProgress()
		}
	}
}

// printProgress outputs the current progress.
func (t *Tracker) printProgress() {
	completed := t.Completed()
	elapsed := time.Since(t.startTime)

	var percent float64
	if t.opts.Total > 0 {
		percent = float64(completed) / float64(t.opts.Total) * 100
	}

	eta := "calculating..."
	if completed > 0 && t.opts.Total > completed {
		perUnit := elapsed / time.Duration(completed)
		eta = formatDuration(perUnit * time.Duration(t.opts.Total-completed))
	}

	fmt.Fprintf(t.opts.Output, "\r[harvest] %s: %d/%d (%.1f%%) | %d failed | %s | ETA: %s    ",
		t.opts.Label,
		completed,
		t.opts.Total,
		percent,
		t.Failed(),
		formatBytes(t.Bytes()),
		eta,
	)
}

// printFinalStatus outputs the final status.
func (t *Tracker) printFinalStatus() {
	fmt.Fprintf(t.opts.Output, "\r[harvest] %s: %d/%d | %d failed | %s | Total time: %s    \n",
		t.opts.Label,
		t.Completed(),
		t.opts.Total,
		t.Failed(),
		formatBytes(t.Bytes()),
		formatDuration(time.Since(t.startTime)),
	)
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case b >= TB:
		return fmt.Sprintf("%.2f TB", float64(b)/float64(TB))
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatBytes is exported for use by other packages.
func FormatBytes(b int64) string {
	return formatBytes(b)
}

// ParseBytes parses a human-readable byte string (e.g., "50MB").
// Units are binary: 1KB is 1024 bytes.
func ParseBytes(s string) (int64, error) {
	var multiplier int64 = 1
	num := strings.TrimSpace(s)

	for _, u := range []struct {
		suffix string
		size   int64
	}{
		{"TB", 1 << 40},
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	} {
		if strings.HasSuffix(num, u.suffix) {
			multiplier = u.size
			num = strings.TrimSpace(strings.TrimSuffix(num, u.suffix))
			break
		}
	}

	value, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("invalid byte string: %q", s)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative byte string: %q", s)
	}

	return int64(value * float64(multiplier)), nil
}
