package refresh

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports sweep progress to a writer at a fixed interval,
// typically os.Stderr on an interactive refresh.
type ProgressTracker struct {
	mu       sync.Mutex
	writer   io.Writer
	total    int
	interval int

	current      int
	lastReported int
	startedAt    time.Time
	running      bool
}

// NewProgressTracker creates a tracker over total agents that reports
// every interval completions.
func NewProgressTracker(writer io.Writer, total, interval int) *ProgressTracker {
	return &ProgressTracker{
		writer:   writer,
		total:    total,
		interval: interval,
	}
}

// Start resets the tracker and begins timing. A tracker that was never
// started stays silent.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startedAt = time.Now()
	p.running = true
	p.current = 0
	p.lastReported = 0
}

// Add advances progress by delta completed agents.
func (p *ProgressTracker) Add(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance(p.current + delta)
}

// Set moves progress to an absolute position.
func (p *ProgressTracker) Set(current int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance(current)
}

// advance caps progress at the total and reports when a full interval has
// passed since the last report. Callers hold the lock.
func (p *ProgressTracker) advance(to int) {
	if !p.running {
		return
	}
	if to > p.total {
		to = p.total
	}
	p.current = to
	if p.current-p.lastReported >= p.interval {
		p.report()
		p.lastReported = p.current
	}
}

// Finish forces a final report and terminates the progress line.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.current = p.total
	p.report()
	fmt.Fprintln(p.writer)
}

// Elapsed returns how long the tracked run has been going.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return 0
	}
	return time.Since(p.startedAt)
}

// report rewrites the progress line in place. Callers hold the lock.
func (p *ProgressTracker) report() {
	elapsed := time.Since(p.startedAt)
	rate := float64(p.current) / elapsed.Seconds()

	pct := 0.0
	if p.total > 0 {
		pct = float64(p.current) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rRefreshed %d/%d agents (%.1f%%) - %.1f/s",
		p.current, p.total, pct, rate)
}
