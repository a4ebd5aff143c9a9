package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Progress renders a single-line counter, redrawn with a carriage
// return. Safe for concurrent use.
type Progress struct {
	mu      sync.Mutex
	w       io.Writer
	unit    string
	total   int
	done    int
	failed  int
	started time.Time
	now     func() time.Time
}

// NewProgress creates a reporter counting unit ("files", "records") on w.
func NewProgress(w io.Writer, unit string) *Progress {
	return &Progress{w: w, unit: unit, now: time.Now}
}

// Start resets the counter to zero of total.
func (p *Progress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.done = 0
	p.failed = 0
	p.started = p.now()
	p.render()
}

// Increment counts one finished item.
func (p *Progress) Increment(failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	if failed {
		p.failed++
	}
	p.render()
}

// Finish draws the final state and ends the line.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.render()
	fmt.Fprintln(p.w)
}

func (p *Progress) render() {
	if p.total <= 0 {
		return
	}

	const width = 30
	filled := width * p.done / p.total
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("#", filled) + strings.Repeat(".", width-filled)

	var rate float64
	if elapsed := p.now().Sub(p.started).Seconds(); elapsed > 0 {
		rate = float64(p.done) / elapsed
	}

	fmt.Fprintf(p.w, "\r[%s] %d/%d %s, %d failed, %.1f/s", bar, p.done, p.total, p.unit, p.failed, rate)
}
