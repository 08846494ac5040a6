package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressReporter reports progress for long-running operations.
type ProgressReporter interface {
	Start(total int64)
	Update(current int64)
	Finish()
	Error(err error)
}

// SimpleProgress implements a counting progress reporter for batches of
// simulated games.
type SimpleProgress struct {
	mu      sync.Mutex
	total   int64
	current int64
	started time.Time
	writer  io.Writer
}

// NewProgressReporter creates a new progress reporter that writes to w.
// If w is nil, it defaults to os.Stdout.
func NewProgressReporter(w io.Writer) ProgressReporter {
	if w == nil {
		w = os.Stdout
	}
	return &SimpleProgress{
		writer: w,
	}
}

// Start initializes the progress reporter with the total number of items.
func (p *SimpleProgress) Start(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.current = 0
	p.started = time.Now()

	p.render()
}

// Update updates the current progress.
func (p *SimpleProgress) Update(current int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = current
	p.render()
}

// Finish marks the progress as complete.
func (p *SimpleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = p.total
	p.render()
	fmt.Fprintln(p.writer)
}

// Error reports an error during progress.
func (p *SimpleProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.writer, "\n✗ Error: %v\n", err)
}

func (p *SimpleProgress) render() {
	if p.total == 0 {
		return
	}

	percent := float64(p.current) / float64(p.total) * 100
	bar := renderBar(percent, 30)

	elapsed := time.Since(p.started)
	rate := float64(p.current) / elapsed.Seconds()

	fmt.Fprintf(p.writer, "\rProgress: [%s] %.1f%% (%d/%d) %.1f games/s",
		bar, percent, p.current, p.total, rate)
}

// GameProgress renders a single live game's occupancy: admitted toward
// capacity and rejected toward the rejection budget. The bar tracks
// admissions; the budget is shown as a counter because it is burned
// down, not filled.
type GameProgress struct {
	mu       sync.Mutex
	capacity int
	budget   int
	writer   io.Writer
}

// NewGameProgress creates a live-game progress renderer that writes to
// w. If w is nil, it defaults to os.Stdout.
func NewGameProgress(w io.Writer, capacity, budget int) *GameProgress {
	if w == nil {
		w = os.Stdout
	}
	return &GameProgress{
		capacity: capacity,
		budget:   budget,
		writer:   w,
	}
}

// Update re-renders the progress line for the given occupancy.
func (p *GameProgress) Update(admitted, rejected int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.capacity == 0 {
		return
	}
	percent := float64(admitted) / float64(p.capacity) * 100
	bar := renderBar(percent, 30)

	fmt.Fprintf(p.writer, "\r[%s] admitted %d/%d  rejected %d/%d",
		bar, admitted, p.capacity, rejected, p.budget)
}

// Finish terminates the progress line.
func (p *GameProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintln(p.writer)
}

func renderBar(percent float64, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(float64(width) * percent / 100)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
