// Package progress provides progress reporting sinks for long-running
// pipeline stages. Components depend only on the Sink capability; whether
// progress renders as a terminal bar or log lines is an injection decision.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Sink receives progress updates. Implementations are side-effecting
// observers only and must not influence control flow.
type Sink interface {
	// Start begins a new stage with the given description and total item count.
	Start(desc string, total int)
	// Increment records n completed items.
	Increment(n int)
	// Done marks the current stage complete.
	Done()
}

// NopSink discards all updates.
type NopSink struct{}

func (NopSink) Start(string, int) {}
func (NopSink) Increment(int)     {}
func (NopSink) Done()             {}

// LogSink reports progress as log lines at coarse intervals, for
// non-interactive runs.
type LogSink struct {
	logger *zap.Logger

	mu      sync.Mutex
	desc    string
	total   int
	current int
	lastPct int
}

// NewLogSink returns a sink that logs stage progress through logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Start(desc string, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.desc = desc
	s.total = total
	s.current = 0
	s.lastPct = -1
	s.logger.Info("stage started", zap.String("stage", desc), zap.Int("total", total))
}

func (s *LogSink) Increment(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current += n
	if s.total <= 0 {
		return
	}
	pct := s.current * 100 / s.total
	// Log every 10% to keep batch runs readable.
	if pct/10 > s.lastPct/10 {
		s.lastPct = pct
		s.logger.Info("stage progress",
			zap.String("stage", s.desc),
			zap.Int("completed", s.current),
			zap.Int("total", s.total),
			zap.Int("percent", pct),
		)
	}
}

func (s *LogSink) Done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info("stage completed", zap.String("stage", s.desc), zap.Int("total", s.current))
}

// BarSink renders an in-place progress bar, for interactive runs.
type BarSink struct {
	out io.Writer

	mu      sync.Mutex
	desc    string
	total   int
	current int
}

const barWidth = 40

// NewBarSink returns a sink that draws a progress bar on out (normally stderr).
func NewBarSink(out io.Writer) *BarSink {
	return &BarSink{out: out}
}

func (s *BarSink) Start(desc string, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.desc = desc
	s.total = total
	s.current = 0
	s.draw()
}

func (s *BarSink) Increment(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current += n
	s.draw()
}

func (s *BarSink) Done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < s.total {
		s.current = s.total
	}
	s.draw()
	fmt.Fprintln(s.out)
}

func (s *BarSink) draw() {
	if s.total <= 0 {
		return
	}
	filled := s.current * barWidth / s.total
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled)
	fmt.Fprintf(s.out, "\r%s [%s] %d/%d", s.desc, bar, s.current, s.total)
}
